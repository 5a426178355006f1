package domain

// Cart is the per-customer snapshot of selected products awaiting checkout.
// Prices and names are copied at the time of the last reconciliation, not live.
type Cart struct {
	CustomerID int64      `json:"customer_id" bson:"customer_id"`
	Lines      []CartLine `json:"products" bson:"products"`
	// Changes are pending until delivered once by a cart read.
	Changes []Change `json:"changes,omitempty" bson:"changes,omitempty"`
}

// CartLine groups the items of a single product.
type CartLine struct {
	ID    int64          `json:"id" bson:"id"`
	Name  string         `json:"name" bson:"name"`
	Items []CartItemLine `json:"items" bson:"items"`
}

type CartItemLine struct {
	ID    int64  `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Price int64  `json:"price" bson:"price"`
	Count int    `json:"count" bson:"count"`
}

func NewCart(customerID int64) *Cart {
	return &Cart{CustomerID: customerID}
}

// Clone returns a deep copy so callers can mutate without sharing slices.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := &Cart{CustomerID: c.CustomerID}
	if c.Lines != nil {
		out.Lines = make([]CartLine, len(c.Lines))
		for i, line := range c.Lines {
			out.Lines[i] = line.clone()
		}
	}
	if c.Changes != nil {
		out.Changes = make([]Change, len(c.Changes))
		for i, ch := range c.Changes {
			out.Changes[i] = ch.clone()
		}
	}
	return out
}

func (l CartLine) clone() CartLine {
	out := CartLine{ID: l.ID, Name: l.Name}
	if l.Items != nil {
		out.Items = append([]CartItemLine(nil), l.Items...)
	}
	return out
}

// Line returns the line for productID, if present.
func (c *Cart) Line(productID int64) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// ProductIDs returns the distinct product ids in cart order.
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Lines))
	seen := make(map[int64]struct{}, len(c.Lines))
	for _, line := range c.Lines {
		if _, ok := seen[line.ID]; ok {
			continue
		}
		seen[line.ID] = struct{}{}
		ids = append(ids, line.ID)
	}
	return ids
}

// Total is the sum of price * count over every item of every line.
func (c *Cart) Total() int64 {
	var total int64
	for _, line := range c.Lines {
		for _, item := range line.Items {
			total += item.Price * int64(item.Count)
		}
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Prune drops item lines with no quantity and lines with no items.
func (c *Cart) Prune() {
	lines := make([]CartLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		items := make([]CartItemLine, 0, len(line.Items))
		for _, item := range line.Items {
			if item.Count > 0 {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		line.Items = items
		lines = append(lines, line)
	}
	c.Lines = lines
}

// Messages renders the pending changes as customer-facing text.
func (c *Cart) Messages() []string {
	out := make([]string, 0, len(c.Changes))
	for _, ch := range c.Changes {
		out = append(out, ch.Message())
	}
	return out
}
