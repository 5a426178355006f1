package domain

// CatalogProduct is the live, seller-owned product with its purchasable options.
type CatalogProduct struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Items []CatalogItem `json:"items"`
}

// CatalogItem is the authoritative sellable unit. Count is the available stock.
type CatalogItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Count     int    `json:"count"`
}

// Item returns the option with the given id.
func (p CatalogProduct) Item(itemID int64) (CatalogItem, bool) {
	for _, item := range p.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CatalogItem{}, false
}
