// Package notify delivers order confirmations to customers.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/internal/domain"
)

// Notifier sends one order confirmation to email.
type Notifier interface {
	Send(ctx context.Context, email string, summary domain.OrderSummary) error
}

// Email is a rendered confirmation, ready for a mail gateway.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func Render(email string, summary domain.OrderSummary) Email {
	var b strings.Builder
	b.WriteString("Thank you for your order!\n\n")
	for _, item := range summary.Items {
		fmt.Fprintf(&b, "%s - %s: %d x %d = %d\n",
			item.ProductName, item.ItemName, item.Quantity, item.Price, item.Subtotal())
	}
	fmt.Fprintf(&b, "\nTotal: %d\n", summary.TotalAmount)
	fmt.Fprintf(&b, "Order reference: %s\n", summary.CheckoutID)

	return Email{
		To:      email,
		Subject: "Order confirmation",
		Body:    b.String(),
	}
}
