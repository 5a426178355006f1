package domain

import "errors"

// Errors shared by the collaborator adapters and the services that consume them.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
