package repository

import "errors"

var (
	ErrCartNotFound         = errors.New("cart not found")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrCartAlreadyConverted = errors.New("cart already converted to an order")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrRestaurantNotFound   = errors.New("restaurant not found")
	ErrAddressNotFound      = errors.New("address not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
