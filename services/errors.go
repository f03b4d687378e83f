package services

import "errors"

var (
	ErrBusy             = errors.New("operation already in progress")
	ErrOrderClosed      = errors.New("order is already paid")
	ErrNoOrder          = errors.New("table has no order yet")
	ErrUnknownItem      = errors.New("line item not on order")
	ErrUnknownTable     = errors.New("unknown table")
	ErrNotReady         = errors.New("cart is not loaded")
	ErrNothingSelected  = errors.New("no items selected for payment")
	ErrReceiptNotIssued = errors.New("receipt not acknowledged")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrPINLocked        = errors.New("too many wrong PIN attempts")
	ErrWrongPIN         = errors.New("wrong PIN")
	ErrLoginThrottled   = errors.New("too many failed logins")
)
