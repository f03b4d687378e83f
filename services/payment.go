package services

import (
	"context"
	"sync"

	"kafe-pos/metrics"
	"kafe-pos/models"

	"github.com/shopspring/decimal"
)

// PaymentAPI posts payments.
type PaymentAPI interface {
	CreatePayment(ctx context.Context, in models.CreatePaymentInput) (*models.Payment, error)
}

// PaymentDraft is the split-check selection for one order snapshot. Every item starts
// at zero selected; selections are kept within [0, ordered quantity].
type PaymentDraft struct {
	mu       sync.Mutex
	order    models.Order
	selected map[int64]int
	receipt  bool
}

func NewPaymentDraft(o models.Order) *PaymentDraft {
	d := &PaymentDraft{order: o, selected: make(map[int64]int, len(o.Items))}
	for _, it := range o.Items {
		d.selected[it.ID] = 0
	}
	return d
}

func (d *PaymentDraft) Order() models.Order { return d.order }

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Change moves the selected quantity of itemID by delta and returns the new value.
func (d *PaymentDraft) Change(itemID int64, delta int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.order.ItemByID(itemID)
	if !ok {
		return 0, ErrUnknownItem
	}
	d.selected[itemID] = clamp(d.selected[itemID]+delta, it.Quantity)
	return d.selected[itemID], nil
}

func (d *PaymentDraft) Selected(itemID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected[itemID]
}

func (d *PaymentDraft) SelectAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, it := range d.order.Items {
		d.selected[it.ID] = it.Quantity
	}
}

func (d *PaymentDraft) ClearAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, it := range d.order.Items {
		d.selected[it.ID] = 0
	}
}

// SetReceipt records the "receipt issued" acknowledgment.
func (d *PaymentDraft) SetReceipt(issued bool) {
	d.mu.Lock()
	d.receipt = issued
	d.mu.Unlock()
}

func (d *PaymentDraft) ToggleReceipt() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receipt = !d.receipt
	return d.receipt
}

func (d *PaymentDraft) Receipt() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receipt
}

// Amount is the preview of what will be charged: price_at_order times selected
// quantity, summed over the order's items.
func (d *PaymentDraft) Amount() decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.amountLocked()
}

func (d *PaymentDraft) amountLocked() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range d.order.Items {
		sum = sum.Add(it.PriceAtOrder.Mul(decimal.NewFromInt(int64(d.selected[it.ID]))))
	}
	return sum
}

// Validate reports why the draft cannot be submitted yet, if anything.
func (d *PaymentDraft) Validate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validateLocked()
}

func (d *PaymentDraft) validateLocked() error {
	if !d.amountLocked().IsPositive() {
		return ErrNothingSelected
	}
	if !d.receipt {
		return ErrReceiptNotIssued
	}
	return nil
}

// Submit posts the selected amount with method. Nothing is sent when the draft is
// invalid. The caller re-fetches the order to learn whether it is settled.
func (d *PaymentDraft) Submit(ctx context.Context, payments PaymentAPI, method string) (*models.Payment, error) {
	if !models.ValidPaymentMethod(method) {
		return nil, ErrInvalidMethod
	}
	d.mu.Lock()
	if err := d.validateLocked(); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	in := models.CreatePaymentInput{
		Order:  d.order.ID,
		Amount: d.amountLocked().StringFixed(2),
		Method: method,
	}
	d.mu.Unlock()

	if in.Order == 0 {
		return nil, ErrNoOrder
	}
	p, err := payments.CreatePayment(ctx, in)
	metrics.RecordPayment(method, err)
	return p, err
}
