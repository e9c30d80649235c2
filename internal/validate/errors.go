package validate

import (
	"errors"
	"fmt"
)

var (
	ErrTooFewFills       = errors.New("select at least two fills")
	ErrUnknownFill       = errors.New("unknown fill")
	ErrAlreadyGrouped    = errors.New("fill already belongs to a trade")
	ErrNotGrouped        = errors.New("fill does not belong to any trade")
	ErrSymbolMismatch    = errors.New("symbols must match")
	ErrMissingSide       = errors.New("selection needs at least one BUY and one SELL")
	ErrUnsupportedSide   = errors.New("only BUY and SELL fills can be grouped")
	ErrQuantityImbalance = errors.New("buy and sell quantities do not balance")
	ErrNotAnalyzed       = errors.New("session has not been analyzed")
	ErrConfirmed         = errors.New("session already confirmed")
)

// ImbalanceError carries the exact quantities of a rejected selection.
type ImbalanceError struct {
	BuyQty  float64
	SellQty float64
}

// Delta is buy quantity minus sell quantity.
func (e *ImbalanceError) Delta() float64 { return e.BuyQty - e.SellQty }

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("%v: buy %.8g, sell %.8g, difference %.8g", ErrQuantityImbalance, e.BuyQty, e.SellQty, e.Delta())
}

func (e *ImbalanceError) Unwrap() error { return ErrQuantityImbalance }

// fillError ties a sentinel to the offending fill ID.
func fillError(err error, id string) error {
	return fmt.Errorf("%w: %s", err, id)
}
