package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-report/internal/ingest"
	"trade-report/internal/llm"
	"trade-report/internal/sheet"
	"trade-report/internal/store"
	"trade-report/internal/validate"
)

var (
	errNotConfirmed = errors.New("session is not confirmed")
	errNoSource     = errors.New("no broker source configured")
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var schema *ingest.SchemaError
	switch {
	case errors.As(err, &schema):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sheet.ErrEmpty), errors.Is(err, sheet.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, validate.ErrNotAnalyzed), errors.Is(err, validate.ErrConfirmed), errors.Is(err, errNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, validate.ErrTooFewFills),
		errors.Is(err, validate.ErrUnknownFill),
		errors.Is(err, validate.ErrAlreadyGrouped),
		errors.Is(err, validate.ErrNotGrouped),
		errors.Is(err, validate.ErrSymbolMismatch),
		errors.Is(err, validate.ErrMissingSide),
		errors.Is(err, validate.ErrUnsupportedSide),
		errors.Is(err, validate.ErrQuantityImbalance),
		errors.Is(err, llm.ErrNoTrades):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoSource):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// details exposes the structured part of typed errors.
func details(err error) any {
	var schema *ingest.SchemaError
	if errors.As(err, &schema) {
		return gin.H{"missing": schema.Missing, "header": schema.Header}
	}
	var imb *validate.ImbalanceError
	if errors.As(err, &imb) {
		return gin.H{"buy_qty": imb.BuyQty, "sell_qty": imb.SellQty, "delta": imb.Delta()}
	}
	return nil
}

func fail(c *gin.Context, err error) {
	failWith(c, statusFor(err), err)
}

func failWith(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Details: details(err),
	})
}
