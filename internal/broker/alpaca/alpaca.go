package alpaca

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"trade-report/internal/broker"
	"trade-report/internal/interfaces"
	"trade-report/internal/sheet"
)

type Params struct {
	// APIKey, APISecret and BaseURL fall back to the APCA_* environment
	// variables when empty.
	APIKey    string
	APISecret string
	BaseURL   string
	Limit     int
}

// Orders reads filled orders from an Alpaca account. Each filled order is
// one execution at its average fill price.
type Orders struct {
	p      Params
	client *alpaca.Client
}

var _ interfaces.TableSource = (*Orders)(nil)

func New(p Params) *Orders {
	if p.Limit <= 0 {
		p.Limit = 500
	}
	return &Orders{
		p: p,
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    p.APIKey,
			APISecret: p.APISecret,
			BaseURL:   p.BaseURL,
		}),
	}
}

func (a *Orders) Name() string {
	return "alpaca"
}

func (a *Orders) Fetch(ctx context.Context) (*sheet.Table, error) {
	orders, err := a.client.GetOrders(alpaca.GetOrdersRequest{
		Status:    "closed",
		Limit:     a.p.Limit,
		Direction: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca orders: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	execs := make([]broker.Execution, 0, len(orders))
	for _, o := range orders {
		if o.FilledQty.IsZero() || o.FilledAt == nil {
			continue
		}
		price := decimal.Zero
		if o.FilledAvgPrice != nil {
			price = *o.FilledAvgPrice
		}
		execs = append(execs, broker.Execution{
			Time:   *o.FilledAt,
			Symbol: o.Symbol,
			Side:   string(o.Side),
			Price:  price,
			Qty:    o.FilledQty,
			Fee:    decimal.Zero,
		})
	}
	return broker.Table(execs), nil
}
