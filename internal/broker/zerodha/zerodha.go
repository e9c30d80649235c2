package zerodha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"trade-report/internal/broker"
	"trade-report/internal/interfaces"
	"trade-report/internal/sheet"
)

// ist is the zone Kite reports timestamps in, without an offset.
var ist = time.FixedZone("IST", 19800)

type Params struct {
	APIKey      string
	AccessToken string
	// Exchange keeps only trades from this exchange. Empty keeps all.
	Exchange string
	// BaseURI overrides the Kite API root.
	BaseURI string
}

// Tradebook reads the day's executed trades from Kite Connect.
type Tradebook struct {
	p  Params
	kc *kiteconnect.Client
}

var _ interfaces.TableSource = (*Tradebook)(nil)

func New(p Params) (*Tradebook, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	if p.BaseURI != "" {
		kc.SetBaseURI(p.BaseURI)
	}
	return &Tradebook{p: p, kc: kc}, nil
}

func (z *Tradebook) Name() string {
	return "zerodha"
}

// Fetch returns the tradebook. Kite does not report per-trade charges, so
// the Fee column is zero.
func (z *Tradebook) Fetch(ctx context.Context) (*sheet.Table, error) {
	trades, err := z.kc.GetTrades()
	if err != nil {
		return nil, fmt.Errorf("kite trades: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	execs := make([]broker.Execution, 0, len(trades))
	for _, t := range trades {
		if z.p.Exchange != "" && !strings.EqualFold(t.Exchange, z.p.Exchange) {
			continue
		}
		at := t.FillTimestamp.Time
		if at.IsZero() {
			at = t.ExchangeTimestamp.Time
		}
		qty, err := decimal.NewFromString(fmt.Sprint(t.Quantity))
		if err != nil {
			return nil, fmt.Errorf("trade %s quantity: %w", t.TradeID, err)
		}
		execs = append(execs, broker.Execution{
			Time:   wallClock(at),
			Symbol: t.TradingSymbol,
			Side:   t.TransactionType,
			Price:  decimal.NewFromFloat(t.AveragePrice),
			Qty:    qty,
			Fee:    decimal.Zero,
		})
	}
	return broker.Table(execs), nil
}

// wallClock reads t's clock fields as IST.
func wallClock(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), ist)
}
