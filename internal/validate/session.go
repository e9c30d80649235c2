package validate

import (
	"context"
	"time"

	"trade-report/internal/interfaces"
	"trade-report/internal/logger"
	"trade-report/internal/metrics"
	"trade-report/internal/reconstruct"
	"trade-report/internal/types"
)

// State is the position of a session in its lifecycle.
type State int

const (
	StateUploaded State = iota
	StateValidating
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateUploaded:
		return "uploaded"
	case StateValidating:
		return "validating"
	case StateConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// Session drives one upload through Uploaded -> Validating -> Confirmed.
// Once confirmed it cannot go back; revising requires a new upload.
// A Session is not safe for concurrent use.
type Session struct {
	ID     string
	Source string

	fills   []types.Fill
	opts    reconstruct.Options
	state   State
	work    Workset
	report  *types.Report
	journal interfaces.Journal
}

// NewSession holds imported fills until Analyze is called. journal may be nil.
func NewSession(id, source string, fills []types.Fill, opts reconstruct.Options, journal interfaces.Journal) *Session {
	return &Session{
		ID:      id,
		Source:  source,
		fills:   append([]types.Fill(nil), fills...),
		opts:    opts,
		journal: journal,
	}
}

// Resume rebuilds a confirmed session from a persisted report.
func Resume(id string, report types.Report) *Session {
	r := report
	return &Session{ID: id, state: StateConfirmed, report: &r, work: Workset{Trades: cloneTrades(report.Trades)}}
}

func (s *Session) State() State { return s.state }

// Workset returns a copy of the current editable state.
func (s *Session) Workset() Workset { return s.work.clone() }

// Report returns the confirmed report, if any.
func (s *Session) Report() (types.Report, bool) {
	if s.report == nil {
		return types.Report{}, false
	}
	return *s.report, true
}

// Analyze runs automatic pairing and enters validation. Calling it again
// before confirmation discards manual corrections.
func (s *Session) Analyze(ctx context.Context) (Workset, error) {
	if s.state == StateConfirmed {
		return Workset{}, ErrConfirmed
	}
	res := reconstruct.Analyze(ctx, s.fills, s.opts)
	s.work = NewWorkset(res, s.opts.Tolerance)
	s.state = StateValidating

	p := s.work.Partition()
	logger.Info(ctx, "Session analyzed",
		"session", s.ID,
		"trades", len(s.work.Trades),
		"grouped", len(p.Grouped),
		"ungrouped", len(p.Ungrouped),
		"excluded", res.Excluded)
	return s.work.clone(), nil
}

func (s *Session) ready() error {
	switch s.state {
	case StateUploaded:
		return ErrNotAnalyzed
	case StateConfirmed:
		return ErrConfirmed
	}
	return nil
}

// Balance reports live feedback for a candidate selection.
func (s *Session) Balance(ids []string) Check {
	return s.work.Balance(ids)
}

// CreateGroup adds a manual trade. On error the session is unchanged.
func (s *Session) CreateGroup(ctx context.Context, ids []string) (types.Trade, error) {
	if err := s.ready(); err != nil {
		return types.Trade{}, err
	}
	next, trade, err := s.work.CreateGroup(ids)
	if err != nil {
		logger.Warn(ctx, "Manual group rejected", "session", s.ID, "fills", ids, "error", err)
		s.record(ctx, types.Correction{Action: "group_rejected", FillIDs: ids, Reason: err.Error()})
		return types.Trade{}, err
	}
	s.work = next

	logger.Correction(ctx, "group", ids, "session", s.ID, "trade_id", trade.ID, "result", trade.Result)
	s.record(ctx, types.Correction{
		Action:  "group",
		Symbol:  trade.Symbol,
		FillIDs: ids,
		TradeID: trade.ID,
		Extra:   map[string]any{"result": trade.Result, "qty": trade.TotalQty},
	})
	return trade, nil
}

// Ungroup splits fills out of their trades. On error the session is unchanged.
func (s *Session) Ungroup(ctx context.Context, ids []string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	next, deleted, err := s.work.Ungroup(ids)
	if err != nil {
		return nil, err
	}
	s.work = next

	logger.Correction(ctx, "ungroup", ids, "session", s.ID, "deleted_trades", len(deleted))
	s.record(ctx, types.Correction{
		Action:  "ungroup",
		FillIDs: ids,
		Extra:   map[string]any{"deleted_trades": deleted},
	})
	return deleted, nil
}

// Confirm orders the trades by entry date and computes the report. It
// refuses trades left unbalanced by a partial ungroup. A session can be
// confirmed once.
func (s *Session) Confirm(ctx context.Context, capital float64) (types.Report, error) {
	if err := s.ready(); err != nil {
		return types.Report{}, err
	}
	if bad := s.work.Unbalanced(); len(bad) > 0 {
		t := bad[0]
		return types.Report{}, &ImbalanceError{BuyQty: types.SumQty(t.EntryFills), SellQty: types.SumQty(t.ExitFills)}
	}

	op := logger.StartOperation(ctx, "validate.confirm", "session", s.ID, "trades", len(s.work.Trades))
	trades := s.work.SortedTrades()
	report := metrics.Compute(trades, capital)
	s.work.Trades = trades
	s.report = &report
	s.state = StateConfirmed
	op.End("net", report.Net)

	s.record(op.GetContext(), types.Correction{
		Action: "confirm",
		Extra:  map[string]any{"trades": report.Total, "net": report.Net, "capital": capital},
	})
	return report, nil
}

func (s *Session) record(ctx context.Context, c types.Correction) {
	if s.journal == nil {
		return
	}
	c.Session = s.ID
	if c.Time == "" {
		c.Time = time.Now().Format(time.RFC3339)
	}
	if err := s.journal.Append(ctx, c); err != nil {
		logger.ErrorWithErr(ctx, "Failed to append correction journal", err, "session", s.ID, "action", c.Action)
	}
}
