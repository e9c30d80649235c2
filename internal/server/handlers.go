package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trade-report/internal/app"
	"trade-report/internal/eod"
	"trade-report/internal/export"
	"trade-report/internal/ingest"
	"trade-report/internal/metrics"
	"trade-report/internal/sheet"
	"trade-report/internal/trace"
	"trade-report/internal/types"
	"trade-report/internal/validate"
)

// sessionView is the JSON shape of a session.
type sessionView struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	State     string        `json:"state"`
	Capital   float64       `json:"capital"`
	CreatedAt time.Time     `json:"created_at"`
	Stats     ingest.Stats  `json:"stats"`
	Symbols   []string      `json:"symbols"`
	Trades    []types.Trade `json:"trades"`
	Ungrouped []types.Fill  `json:"ungrouped"`
	Report    *types.Report `json:"report,omitempty"`
}

func view(e *entry) sessionView {
	w := e.session.Workset()
	v := sessionView{
		ID:        e.session.ID,
		Source:    e.session.Source,
		State:     e.session.State().String(),
		Capital:   e.capital,
		CreatedAt: e.created,
		Stats:     e.stats,
		Symbols:   w.Symbols(),
		Trades:    w.SortedTrades(),
		Ungrouped: w.Partition().Ungrouped,
	}
	if r, ok := e.session.Report(); ok {
		v.Report = &r
	}
	if v.Trades == nil {
		v.Trades = []types.Trade{}
	}
	if v.Ungrouped == nil {
		v.Ungrouped = []types.Fill{}
	}
	return v
}

type fillsRequest struct {
	FillIDs []string `json:"fill_ids" binding:"required"`
}

type confirmRequest struct {
	Capital *float64 `json:"capital"`
}

type chatRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   app.Version,
		"sessions":  n,
		"tracing":   trace.Enabled(),
	})
}

// parseCapital reads an optional capital value, defaulting to the config.
func (s *Server) parseCapital(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.env.Config.Capital, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid capital %q", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("capital must not be negative, got %s", raw)
	}
	return v, nil
}

func (s *Server) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		failWith(c, http.StatusBadRequest, errors.New("multipart field 'file' is required"))
		return
	}
	capital, err := s.parseCapital(c.PostForm("capital"))
	if err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}

	table, err := sheet.Read(fh.Filename, data)
	if err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	s.open(c, fh.Filename, table, capital)
}

func (s *Server) handleBrokerImport(c *gin.Context) {
	if s.source == nil {
		fail(c, errNoSource)
		return
	}
	capital, err := s.parseCapital(c.Query("capital"))
	if err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	table, err := s.source.Fetch(c.Request.Context())
	if err != nil {
		failWith(c, http.StatusBadGateway, err)
		return
	}
	s.open(c, s.source.Name(), table, capital)
}

// open imports a table, analyzes it and registers the new session.
func (s *Server) open(c *gin.Context, source string, table *sheet.Table, capital float64) {
	ctx := c.Request.Context()

	fills, stats, err := s.env.Import(ctx, table, source)
	if err != nil {
		fail(c, err)
		return
	}
	id := uuid.New().String()
	sess, err := s.env.Open(ctx, id, source, fills)
	if err != nil {
		fail(c, err)
		return
	}

	e := &entry{session: sess, stats: stats, capital: capital, created: time.Now()}
	s.put(id, e)
	c.JSON(http.StatusCreated, view(e))
}

// handleResume loads the last confirmed report from the state store.
func (s *Server) handleResume(c *gin.Context) {
	report, capital, err := s.env.State.LoadSession()
	if err != nil {
		fail(c, err)
		return
	}
	id := uuid.New().String()
	e := &entry{session: validate.Resume(id, report), capital: capital, created: time.Now()}
	s.put(id, e)
	c.JSON(http.StatusCreated, view(e))
}

func (s *Server) handleList(c *gin.Context) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	type summary struct {
		ID        string    `json:"id"`
		Source    string    `json:"source"`
		State     string    `json:"state"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, summary{ID: e.session.ID, Source: e.session.Source, State: e.session.State().String(), CreatedAt: e.created})
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGet(c *gin.Context) {
	s.withSession(c, func(e *entry) {
		c.JSON(http.StatusOK, view(e))
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	if !s.remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	s.withSession(c, func(e *entry) {
		if _, err := e.session.Analyze(c.Request.Context()); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view(e))
	})
}

func (s *Server) handleBalance(c *gin.Context) {
	var req fillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	s.withSession(c, func(e *entry) {
		c.JSON(http.StatusOK, e.session.Balance(req.FillIDs))
	})
}

func (s *Server) handleGroup(c *gin.Context) {
	var req fillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	s.withSession(c, func(e *entry) {
		trade, err := e.session.CreateGroup(c.Request.Context(), req.FillIDs)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, trade)
	})
}

func (s *Server) handleUngroup(c *gin.Context) {
	var req fillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	s.withSession(c, func(e *entry) {
		deleted, err := e.session.Ungroup(c.Request.Context(), req.FillIDs)
		if err != nil {
			fail(c, err)
			return
		}
		if deleted == nil {
			deleted = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"deleted_trades": deleted})
	})
}

func (s *Server) handleConfirm(c *gin.Context) {
	var req confirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			failWith(c, http.StatusBadRequest, err)
			return
		}
	}
	if req.Capital != nil && *req.Capital < 0 {
		failWith(c, http.StatusBadRequest, fmt.Errorf("capital must not be negative, got %g", *req.Capital))
		return
	}

	s.withSession(c, func(e *entry) {
		if req.Capital != nil {
			e.capital = *req.Capital
		}
		ctx := c.Request.Context()
		report, err := e.session.Confirm(ctx, e.capital)
		if err != nil {
			fail(c, err)
			return
		}
		resp := confirmResponse{Report: report, Persisted: true}
		if err := s.env.State.SaveSession(report, e.capital); err != nil {
			_ = c.Error(err)
			resp.Persisted = false
			resp.Warning = "report not saved, resume will not find it: " + err.Error()
		}
		c.JSON(http.StatusOK, resp)
	})
}

// confirmResponse is the confirmed report plus whether it reached the state
// store.
type confirmResponse struct {
	types.Report
	Persisted bool   `json:"persisted"`
	Warning   string `json:"warning,omitempty"`
}

// confirmedReport returns the session's report or errNotConfirmed.
func confirmedReport(e *entry) (types.Report, error) {
	r, ok := e.session.Report()
	if !ok {
		return types.Report{}, errNotConfirmed
	}
	return r, nil
}

// parseDay reads a YYYY-MM-DD value in the configured timezone.
func (s *Server) parseDay(raw string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", raw, s.env.Config.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD", raw)
	}
	return d, nil
}

// handleReport returns the confirmed report, optionally narrowed to one
// symbol and/or one entry day and rendered in another format.
func (s *Server) handleReport(c *gin.Context) {
	format := export.FormatJSON
	if f := c.Query("format"); f != "" {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			failWith(c, http.StatusBadRequest, err)
			return
		}
		format = parsed
	}

	var filters []func(types.Trade) bool
	if sym := c.Query("symbol"); sym != "" {
		filters = append(filters, metrics.ForSymbol(sym))
	}
	if raw := c.Query("day"); raw != "" {
		day, err := s.parseDay(raw)
		if err != nil {
			failWith(c, http.StatusBadRequest, err)
			return
		}
		filters = append(filters, metrics.OnDay(day))
	}

	var report types.Report
	var ok bool
	s.withSession(c, func(e *entry) {
		r, err := confirmedReport(e)
		if err != nil {
			fail(c, err)
			return
		}
		report, ok = r, true
	})
	if !ok {
		return
	}

	if len(filters) > 0 {
		trades := report.Trades
		for _, f := range filters {
			trades = metrics.Filter(trades, f)
		}
		report = metrics.Compute(trades, report.InitialCapital)
	}

	if format == export.FormatJSON {
		c.JSON(http.StatusOK, report)
		return
	}
	body, err := s.env.Reporter.Generate(report, format)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentType(format), body)
}

func contentType(f export.Format) string {
	switch f {
	case export.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case export.FormatText:
		return "text/plain; charset=utf-8"
	case export.FormatCSV:
		return "text/csv; charset=utf-8"
	case export.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

func (s *Server) handleBreakdown(c *gin.Context) {
	dim := metrics.Dimension(c.DefaultQuery("by", string(metrics.BySymbol)))
	if dim != metrics.BySymbol && dim != metrics.ByDay {
		failWith(c, http.StatusBadRequest, fmt.Errorf("by must be %q or %q", metrics.BySymbol, metrics.ByDay))
		return
	}
	s.withSession(c, func(e *entry) {
		report, err := confirmedReport(e)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, metrics.Breakdown(report.Trades, report.InitialCapital, dim))
	})
}

// snapshotTrades returns the confirmed trades, or the current workset trades
// while the session is still being validated.
func (s *Server) snapshotTrades(c *gin.Context) ([]types.Trade, bool) {
	var trades []types.Trade
	var ok bool
	s.withSession(c, func(e *entry) {
		if r, confirmed := e.session.Report(); confirmed {
			trades = r.Trades
		} else {
			trades = e.session.Workset().SortedTrades()
		}
		ok = true
	})
	return trades, ok
}

func (s *Server) handleTradesCSV(c *gin.Context) {
	trades, ok := s.snapshotTrades(c)
	if !ok {
		return
	}
	out, err := export.TradesCSV(trades)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="trades.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
}

func (s *Server) handleEOD(c *gin.Context) {
	day, err := s.parseDay(c.Param("day"))
	if err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	s.withSession(c, func(e *entry) {
		report, err := confirmedReport(e)
		if err != nil {
			fail(c, err)
			return
		}
		trades := metrics.Filter(report.Trades, metrics.OnDay(day))
		if len(trades) == 0 {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "no trades on " + c.Param("day")})
			return
		}
		body, err := eod.Render(trades)
		if err != nil {
			fail(c, err)
			return
		}
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
	})
}

// The advisor call runs without the session lock held.
func (s *Server) handleInsights(c *gin.Context) {
	trades, ok := s.snapshotTrades(c)
	if !ok {
		return
	}
	csv, err := export.TradesCSV(trades)
	if err != nil {
		fail(c, err)
		return
	}
	insights, err := s.env.Advisor.Insights(c.Request.Context(), csv)
	if err != nil {
		s.advisorFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": insights})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	trades, ok := s.snapshotTrades(c)
	if !ok {
		return
	}
	csv, err := export.TradesCSV(trades)
	if err != nil {
		fail(c, err)
		return
	}
	answer, err := s.env.Advisor.Ask(c.Request.Context(), req.Question, csv)
	if err != nil {
		s.advisorFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) advisorFailed(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadGateway
	}
	failWith(c, status, err)
}

func (s *Server) handleJournal(c *gin.Context) {
	day, err := s.parseDay(c.Param("day"))
	if err != nil {
		failWith(c, http.StatusBadRequest, err)
		return
	}
	entries, err := s.env.Journal.Read(day)
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []types.Correction{}
	}
	c.JSON(http.StatusOK, entries)
}
