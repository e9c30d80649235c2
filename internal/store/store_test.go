package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"trade-report/internal/types"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Tolerance != 1e-8 {
		t.Errorf("Expected tolerance 1e-8, got %g", cfg.Tolerance)
	}
	if cfg.LLM.Provider != "NONE" {
		t.Errorf("Expected provider NONE, got %s", cfg.LLM.Provider)
	}
	if cfg.Broker.Source != "FILE" {
		t.Errorf("Expected source FILE, got %s", cfg.Broker.Source)
	}
}

func TestLoadConfigParsesExclusions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `capital: 1000
timezone: America/Sao_Paulo
exclusions:
  symbols: [usdc, " "]
  date_range:
    start: "2024-01-01"
    end: "2024-01-31"
llm:
  provider: claude
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Capital != 1000 {
		t.Errorf("Expected capital 1000, got %f", cfg.Capital)
	}
	if cfg.LLM.Provider != "CLAUDE" {
		t.Errorf("Expected provider to be uppercased, got %s", cfg.LLM.Provider)
	}

	ex, err := cfg.ExclusionSet()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !ex.ExcludesSymbol("USDCUSDT") {
		t.Error("Expected USDCUSDT to be excluded")
	}
	if ex.ExcludesSymbol("BTCUSDT") {
		t.Error("Expected blank substring to match nothing")
	}
	if ex.DateRange == nil {
		t.Fatal("Expected a date range")
	}
	if ex.DateRange.Start.Location().String() != "America/Sao_Paulo" {
		t.Errorf("Expected bounds in configured timezone, got %s", ex.DateRange.Start.Location())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative capital", func(c *Config) { c.Capital = -1 }},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "GEMINI" }},
		{"bad source", func(c *Config) { c.Broker.Source = "IBKR" }},
		{"url source without url", func(c *Config) { c.Broker.Source = "URL" }},
		{"half range", func(c *Config) { c.Exclusions.DateRange.Start = "2024-01-01" }},
		{"reversed range", func(c *Config) {
			c.Exclusions.DateRange.Start = "2024-02-01"
			c.Exclusions.DateRange.End = "2024-01-01"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "state"))

	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	report := types.Report{
		InitialCapital: 1000,
		Total:          1,
		Wins:           1,
		WinRate:        100,
		Net:            9.8,
		Summary:        types.Summary{WinRate: "100.00", Net: "9.80"},
		Trades: []types.Trade{{
			ID:         "t1",
			Symbol:     "BTCUSDT",
			EntryFills: []types.Fill{{ID: "a", Date: date, Symbol: "BTCUSDT", Side: types.SideBuy, Qty: 1, Amount: 100}},
			ExitFills:  []types.Fill{{ID: "b", Date: date.Add(time.Hour), Symbol: "BTCUSDT", Side: types.SideSell, Qty: 1, Amount: 110}},
			TotalQty:   1,
			Result:     9.8,
		}},
		CapitalEvolution: []types.CapitalPoint{{Label: "start", Capital: 1000}, {Label: "2024-03-01", Capital: 1009.8}},
	}

	if err := s.SaveSession(report, 1000); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, capital, err := s.LoadSession()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if capital != 1000 {
		t.Errorf("Expected capital 1000, got %f", capital)
	}
	if !reflect.DeepEqual(got, report) {
		t.Errorf("Expected identical report after reload\nwant %+v\ngot  %+v", report, got)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.LoadSession(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after clear, got %v", err)
	}
}

func TestStateStoreRejectsBadKey(t *testing.T) {
	s := NewStateStore(t.TempDir())
	if err := s.Put("../escape", 1); err == nil {
		t.Error("Expected invalid key error")
	}
}

func TestStateStoreConcurrentSaves(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s := NewStateStore(dir)

	// Reports of very different sizes make torn or interleaved writes show up
	// as undecodable JSON.
	reportFor := func(capital float64) types.Report {
		n := 1
		if int(capital)%2 == 0 {
			n = 400
		}
		trades := make([]types.Trade, n)
		for i := range trades {
			trades[i] = types.Trade{ID: strings.Repeat("x", 64), Symbol: "ETHUSDT", Result: capital}
		}
		return types.Report{InitialCapital: capital, Total: n, Trades: trades}
	}

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for g := 1; g <= 4; g++ {
			capital := float64(round*10 + g)
			wg.Add(2)
			go func() {
				defer wg.Done()
				if err := s.SaveSession(reportFor(capital), capital); err != nil {
					errs <- err
				}
			}()
			go func() {
				defer wg.Done()
				r, c, err := s.LoadSession()
				if errors.Is(err, ErrNotFound) {
					return
				}
				if err != nil {
					errs <- err
					return
				}
				if r.InitialCapital != c {
					t.Errorf("Expected report and capital from the same save, got %g and %g", r.InitialCapital, c)
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("Round %d: expected no error, got %v", round, err)
		}
	}

	r, c, err := s.LoadSession()
	if err != nil {
		t.Fatalf("Expected readable state, got %v", err)
	}
	if r.InitialCapital != c || r.Total != len(r.Trades) {
		t.Errorf("Expected a consistent final session, got capital %g/%g and %d/%d trades", r.InitialCapital, c, r.Total, len(r.Trades))
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("Expected no temp files, got %v", leftovers)
	}
}
