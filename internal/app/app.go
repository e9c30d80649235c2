// Package app wires configuration, logging, tracing and the optional
// collaborators (LLM advisor, broker source, journal, state store) shared by
// the CLI and the daemon.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"trade-report/internal/broker/alpaca"
	"trade-report/internal/broker/brokerobs"
	"trade-report/internal/broker/statement"
	"trade-report/internal/broker/zerodha"
	"trade-report/internal/eod"
	"trade-report/internal/eod/eodobs"
	"trade-report/internal/export"
	"trade-report/internal/ingest"
	"trade-report/internal/interfaces"
	"trade-report/internal/llm"
	"trade-report/internal/llm/claude"
	"trade-report/internal/llm/llmobs"
	"trade-report/internal/llm/noop"
	"trade-report/internal/llm/openai"
	"trade-report/internal/logger"
	"trade-report/internal/reconstruct"
	"trade-report/internal/sheet"
	"trade-report/internal/store"
	"trade-report/internal/trace"
	"trade-report/internal/tradelog"
	"trade-report/internal/types"
	"trade-report/internal/validate"
)

// Version is reported by the tracer and the health endpoint.
const Version = "1.0.0"

// Env holds everything a front end needs to run sessions.
type Env struct {
	Config   *store.Config
	Advisor  interfaces.Advisor
	Journal  *tradelog.Journal
	State    *store.StateStore
	EOD      interfaces.EodSummarizer
	Reporter *export.Reporter
}

// Bootstrap loads .env, initializes logging and tracing, reads the config
// file and builds the collaborators.
func Bootstrap(ctx context.Context, configPath string) (*Env, error) {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(Version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath)
		return nil, err
	}
	return New(ctx, cfg), nil
}

// New builds an Env from an already loaded config.
func New(ctx context.Context, cfg *store.Config) *Env {
	env := &Env{
		Config:   cfg,
		Advisor:  NewAdvisor(ctx, cfg),
		Journal:  tradelog.New(cfg.JournalDir, cfg.Location()),
		State:    store.NewStateStore(cfg.StateDir),
		EOD:      eodobs.Wrap(eod.New(cfg.ReportDir, cfg.Location())),
		Reporter: export.NewReporter(cfg.ReportDir, cfg.Currency),
	}
	compressOldJournal(ctx, env.Journal, cfg.RetentionDays)
	return env
}

// Shutdown flushes the tracer.
func (e *Env) Shutdown(ctx context.Context) {
	if err := trace.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Failed to shut down tracer", "error", err)
	}
}

func compressOldJournal(ctx context.Context, j *tradelog.Journal, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	if _, err := j.CompressOlder(ctx, retentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	}
}

// NewAdvisor picks the LLM provider named in the config.
func NewAdvisor(ctx context.Context, cfg *store.Config) interfaces.Advisor {
	var advisor interfaces.Advisor

	switch cfg.LLM.Provider {
	case "OPENAI":
		advisor = llm.NewAdvisor(openai.New(cfg), cfg.LLM.System)
	case "CLAUDE":
		advisor = llm.NewAdvisor(claude.New(cfg), cfg.LLM.System)
	default:
		advisor = noop.New()
		logger.Debug(ctx, "No LLM provider configured - using Noop advisor")
	}

	return llmobs.Wrap(advisor)
}

// NewSource returns the broker tradebook named in the config, or nil for
// FILE.
func NewSource(ctx context.Context, cfg *store.Config) (interfaces.TableSource, error) {
	var src interfaces.TableSource

	switch cfg.Broker.Source {
	case "ZERODHA":
		z, err := zerodha.New(zerodha.Params{
			APIKey:      os.Getenv("KITE_API_KEY"),
			AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
			Exchange:    cfg.Broker.Exchange,
		})
		if err != nil {
			return nil, fmt.Errorf("zerodha: %w", err)
		}
		src = z
	case "ALPACA":
		src = alpaca.New(alpaca.Params{
			APIKey:    os.Getenv("APCA_API_KEY_ID"),
			APISecret: os.Getenv("APCA_API_SECRET_KEY"),
			BaseURL:   os.Getenv("APCA_API_BASE_URL"),
			Limit:     cfg.Broker.Limit,
		})
	case "URL":
		l, err := statement.New(statement.Params{URL: cfg.Broker.URL})
		if err != nil {
			return nil, err
		}
		src = l
	default:
		return nil, nil
	}

	logger.Info(ctx, "Using broker tradebook", "source", src.Name())
	return brokerobs.Wrap(src), nil
}

// Import maps and normalizes a parsed table using the config's timezone and
// amount settings.
func (e *Env) Import(ctx context.Context, table *sheet.Table, source string) ([]types.Fill, ingest.Stats, error) {
	ctx, span := trace.StartSpan(ctx, "app.Import")
	defer span.End()

	fills, stats, err := ingest.Import(ctx, table.Header, table.Rows, ingest.Options{
		Source:       source,
		Location:     e.Config.Location(),
		DeriveAmount: e.Config.DeriveAmount,
	})
	if err != nil {
		return nil, stats, err
	}
	if dropped := stats.BlankDate + stats.InvalidDate; dropped > 0 {
		logger.Warn(ctx, "Rows dropped during import", "source", source, "blank_date", stats.BlankDate, "invalid_date", stats.InvalidDate)
	}
	return fills, stats, nil
}

// Options returns the analyzer options from the config.
func (e *Env) Options() (reconstruct.Options, error) {
	ex, err := e.Config.ExclusionSet()
	if err != nil {
		return reconstruct.Options{}, err
	}
	return reconstruct.Options{Tolerance: e.Config.Tolerance, Exclusions: ex}, nil
}

// Open creates a session over fills and runs the automatic analysis.
func (e *Env) Open(ctx context.Context, id, source string, fills []types.Fill) (*validate.Session, error) {
	opts, err := e.Options()
	if err != nil {
		return nil, err
	}
	s := validate.NewSession(id, source, fills, opts, e.Journal)
	if _, err := s.Analyze(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
