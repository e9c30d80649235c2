package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"trade-report/internal/app"
	"trade-report/internal/export"
	"trade-report/internal/logger"
	"trade-report/internal/metrics"
	"trade-report/internal/sheet"
	"trade-report/internal/types"
)

type options struct {
	configPath  string
	file        string
	broker      bool
	resume      bool
	interactive bool
	capital     float64
	format      string
	save        bool
	eod         bool
	insights    bool
	ask         string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&o.file, "file", "", "Exchange export to analyze (.csv, .xlsx, .xls)")
	flag.BoolVar(&o.broker, "broker", false, "Import fills from the broker configured in broker.source")
	flag.BoolVar(&o.resume, "resume", false, "Reopen the last confirmed report")
	flag.BoolVar(&o.interactive, "interactive", false, "Review and correct trades before confirming")
	flag.Float64Var(&o.capital, "capital", -1, "Initial capital (defaults to config)")
	flag.StringVar(&o.format, "format", "markdown", "Report format: markdown, text, json, csv, xlsx")
	flag.BoolVar(&o.save, "save", false, "Write the report under report_dir instead of stdout")
	flag.BoolVar(&o.eod, "eod", false, "Write per-day summaries under report_dir/eod")
	flag.BoolVar(&o.insights, "insights", false, "Ask the configured LLM for insights")
	flag.StringVar(&o.ask, "ask", "", "Ask the configured LLM a question about the trades")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()
	ctx := context.Background()

	env, err := app.Bootstrap(ctx, o.configPath)
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer env.Shutdown(ctx)

	if err := run(ctx, env, o); err != nil {
		if errors.Is(err, errAborted) {
			fmt.Println("No report generated.")
			return
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, env *app.Env, o options) error {
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return err
	}
	capital := env.Config.Capital
	if o.capital >= 0 {
		capital = o.capital
	}

	report, err := obtainReport(ctx, env, o, capital)
	if err != nil {
		return err
	}

	if err := writeReport(env, report, format, o.save); err != nil {
		return err
	}
	if o.eod {
		paths, err := env.EOD.SummarizeAll(ctx, report)
		if err != nil {
			return fmt.Errorf("eod summaries: %w", err)
		}
		for _, p := range paths {
			fmt.Fprintln(os.Stderr, "wrote", p)
		}
	}
	return advise(ctx, env, report, o)
}

// obtainReport resumes a saved report or builds one from a fresh import.
func obtainReport(ctx context.Context, env *app.Env, o options, capital float64) (types.Report, error) {
	if o.resume {
		report, _, err := env.State.LoadSession()
		if err != nil {
			return types.Report{}, fmt.Errorf("resume: %w", err)
		}
		if o.capital >= 0 {
			// A new capital reshapes the metrics, not the trades.
			report = metrics.Compute(report.Trades, capital)
		}
		return report, nil
	}

	table, source, err := loadTable(ctx, env, o)
	if err != nil {
		return types.Report{}, err
	}
	fills, stats, err := env.Import(ctx, table, source)
	if err != nil {
		return types.Report{}, err
	}
	fmt.Fprintf(os.Stderr, "Imported %d of %d rows from %s (%d without date, %d with invalid date)\n",
		stats.Imported, stats.Rows, source, stats.BlankDate, stats.InvalidDate)

	s, err := env.Open(ctx, uuid.NewString(), source, fills)
	if err != nil {
		return types.Report{}, err
	}

	if o.interactive {
		if err := newREPL(s, os.Stdin, os.Stderr).run(ctx); err != nil {
			return types.Report{}, err
		}
	}

	report, err := s.Confirm(ctx, capital)
	if err != nil {
		return types.Report{}, err
	}
	if err := env.State.SaveSession(report, capital); err != nil {
		logger.Warn(ctx, "Failed to persist confirmed report", "error", err)
	}
	return report, nil
}

func loadTable(ctx context.Context, env *app.Env, o options) (*sheet.Table, string, error) {
	if o.broker {
		src, err := app.NewSource(ctx, env.Config)
		if err != nil {
			return nil, "", err
		}
		if src == nil {
			return nil, "", errors.New("broker.source is FILE; set ZERODHA, ALPACA or URL")
		}
		table, err := src.Fetch(ctx)
		return table, src.Name(), err
	}

	if o.file == "" {
		return nil, "", errors.New("one of -file, -broker or -resume is required")
	}
	data, err := os.ReadFile(o.file)
	if err != nil {
		return nil, "", err
	}
	table, err := sheet.Read(o.file, data)
	return table, filepath.Base(o.file), err
}

func writeReport(env *app.Env, report types.Report, format export.Format, save bool) error {
	if save {
		path, err := env.Reporter.Save(report, format, time.Now().In(env.Config.Location()))
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Report saved to", path)
		return nil
	}
	if format == export.FormatXLSX {
		return errors.New("xlsx output needs -save")
	}
	out, err := env.Reporter.Generate(report, format)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func advise(ctx context.Context, env *app.Env, report types.Report, o options) error {
	if !o.insights && o.ask == "" {
		return nil
	}
	csv, err := export.TradesCSV(report.Trades)
	if err != nil {
		return err
	}

	if o.insights {
		insights, err := env.Advisor.Insights(ctx, csv)
		if err != nil {
			return err
		}
		fmt.Println("\nInsights")
		if len(insights) == 0 {
			fmt.Println("  (none)")
		}
		for i, in := range insights {
			fmt.Printf("  %d. %s\n     %s\n     -> %s\n", i+1, in.Title, in.Evidence, in.Recommendation)
		}
	}
	if o.ask != "" {
		answer, err := env.Advisor.Ask(ctx, o.ask, csv)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n", answer)
	}
	return nil
}
