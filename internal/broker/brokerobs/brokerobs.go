package brokerobs

import (
	"context"

	"trade-report/internal/interfaces"
	"trade-report/internal/logger"
	"trade-report/internal/sheet"
	"trade-report/internal/trace"
)

// observableSource wraps a TableSource with logging and tracing
type observableSource struct {
	source interfaces.TableSource
}

var _ interfaces.TableSource = (*observableSource)(nil)

// Wrap wraps a source with observability middleware
func Wrap(source interfaces.TableSource) interfaces.TableSource {
	return &observableSource{source: source}
}

func (o *observableSource) Name() string {
	return o.source.Name()
}

// Fetch fetches the tradebook with observability
func (o *observableSource) Fetch(ctx context.Context) (*sheet.Table, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Fetch")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching tradebook", "source", o.source.Name())

	table, err := o.source.Fetch(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch tradebook", err, "source", o.source.Name())
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Tradebook fetched", "source", o.source.Name(), "rows", len(table.Rows))
	return table, nil
}
