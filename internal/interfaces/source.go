package interfaces

import (
	"context"

	"trade-report/internal/sheet"
)

// TableSource fetches executed fills from a remote account as a table the
// column mapper understands.
type TableSource interface {
	Name() string
	Fetch(ctx context.Context) (*sheet.Table, error)
}
