package interfaces

import (
	"context"

	"trade-report/internal/types"
)

// Journal records manual corrections made during validation.
type Journal interface {
	Append(ctx context.Context, c types.Correction) error
}
