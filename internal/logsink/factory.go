package logsink

import (
	"context"
	"strings"
)

// New creates a postgres-backed sink when databaseURL is set, otherwise an
// in-memory sink for local/dev use.
func New(ctx context.Context, databaseURL string) (Sink, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemorySink(), nil
	}
	return NewPostgresSink(ctx, databaseURL)
}
