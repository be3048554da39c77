package event

import (
	"context"
	"log/slog"
)

// SlogNotifier emits the per-record upsert signals as structured log events
// for the audit pipeline.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) UpsertSucceeded(ctx context.Context, matchValue string) {
	n.logger.InfoContext(ctx, "user upsert succeeded", slog.String("match_value", matchValue))
}

func (n *SlogNotifier) UpsertFailed(ctx context.Context, matchValue, reason string) {
	n.logger.WarnContext(ctx, "user upsert failed",
		slog.String("match_value", matchValue),
		slog.String("reason", reason),
	)
}
