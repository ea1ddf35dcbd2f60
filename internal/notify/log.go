package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogNotifier is the dry-run channel: it logs each summary instead of
// posting it and answers with a synthetic post ID, so the rest of the run
// behaves exactly as it would against a real channel.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier builds a dry-run notifier. A nil logger falls back to the
// process default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Post(ctx context.Context, text string) (string, error) {
	id := "log-" + uuid.NewString()
	n.logger.InfoContext(ctx, "notifier dry run", "post_id", id, "text", text)
	return id, nil
}
