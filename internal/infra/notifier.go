package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// LogNotifier delivers soft block reminders as log entries. A desktop
// shell tails /api/logs to surface them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier writing to logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Remind logs one reminder for a soft-blocked app.
func (n *LogNotifier) Remind(entry domain.EffectiveBlockEntry, procs []domain.ProcessInfo) error {
	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	n.logger.Warn("focus reminder: blocked app is running",
		zap.String("app", entry.AppIdentity),
		zap.String("mode", string(entry.Mode)),
		zap.Ints("pids", pids))
	return nil
}

// Ensure LogNotifier implements domain.Notifier.
var _ domain.Notifier = (*LogNotifier)(nil)
