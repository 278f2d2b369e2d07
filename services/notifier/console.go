package notifiersvc

import (
	"fmt"

	"github.com/trezcool/darasa/core"
)

type consoleNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*consoleNotifier)(nil)

// NewConsoleNotifier surfaces notifications on the app log; the DEV stand-in
// for the dashboard's toast area.
func NewConsoleNotifier(logger core.Logger) core.Notifier {
	return &consoleNotifier{logger: logger}
}

func (svc *consoleNotifier) Notify(n core.Notification) {
	msg := fmt.Sprintf("[%s] %s: %s", n.Kind, n.Title, n.Message)
	switch n.Kind {
	case core.NotifyError:
		svc.logger.Error(msg)
	case core.NotifyWarning:
		svc.logger.Warn(msg)
	default:
		svc.logger.Info(msg)
	}
}
