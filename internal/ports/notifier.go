package ports

import "github.com/kefis/kefis/internal/obs"

// Notifier surfaces operator-facing events (run failures, scheduler
// disagreements) to whatever channel the deployment wires up. The
// default just logs; a Slack/email/webhook Notifier can be swapped in
// without touching the monitored runner.
type Notifier interface {
	Notify(severity, message string, fields map[string]string)
}

// LogNotifier routes notifications through the structured logger.
type LogNotifier struct{}

func (LogNotifier) Notify(severity, message string, fields map[string]string) {
	e := obs.L.Warn().Str("severity", severity)
	for k, v := range fields {
		e = e.Str(k, v)
	}
	e.Msg(message)
}
