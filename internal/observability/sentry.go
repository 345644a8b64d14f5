package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables error reporting. An empty DSN disables it.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// ReportAuthFailure records that a session could not be refreshed and the
// user was signed out. It is a no-op when Sentry is not initialised.
func ReportAuthFailure(reason string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("event", "auth_failure")
		scope.SetLevel(sentry.LevelWarning)
		sentry.CaptureMessage("session refresh failed: " + reason)
	})
}
