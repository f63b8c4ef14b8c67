package core

// Logger is implemented by the app's logging services (console, Rollbar).
// Extra args are attached to the log entry; a user.User arg identifies the
// acting person where the backend supports it.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
