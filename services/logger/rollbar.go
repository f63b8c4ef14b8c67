package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

// RollbarLogger reports to rollbar and echoes everything to a standard
// logger for local visibility.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

// tagPerson attaches the first user.User found in args to the rollbar
// occurrence and strips it from the reported args. Any other arg type is
// passed through as-is.
func (l RollbarLogger) tagPerson(msg string, args []interface{}) []interface{} {
	out := append(make([]interface{}, 0, len(args)+1), msg)
	var tagged bool
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if !ok {
			out = append(out, arg)
			continue
		}
		if !tagged {
			rollbar.SetPerson(usr.ID, usr.FullName, usr.Email)
			tagged = true
		}
	}
	if !tagged {
		rollbar.ClearPerson()
	}
	return out
}

func (l RollbarLogger) echo(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.tagPerson(msg, args)...)
	l.echo(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.tagPerson(msg, args)...)
	l.echo(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.tagPerson(msg, args)...)
	l.echo(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.tagPerson(msg, args)...)
	l.echo(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.tagPerson(msg, args)...)
	l.echo(msg, args)
	l.std.Fatal(msg)
}
