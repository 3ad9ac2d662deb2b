package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
)

// RollbarLogger reports to Rollbar and mirrors every entry on a std logger.
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
	rollbar.SetCustom(map[string]interface{}{"app": conf.AppName})
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry splits args into what rollbar takes (an error and extras) and the person they concern.
// The person's role is reported as an extra.
func entry(msg string, args []interface{}) (rbArgs []interface{}, person *core.Person) {
	extras := make(map[string]interface{})
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Person:
			if person == nil {
				p := a
				person = &p
			}
		case map[string]interface{}:
			for k, v := range a {
				extras[k] = v
			}
		default:
			rbArgs = append(rbArgs, arg)
		}
	}
	if person != nil && person.Role != "" {
		extras["role"] = person.Role
	}
	if len(extras) > 0 {
		rbArgs = append(rbArgs, extras)
	}
	return rbArgs, person
}

func (l *RollbarLogger) log(report func(...interface{}), level, msg string, args []interface{}) {
	rbArgs, person := entry(msg, args)
	if person != nil {
		rollbar.SetPerson(person.ID, person.Name, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	report(rbArgs...)

	_ = l.std.Output(3, level+": "+msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			l.std.Printf("%+v\n", a)
		case core.Person:
			l.std.Printf("person: %s <%s> %s\n", a.ID, a.Email, a.Role)
		}
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(rollbar.Debug, "DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.Info, "INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.Warning, "WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.Error, "ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.Critical, "FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
