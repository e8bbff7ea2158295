package logsvc

import (
	"log"
	"os"

	"github.com/shulehub/shule/core"
)

// StdLogger logs to a standard library logger only; used in tests and the
// admin CLI where rollbar shipping is unwanted.
type StdLogger struct {
	std *log.Logger
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

func (l StdLogger) output(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		l.std.Printf("%+v", arg)
	}
}

func (l StdLogger) Debug(msg string, args ...interface{}) { l.output("DEBUG", msg, args) }
func (l StdLogger) Info(msg string, args ...interface{})  { l.output("INFO", msg, args) }
func (l StdLogger) Warn(msg string, args ...interface{})  { l.output("WARN", msg, args) }
func (l StdLogger) Error(msg string, args ...interface{}) { l.output("ERROR", msg, args) }

func (l StdLogger) Fatal(msg string, args ...interface{}) {
	l.output("FATAL", msg, args)
	os.Exit(1)
}
