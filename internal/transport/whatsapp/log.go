package whatsapp

import (
	waLog "go.mau.fi/whatsmeow/util/log"

	logx "wabroker/pkg/logx"
)

// waLogger adapts logx to the whatsmeow logger interface.
type waLogger struct {
	log logx.Logger
}

var _ waLog.Logger = waLogger{}

func newWALogger(log logx.Logger) waLog.Logger { return waLogger{log: log} }

func (l waLogger) Warnf(msg string, args ...interface{})  { l.log.Logf(logx.LevelWarn, msg, args...) }
func (l waLogger) Errorf(msg string, args ...interface{}) { l.log.Logf(logx.LevelError, msg, args...) }
func (l waLogger) Infof(msg string, args ...interface{})  { l.log.Logf(logx.LevelInfo, msg, args...) }

// Debugf maps to trace: whatsmeow debug output is per-frame and very chatty.
func (l waLogger) Debugf(msg string, args ...interface{}) { l.log.Logf(logx.LevelTrace, msg, args...) }

func (l waLogger) Sub(module string) waLog.Logger {
	return waLogger{log: l.log.With(logx.String("module", module))}
}
