package core

// Logger is any service that can log.
// args are alternating key/value pairs; an error or a bare value is accepted too.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
	Sync() error
}
