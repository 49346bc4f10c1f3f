package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/rekodi/core"
)

// ConsoleLogger writes structured logs to stderr.
type ConsoleLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger returns a human-readable debug logger in debug mode, a JSON info logger otherwise.
func NewConsoleLogger(debug bool) (*ConsoleLogger, error) {
	var conf zap.Config
	if debug {
		conf = zap.NewDevelopmentConfig()
	} else {
		conf = zap.NewProductionConfig()
		conf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	conf.DisableStacktrace = !debug
	zl, err := conf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ConsoleLogger{zl: zl}, nil
}

// NewNopLogger discards everything.
func NewNopLogger() *ConsoleLogger {
	return &ConsoleLogger{zl: zap.NewNop()}
}

// fields turns key/value pairs into zap fields. Errors may be passed without a key.
func fields(args []interface{}) []zap.Field {
	flds := make([]zap.Field, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case zap.Field:
			flds = append(flds, arg)
		case error:
			flds = append(flds, zap.Error(arg))
		case string:
			if i+1 < len(args) {
				flds = append(flds, zap.Any(arg, args[i+1]))
				i++
			} else {
				flds = append(flds, zap.String("arg", arg))
			}
		default:
			flds = append(flds, zap.Any("arg", arg))
		}
	}
	return flds
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.zl.Debug(msg, fields(args)...) }

func (l *ConsoleLogger) Info(msg string, args ...interface{}) { l.zl.Info(msg, fields(args)...) }

func (l *ConsoleLogger) Warn(msg string, args ...interface{}) { l.zl.Warn(msg, fields(args)...) }

func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.zl.Error(msg, fields(args)...) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) { l.zl.Fatal(msg, fields(args)...) }

func (l *ConsoleLogger) Sync() error {
	// syncing a terminal stderr fails on some platforms; nothing is lost
	_ = l.zl.Sync()
	return nil
}
