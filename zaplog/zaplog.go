// Package zaplog plugs a zap logger into the Logger interface of the
// zmsg framework, with log file rotation handled by lumberjack.
package zaplog

import (
	"os"
	"time"

	"github.com/Zereker/zmsg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFormat = time.DateTime

// Log levels, re-exported so callers do not need to import zapcore.
const (
	DEBUG   = zapcore.DebugLevel
	INFO    = zapcore.InfoLevel
	WARNING = zapcore.WarnLevel
	ERROR   = zapcore.ErrorLevel
)

var defaultConfig = &Config{
	Filename:   "runtime",
	Level:      WARNING,
	Rotation:   3,
	Retention:  7,
	MaxBackups: 10,
	Compress:   true,
}

// Config describes one log output.
type Config struct {
	Filename   string        `json:"filename,omitempty"` // file name under ./logs, default runtime
	Filepath   string        `json:"filepath,omitempty"` // full path, overrides Filename when set
	Level      zapcore.Level `json:"level,omitempty"`    // minimum level, default warning
	Rotation   int           `json:"rotation"`           // max size of a single file, MB
	Retention  int           `json:"retention"`          // max age of a file, days
	MaxBackups int           `json:"max_backups"`        // rotated files to keep
	Compress   bool          `json:"compress"`           // gzip rotated files
}

// Logger wraps a zap SugaredLogger behind the framework's Logger
// interface. Args are alternating key/value pairs, as with slog.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ zmsg.Logger = (*Logger)(nil)

func (l *Logger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// Sync flushes any buffered entries. Call it before the process exits.
func (l *Logger) Sync() error { return l.sugar.Sync() }

// New creates a logger writing to a rotated file and stdout. With no
// config the defaults are used: ./logs/runtime.log at warning level.
func New(c ...*Config) *Logger {
	conf := defaultConfig
	if len(c) > 0 && c[0] != nil {
		conf = c[0]
	}
	return &Logger{sugar: newZapLogger(conf).Sugar()}
}

// NewConsole creates a stdout-only logger with colored console output,
// at debug level unless another level is given.
func NewConsole(level ...zapcore.Level) *Logger {
	zapLevel := zap.NewAtomicLevelAt(DEBUG)
	if len(level) > 0 {
		zapLevel = zap.NewAtomicLevelAt(level[0])
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)),
		zapLevel,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{sugar: logger.Sugar()}
}

func newZapLogger(conf *Config) *zap.Logger {
	zapLevel := zap.NewAtomicLevelAt(conf.Level)

	filepath := "./logs/" + conf.Filename + ".log"
	if conf.Filepath != "" {
		filepath = conf.Filepath
	}

	fileWriteSyncer := zapcore.AddSync(
		&lumberjack.Logger{
			Filename:   filepath,
			MaxSize:    conf.Rotation,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.Retention,
			Compress:   conf.Compress,
		},
	)

	var core zapcore.Core
	if conf.Level < WARNING {
		// Development output: plain text with colored levels.
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.NewMultiWriteSyncer(fileWriteSyncer, zapcore.AddSync(os.Stdout)),
			zapLevel,
		)
	} else {
		// Production output: one JSON document per entry.
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)

		core = zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.NewMultiWriteSyncer(fileWriteSyncer, zapcore.AddSync(os.Stdout)),
			zapLevel,
		)
	}

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}
