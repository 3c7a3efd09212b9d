package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "produce-market"

// New returns the process logger. Production writes JSON at info level,
// any other environment writes colored console output at debug level.
// Entries go to stdout, zap's internal errors to stderr.
func New(env string) (*zap.Logger, error) {
	if env != "production" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		log, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
		if err != nil {
			return nil, err
		}
		return log.With(zap.String("service", serviceName), zap.String("env", env)), nil
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(jsonEncoding()),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)
	log := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)
	return log.With(zap.String("service", serviceName)), nil
}

// NewJSON writes production-shaped entries to w at or above level.
func NewJSON(w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoding()), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

func jsonEncoding() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	return enc
}
