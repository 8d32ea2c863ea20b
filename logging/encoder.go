package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CusTimeEncoder creates a time encoder that adds the prefix and formats the time.
func CusTimeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(config.Prefix + t.Format(config.TimeFormat))
	}
}

// GetEncoder returns a zapcore.Encoder based on the config format.
func GetEncoder(config Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    config.ZapEncodeLevel(),
		EncodeTime:     CusTimeEncoder(config),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// exactLevel enables only the given level, so each level gets its own file.
func exactLevel(level zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool {
		return l == level
	}
}

// getZapCores builds one core per level >= config.Level.
func getZapCores(config Config) []zapcore.Core {
	encoder := GetEncoder(config)
	cores := make([]zapcore.Core, 0, 8)

	if config.Director != "" {
		for level := config.TransportLevel(); level <= zapcore.FatalLevel; level++ {
			writer := getWriteSyncer(config, level.String())
			cores = append(cores, zapcore.NewCore(encoder, writer, exactLevel(level)))
		}
	}

	if config.LogInTerminal {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(stderr)), config.TransportLevel()))
	}

	return cores
}
