package gate

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog records gate events to the append-only access log.
type AccessLog interface {
	Record(ip, event, hash string)
}

// fileAccessLog writes "date | ip | type | hash" lines through zap.
type fileAccessLog struct {
	logger *zap.Logger
}

// NewFileAccessLog opens (or creates) path for appending. An empty path
// returns a log that discards everything.
func NewFileAccessLog(path string) (AccessLog, func() error, error) {
	if path == "" {
		return nopAccessLog{}, func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("opening access log %s: %w", path, err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		ConsoleSeparator: " | ",
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel)
	logger := zap.New(core)

	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return &fileAccessLog{logger: logger}, closeFn, nil
}

// Record appends one line.
func (l *fileAccessLog) Record(ip, event, hash string) {
	l.logger.Info(ip + " | " + event + " | " + hash)
}

type nopAccessLog struct{}

func (nopAccessLog) Record(ip, event, hash string) {}
