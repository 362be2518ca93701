package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process wide logger. It is a no-op until InitLogger runs, so
// packages and tests can log unconditionally.
var Logger = zap.NewNop().Sugar()

// InitLogger writes info, error and debug lines to daily files under logsDir.
// When console is true, info and above are mirrored to stdout as well.
func InitLogger(logsDir string, console bool) error {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	open := func(kind string) (zapcore.WriteSyncer, error) {
		f, err := os.OpenFile(
			filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", kind, timestamp)),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0644,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s log file: %v", kind, err)
		}
		return zapcore.AddSync(f), nil
	}

	infoFile, err := open("info")
	if err != nil {
		return err
	}
	errorFile, err := open("error")
	if err != nil {
		return err
	}
	debugFile, err := open("debug")
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	infoLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l == zapcore.InfoLevel || l == zapcore.WarnLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	debugLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel })

	cores := []zapcore.Core{
		zapcore.NewCore(enc, infoFile, infoLevel),
		zapcore.NewCore(enc, errorFile, errorLevel),
		zapcore.NewCore(enc, debugFile, debugLevel),
	}
	if console {
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zapcore.InfoLevel))
	}

	Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

// SyncLogger flushes buffered entries.
func SyncLogger() {
	_ = Logger.Sync()
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	Logger.Infof(format, v...)
}

// LogWarn logs a recoverable problem
func LogWarn(format string, v ...interface{}) {
	Logger.Warnf(format, v...)
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	Logger.Errorf(format, v...)
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	Logger.Debugf(format, v...)
}

// LogRequest logs HTTP request details
func LogRequest(requestID, method, path, ip string, status int, duration time.Duration) {
	Logger.Infow("Request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", ip,
		"status", status,
		"duration", duration,
	)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	Logger.Errorf("Error: %v\nStack Trace:\n%s", err, stack)
}
