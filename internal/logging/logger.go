package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except errors.
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages.
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information.
	LogLevelVerbose LogLevel = "verbose"
)

// Logger writes leveled log lines to the console and, when a session log
// file is configured, a parallel plain-text copy of every line.
type Logger struct {
	logger  *logrus.Logger
	level   LogLevel
	logFile *os.File
}

// Config holds logger configuration.
type Config struct {
	Level LogLevel
	// Output defaults to stderr so reports on stdout stay clean.
	Output io.Writer
	// LogFile, when set, receives a plain-text copy of the session.
	LogFile string
}

// New creates a logger with the specified configuration.
func New(cfg Config) (*Logger, error) {
	logger := logrus.New()

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	switch cfg.Level {
	case LogLevelQuiet:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelVerbose:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	l := &Logger{logger: logger, level: cfg.Level}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
		}
		l.logFile = file
		logger.SetOutput(io.MultiWriter(out, &plainWriter{file: file}))
	} else {
		logger.SetOutput(out)
	}

	return l, nil
}

// NewDefault creates a logger with default configuration. It never fails
// because no session file is opened.
func NewDefault() *Logger {
	l, _ := New(Config{Level: LogLevelNormal})
	return l
}

// plainWriter strips nothing; logrus text output is already plain when the
// writer is not a terminal, so the file copy carries no color codes.
type plainWriter struct {
	file *os.File
}

func (w *plainWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// Close releases the session log file, if any.
func (l *Logger) Close() error {
	if l.logFile == nil {
		return nil
	}
	return l.logFile.Close()
}

// WithFields returns an entry with additional structured fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns an entry with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

func (l *Logger) Info(msg string)                            { l.logger.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logger.Infof(format, args...) }
func (l *Logger) Debug(msg string)                           { l.logger.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.logger.Debugf(format, args...) }
func (l *Logger) Warn(msg string)                            { l.logger.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logger.Warnf(format, args...) }
func (l *Logger) Error(msg string)                           { l.logger.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logger.Errorf(format, args...) }

// GetLevel returns the current log level.
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// LogExternalCall logs an external process invocation with its outcome.
func (l *Logger) LogExternalCall(command string, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "external_call",
		"command":   command,
		"duration":  duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("External call failed")
		return
	}
	l.logger.WithFields(fields).Debug("External call completed")
}

// LogArtifact logs a produced backup artifact.
func (l *Logger) LogArtifact(kind, path string, size int64) {
	l.logger.WithFields(logrus.Fields{
		"operation": "artifact_created",
		"kind":      kind,
		"path":      path,
		"size":      size,
	}).Info("Artifact created")
}

// SessionLogName returns the per-invocation log file name for a timestamp key.
func SessionLogName(timestamp string) string {
	return "backup_" + timestamp + ".log"
}
