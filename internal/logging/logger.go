package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the common structured-logging surface. It is implemented by the
// plain slog fallback and by the OTLP-backed logger.
type Logger interface {
	WithComponent(componentName string) *slog.Logger
	WithOperation(operationName string) *slog.Logger
	WithRequestID(requestID string) *slog.Logger
	WithRecordID(recordID string) *slog.Logger
	WithJobID(jobID string) *slog.Logger
	WithModelVersion(version string) *slog.Logger
	WithError(err error) *slog.Logger
	LogStartup(serviceName string, version string, port int)
	LogShutdown(serviceName string, reason string)
	LogPredictionScored(recordID string, probability float64, riskLevel string, durationMS int64)
	LogBatchJob(jobID string, total int, succeeded int, failed int, durationMS int64)
	LogCacheOperation(operation string, key string, hit bool, durationMS int64)
	LogAPIRequest(method string, path string, statusCode int, durationMS int64)
	Logger() *slog.Logger
}

// StandardLogger provides a standardized logging interface.
type StandardLogger struct {
	logger Logger
}

// NewStandardLogger creates a plain slog-backed logger, used until telemetry
// is initialized or when OTLP is disabled.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	_ = environment

	return &StandardLogger{
		logger: &fallbackLogger{logger: logger},
	}
}

// NewStandardOTLPLogger creates a standardized logger with OTLP export,
// falling back to plain slog when the exporter cannot be set up.
func NewStandardOTLPLogger(config OTLPConfig) *StandardLogger {
	otlpLogger, err := NewOTLPLogger(config)
	if err != nil {
		basic := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: getSlogLevel(config.LogLevel),
		}))
		return &StandardLogger{logger: &fallbackLogger{logger: basic}}
	}
	return &StandardLogger{logger: &otlpWrapper{logger: otlpLogger}}
}

// SetLogger sets the underlying logger implementation.
func (l *StandardLogger) SetLogger(logger Logger) {
	l.logger = logger
}

func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.WithComponent(componentName)
}

func (l *StandardLogger) WithOperation(operationName string) *slog.Logger {
	return l.logger.WithOperation(operationName)
}

func (l *StandardLogger) WithRequestID(requestID string) *slog.Logger {
	return l.logger.WithRequestID(requestID)
}

func (l *StandardLogger) WithRecordID(recordID string) *slog.Logger {
	return l.logger.WithRecordID(recordID)
}

func (l *StandardLogger) WithJobID(jobID string) *slog.Logger {
	return l.logger.WithJobID(jobID)
}

func (l *StandardLogger) WithModelVersion(version string) *slog.Logger {
	return l.logger.WithModelVersion(version)
}

func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.WithError(err)
}

func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.LogStartup(serviceName, version, port)
}

func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.LogShutdown(serviceName, reason)
}

func (l *StandardLogger) LogPredictionScored(recordID string, probability float64, riskLevel string, durationMS int64) {
	l.logger.LogPredictionScored(recordID, probability, riskLevel, durationMS)
}

func (l *StandardLogger) LogBatchJob(jobID string, total int, succeeded int, failed int, durationMS int64) {
	l.logger.LogBatchJob(jobID, total, succeeded, failed, durationMS)
}

func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, durationMS int64) {
	l.logger.LogCacheOperation(operation, key, hit, durationMS)
}

func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, durationMS int64) {
	l.logger.LogAPIRequest(method, path, statusCode, durationMS)
}

// Logger returns the underlying *slog.Logger.
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger.Logger()
}

// getSlogLevel converts string level to slog.Level.
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogrusLevel converts string level to logrus.Level.
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// fallbackLogger uses slog directly, without OTLP export.
type fallbackLogger struct {
	logger *slog.Logger
}

func (f *fallbackLogger) WithComponent(componentName string) *slog.Logger {
	return f.logger.With("component", componentName)
}

func (f *fallbackLogger) WithOperation(operationName string) *slog.Logger {
	return f.logger.With("operation", operationName)
}

func (f *fallbackLogger) WithRequestID(requestID string) *slog.Logger {
	return f.logger.With("request_id", requestID)
}

func (f *fallbackLogger) WithRecordID(recordID string) *slog.Logger {
	return f.logger.With("record_id", recordID)
}

func (f *fallbackLogger) WithJobID(jobID string) *slog.Logger {
	return f.logger.With("job_id", jobID)
}

func (f *fallbackLogger) WithModelVersion(version string) *slog.Logger {
	return f.logger.With("model_version", version)
}

func (f *fallbackLogger) WithError(err error) *slog.Logger {
	return f.logger.With("error", err.Error())
}

func (f *fallbackLogger) LogStartup(serviceName string, version string, port int) {
	f.logger.Info("Application startup",
		"service", serviceName,
		"version", version,
		"port", port,
		"event", "startup",
	)
}

func (f *fallbackLogger) LogShutdown(serviceName string, reason string) {
	f.logger.Info("Application shutdown",
		"service", serviceName,
		"reason", reason,
		"event", "shutdown",
	)
}

func (f *fallbackLogger) LogPredictionScored(recordID string, probability float64, riskLevel string, durationMS int64) {
	f.logger.Info("Prediction scored",
		"record_id", recordID,
		"probability", probability,
		"risk_level", riskLevel,
		"duration_ms", durationMS,
		"event", "prediction",
	)
}

func (f *fallbackLogger) LogBatchJob(jobID string, total int, succeeded int, failed int, durationMS int64) {
	f.logger.Info("Batch job finished",
		"job_id", jobID,
		"total", total,
		"succeeded", succeeded,
		"failed", failed,
		"duration_ms", durationMS,
		"event", "batch",
	)
}

func (f *fallbackLogger) LogCacheOperation(operation string, key string, hit bool, durationMS int64) {
	f.logger.Info("Cache operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"duration_ms", durationMS,
		"event", "cache",
	)
}

func (f *fallbackLogger) LogAPIRequest(method string, path string, statusCode int, durationMS int64) {
	f.logger.Info("API request",
		"method", method,
		"path", path,
		"status", statusCode,
		"duration_ms", durationMS,
		"event", "api",
	)
}

func (f *fallbackLogger) Logger() *slog.Logger {
	return f.logger
}

// otlpWrapper adapts OTLPLogger to the Logger interface.
type otlpWrapper struct {
	logger *OTLPLogger
}

func (o *otlpWrapper) WithComponent(componentName string) *slog.Logger {
	return o.logger.logger.With("component", componentName)
}

func (o *otlpWrapper) WithOperation(operationName string) *slog.Logger {
	return o.logger.logger.With("operation", operationName)
}

func (o *otlpWrapper) WithRequestID(requestID string) *slog.Logger {
	return o.logger.logger.With("request_id", requestID)
}

func (o *otlpWrapper) WithRecordID(recordID string) *slog.Logger {
	return o.logger.logger.With("record_id", recordID)
}

func (o *otlpWrapper) WithJobID(jobID string) *slog.Logger {
	return o.logger.logger.With("job_id", jobID)
}

func (o *otlpWrapper) WithModelVersion(version string) *slog.Logger {
	return o.logger.logger.With("model_version", version)
}

func (o *otlpWrapper) WithError(err error) *slog.Logger {
	return o.logger.logger.With("error", err.Error())
}

func (o *otlpWrapper) LogStartup(serviceName string, version string, port int) {
	o.logger.logger.Info("Application startup",
		"service", serviceName,
		"version", version,
		"port", port,
		"event", "startup",
	)
}

func (o *otlpWrapper) LogShutdown(serviceName string, reason string) {
	o.logger.logger.Info("Application shutdown",
		"service", serviceName,
		"reason", reason,
		"event", "shutdown",
	)
}

func (o *otlpWrapper) LogPredictionScored(recordID string, probability float64, riskLevel string, durationMS int64) {
	o.logger.logger.Info("Prediction scored",
		"record_id", recordID,
		"probability", probability,
		"risk_level", riskLevel,
		"duration_ms", durationMS,
		"event", "prediction",
	)
}

func (o *otlpWrapper) LogBatchJob(jobID string, total int, succeeded int, failed int, durationMS int64) {
	o.logger.logger.Info("Batch job finished",
		"job_id", jobID,
		"total", total,
		"succeeded", succeeded,
		"failed", failed,
		"duration_ms", durationMS,
		"event", "batch",
	)
}

func (o *otlpWrapper) LogCacheOperation(operation string, key string, hit bool, durationMS int64) {
	o.logger.logger.Info("Cache operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"duration_ms", durationMS,
		"event", "cache",
	)
}

func (o *otlpWrapper) LogAPIRequest(method string, path string, statusCode int, durationMS int64) {
	o.logger.logger.Info("API request",
		"method", method,
		"path", path,
		"status", statusCode,
		"duration_ms", durationMS,
		"event", "api",
	)
}

func (o *otlpWrapper) Logger() *slog.Logger {
	return o.logger.logger
}
