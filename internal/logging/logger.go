// file: internal/logging/logger.go
// version: 1.0.0
// guid: 09e40364-01a6-47d3-a43f-53133fad0ea9

package logging

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var minLevel = InfoLevel

// SetLevel sets the global minimum level for debug output
func SetLevel(level LogLevel) {
	minLevel = level
}

// ParseLevel maps a configured level name to LogLevel, defaulting to info
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// ServiceLogger provides logging for one resolution or service operation
type ServiceLogger struct {
	serviceName string
	requestID   string
}

// NewServiceLogger creates a new service logger
func NewServiceLogger(serviceName, requestID string) *ServiceLogger {
	return &ServiceLogger{
		serviceName: serviceName,
		requestID:   requestID,
	}
}

// RequestID returns the id threaded through this logger
func (sl *ServiceLogger) RequestID() string {
	return sl.requestID
}

// LogOperation logs the execution of a service operation
func (sl *ServiceLogger) LogOperation(operation string, details map[string]any) {
	if minLevel > InfoLevel {
		return
	}
	log.Printf("[INFO] %s.%s%s [request-id: %s]",
		sl.serviceName, operation, formatDetails(details), sl.requestID)
}

// LogWarning logs a recoverable problem
func (sl *ServiceLogger) LogWarning(operation string, message string) {
	if minLevel > WarnLevel {
		return
	}
	log.Printf("[WARN] %s.%s: %s [request-id: %s]",
		sl.serviceName, operation, message, sl.requestID)
}

// LogError logs an error from the service
func (sl *ServiceLogger) LogError(operation string, err error) {
	log.Printf("[ERROR] %s.%s: %v [request-id: %s]",
		sl.serviceName, operation, err, sl.requestID)
}

// LogDebug logs a debug message from the service
func (sl *ServiceLogger) LogDebug(operation string, message string) {
	if minLevel > DebugLevel {
		return
	}
	log.Printf("[DEBUG] %s.%s: %s [request-id: %s]",
		sl.serviceName, operation, message, sl.requestID)
}

// LogExecutionTime logs how long name took once the returned func is called:
//
//	defer logger.LogExecutionTime("retrieve")()
func (sl *ServiceLogger) LogExecutionTime(name string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		if minLevel <= DebugLevel {
			log.Printf("[DEBUG] %s.%s took %v [request-id: %s]", sl.serviceName, name, d, sl.requestID)
		}
		return d
	}
}

// RequestLogger provides request-level logging
type RequestLogger struct {
	requestID string
	clientIP  string
	userAgent string
	method    string
	path      string
	startTime time.Time
}

// NewRequestLogger creates a new request logger
func NewRequestLogger(requestID, clientIP, userAgent, method, path string) *RequestLogger {
	return &RequestLogger{
		requestID: requestID,
		clientIP:  clientIP,
		userAgent: userAgent,
		method:    method,
		path:      path,
		startTime: time.Now(),
	}
}

// LogRequest logs the received request
func (rl *RequestLogger) LogRequest() {
	log.Printf("[REQUEST] %s %s from %s [request-id: %s] [agent: %s]",
		rl.method, rl.path, rl.clientIP, rl.requestID, rl.userAgent)
}

// LogResponse logs the response sent
func (rl *RequestLogger) LogResponse(statusCode int, responseSize int) {
	duration := time.Since(rl.startTime)
	log.Printf("[RESPONSE] %s %s -> %d (%d bytes) in %v [request-id: %s]",
		rl.method, rl.path, statusCode, responseSize, duration, rl.requestID)
}

// LogMetric logs a performance metric
func LogMetric(name string, value float64, unit string) {
	log.Printf("[METRIC] %s: %.2f %s", name, value, unit)
}

// LogCacheHit logs a result cache hit
func LogCacheHit(serviceName string, key string) {
	log.Printf("[CACHE-HIT] %s: %s", serviceName, key)
}

// LogCacheMiss logs a result cache miss
func LogCacheMiss(serviceName string, key string) {
	if minLevel > DebugLevel {
		return
	}
	log.Printf("[CACHE-MISS] %s: %s", serviceName, key)
}

func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return " " + strings.Join(parts, " ")
}
