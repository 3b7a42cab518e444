package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"admithub/internal/contextutils"

	"go.uber.org/zap"
)

// ===============================
// RECOVERY CONFIGURATION
// ===============================

// RecoveryConfig holds configuration for panic recovery middleware
type RecoveryConfig struct {
	EnableStackTrace     bool `json:"enable_stack_trace"`
	StackTraceInResponse bool `json:"stack_trace_in_response"`
	MaxStackFrames       int  `json:"max_stack_frames"`
}

// DefaultRecoveryConfig returns production-ready recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		EnableStackTrace:     true,
		StackTraceInResponse: false,
		MaxStackFrames:       20,
	}
}

// StackFrame represents a single stack frame
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// ===============================
// RECOVERY MIDDLEWARE
// ===============================

// Recovery recovers from handler panics and responds with a masked 500
func Recovery(config *RecoveryConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := contextutils.GetRequestID(r.Context())

					fields := []zap.Field{
						zap.String("event", "panic_recovered"),
						zap.String("request_id", requestID),
						zap.Any("panic_error", err),
						zap.String("panic_type", fmt.Sprintf("%T", err)),
						zap.String("method", r.Method),
						zap.String("url", r.URL.String()),
						zap.String("remote_addr", getClientIP(r)),
						zap.Int("goroutines", runtime.NumGoroutine()),
					}

					if userID := contextutils.GetUserID(r.Context()); userID != 0 {
						fields = append(fields, zap.Int64("user_id", userID))
					}

					if config.EnableStackTrace {
						frames := captureStackTrace(config.MaxStackFrames)
						stackStrings := make([]string, len(frames))
						for i, frame := range frames {
							stackStrings[i] = fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line)
						}
						fields = append(fields, zap.Strings("stack_trace", stackStrings))
					}

					logger.Error("Panic recovered", fields...)

					writePanicResponse(w, requestID)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// captureStackTrace captures the stack trace above the recovery frames
func captureStackTrace(maxFrames int) []StackFrame {
	var frames []StackFrame

	pcs := make([]uintptr, maxFrames+3)
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return frames
	}

	callersFrames := runtime.CallersFrames(pcs[:n])
	for len(frames) < maxFrames {
		frame, more := callersFrames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			frames = append(frames, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}

	return frames
}

func writePanicResponse(w http.ResponseWriter, requestID string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusInternalServerError)

	fmt.Fprintf(w, `{"success":false,"error":{"type":"INTERNAL_ERROR","message":"An internal error occurred"},"request_id":"%s","timestamp":%d}`,
		requestID, time.Now().Unix())
}
