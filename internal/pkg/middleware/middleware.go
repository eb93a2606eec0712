// Package middleware provides the HTTP middleware chain for the audiowave API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
)

// RequestIDHeader is the header name for request IDs. Its value doubles as
// the pipeline run id.
const RequestIDHeader = "X-Request-ID"

// ErrorBody is the error payload of a failure envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope is the body written for every failed request.
type ErrorEnvelope struct {
	Message string     `json:"message"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	size        int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Flush lets streaming handlers push partial bodies through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestID adds a unique request ID to each request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logger.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StatusObserver is notified once per request with the final status code.
type StatusObserver func(method, path string, status int, elapsed time.Duration)

// Logging logs HTTP requests with structured logging. Observers, when given,
// receive the outcome of every request (the metrics layer hooks in here).
func Logging(log *logger.Logger, observers ...StatusObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)
			reqLog := log.FromContext(r.Context())

			reqLog.Debug("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			logFn := reqLog.Info
			if wrapped.status >= 500 {
				logFn = reqLog.Error
			} else if wrapped.status >= 400 {
				logFn = reqLog.Warn
			}

			logFn("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"size", wrapped.size,
				"duration_ms", duration.Milliseconds(),
			)

			for _, obs := range observers {
				obs(r.Method, r.URL.Path, wrapped.status, duration)
			}
		})
	}
}

// Recovery recovers from panics and logs them.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.FromContext(r.Context()).Error("panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					WriteError(w, http.StatusInternalServerError, errors.CodeInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds the request context. Handlers that run the pipeline observe
// the deadline through ctx and fail with their own error; this middleware
// only answers when the handler never wrote anything.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if duration <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			if !wrapped.wroteHeader && ctx.Err() == context.DeadlineExceeded {
				WriteError(w, http.StatusGatewayTimeout, errors.CodeTimeout, "request timeout")
			}
		})
	}
}

// ErrorHandlerFunc is a handler that returns its failure instead of writing it.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request) error

// WrapHandler adapts fn, mapping its error through the coded error status.
func WrapHandler(log *logger.Logger, fn ErrorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			HandleError(w, r, log, err)
		}
	}
}

// WrapHandlerStatus adapts fn like WrapHandler but answers every failure
// with the same status.
func WrapHandlerStatus(log *logger.Logger, status int, fn ErrorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			HandleErrorStatus(w, r, log, err, status)
		}
	}
}

// HandleError logs err and writes the failure envelope using its coded status.
func HandleError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	HandleErrorStatus(w, r, log, err, errors.GetHTTPStatus(err))
}

// HandleErrorStatus logs err and writes the failure envelope with status.
func HandleErrorStatus(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error, status int) {
	reqLog := log.FromContext(r.Context())
	code := errors.GetCode(err)

	logFields := []any{
		"error", err.Error(),
		"code", string(code),
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
	}
	for k, v := range errors.GetFields(err) {
		logFields = append(logFields, k, v)
	}

	if status >= 500 {
		var coded *errors.Error
		if errors.As(err, &coded) && len(coded.Stack) > 0 {
			logFields = append(logFields, "stack", coded.StackTrace())
		}
		reqLog.Error("request failed", logFields...)
	} else {
		reqLog.Warn("request error", logFields...)
	}

	WriteError(w, status, code, errors.Message(err))
}

// WriteError writes {message:"Error", error:{code, message}}.
func WriteError(w http.ResponseWriter, status int, code errors.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Message: "Error",
		Error:   &ErrorBody{Code: string(code), Message: message},
	})
}

// MethodNotAllowed answers 405 with {message:"Method not allowed"}.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{Message: "Method not allowed"})
}
