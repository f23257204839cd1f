package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Proton-105/cuteforcute-bot/pkg/logger"
)

// responseMeter remembers what the handler wrote.
type responseMeter struct {
	http.ResponseWriter
	status  int
	written int
}

func (m *responseMeter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.written += n
	return n, err
}

// RequestLog tags each request with a correlation id, reusing an incoming X-Request-ID, and
// logs it once served. Successful hits on quietPaths log at debug.
func RequestLog(log *slog.Logger, quietPaths ...string) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithCorrelationID(r.Context(), r.Header.Get(logger.CorrelationIDHeader))
			w.Header().Set(logger.CorrelationIDHeader, logger.CorrelationIDFromContext(ctx))

			began := time.Now()
			meter := &responseMeter{ResponseWriter: w}
			next.ServeHTTP(meter, r.WithContext(ctx))

			status := meter.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelWarn
			case quiet[r.URL.Path] && status < http.StatusBadRequest:
				level = slog.LevelDebug
			}

			log.LogAttrs(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", meter.written),
				slog.Duration("duration", time.Since(began)),
				logger.CorrelationAttr(ctx),
			)
		})
	}
}
