package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	"github.com/go-pkgz/rest"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.size,
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// restLogger adapts charmbracelet/log to the go-pkgz/rest logger backend.
type restLogger struct {
	logger *log.Logger
}

func (l restLogger) Logf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Recoverer turns handler panics into 500 responses and logs them.
func Recoverer(logger *log.Logger) Middleware {
	return rest.Recoverer(restLogger{logger: logger})
}

// Standard returns the middleware every route gets: real client IP, panic recovery, concurrency
// throttling, app info headers, GET /ping, request size limit and access logging.
func Standard(app, version string, logger *log.Logger) []Middleware {
	return []Middleware{
		rest.RealIP,
		Recoverer(logger),
		rest.Throttle(1000),
		rest.AppInfo(app, "desertthunder", version),
		rest.Ping,
		rest.SizeLimit(64 * 1024),
		RequestLogger(logger),
	}
}

// LoginLimiter allows perSecond login attempts per client address.
func LoginLimiter(perSecond float64) Middleware {
	lmt := tollbooth.NewLimiter(perSecond, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetMessage("Too many login attempts, please try again later.")
	return tollbooth.HTTPMiddleware(lmt)
}

// CrossOrigin rejects non-safe cross-origin browser requests.
func CrossOrigin() Middleware {
	return http.NewCrossOriginProtection().Handler
}

// NoCache disables client caching for poll responses.
func NoCache(next http.Handler) http.Handler {
	return rest.NoCache(next)
}
