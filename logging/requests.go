package logging

import (
	"log"
	"net/http"
	"time"

	"vantera/gate"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Requests logs one line per request once the handler returns.
func Requests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("HTTP: %s %s gate=%s status=%d took=%s",
			r.Method, r.URL.Path, rec.Header().Get(gate.HeaderDecision), rec.status,
			time.Since(start).Round(time.Millisecond))
	})
}
