package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	gorillahandlers "github.com/gorilla/handlers"

	"github.com/focusflow/focusflow/internal/logging"
)

// CSRF protects form posts with gorilla/csrf. JSON requests are exempt: a
// browser cannot send them cross-origin without a preflight.
func CSRF(authKey []byte, trustedOrigins []string) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		authKey,
		csrf.Secure(false),
		csrf.Path("/"),
		csrf.TrustedOrigins(trustedOrigins),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				next.ServeHTTP(w, r)
				return
			}
			if r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflights for the listed web app origins and refuses
// state-changing requests that carry any other Origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "X-CSRF-Token"}),
		gorillahandlers.MaxAge(600),
	)
	return func(next http.Handler) http.Handler {
		h := next
		// an empty list would make handlers.CORS allow every origin
		if len(origins) > 0 {
			h = cors(next)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !safeMethod(r.Method) && !allowed[origin] {
				logging.Get().Warn().Str("origin", origin).Str("path", r.URL.Path).Msg("rejected cross-origin request")
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// AllowedOrigins returns the browser origins allowed to call the API: the
// web app's own origin plus each trusted origin. Trusted entries given as
// bare host:port are expanded to their http and https forms.
func AllowedOrigins(appURL string, trusted []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(o string) {
		o = strings.TrimRight(o, "/")
		if o != "" && !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	if u, err := url.Parse(appURL); err == nil && u.Scheme != "" && u.Host != "" {
		add(u.Scheme + "://" + u.Host)
	}
	for _, t := range trusted {
		if strings.Contains(t, "://") {
			add(t)
			continue
		}
		add("http://" + t)
		add("https://" + t)
	}
	return out
}

// AccessLog logs each request at debug level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Get().Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", rec.status).Dur("took", time.Since(start)).Msg("api request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Chain applies middlewares in order, the first one ending up innermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
