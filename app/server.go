package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Handler serves the page:
//
//	GET  /                the page
//	POST /roll/{table}    roll and redirect back to the page
//	GET  /api/roll/{table} roll and return result as JSON
//	GET  /styles.css      scoped stylesheet
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.servePage)
	mux.HandleFunc("POST /roll/{table}", a.serveRoll)
	mux.HandleFunc("GET /api/roll/{table}", a.serveAPIRoll)
	mux.HandleFunc("GET /styles.css", a.serveStyles)
	return a.logRequests(mux)
}

func (a *App) servePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := a.Render(&buf); err != nil {
		a.log.Error("Unable to render page", zap.Error(err))
		http.Error(w, "unable to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w) //nolint:errcheck
}

func (a *App) serveRoll(w http.ResponseWriter, r *http.Request) {
	if _, err := a.Roll(r.PathValue("table")); err != nil {
		a.rollError(w, err)
		return
	}
	http.Redirect(w, r, "../", http.StatusSeeOther)
}

func (a *App) serveAPIRoll(w http.ResponseWriter, r *http.Request) {
	res, err := a.Roll(r.PathValue("table"))
	if err != nil {
		a.rollError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		a.log.Warn("Unable to write response", zap.Error(err))
	}
}

func (a *App) serveStyles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write([]byte(a.Styles())) //nolint:errcheck
}

func (a *App) rollError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownTable) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	a.log.Error("Roll failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
