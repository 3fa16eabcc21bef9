// Package web serves the console to browsers. Every interaction is a form
// post to /events that is applied to the session's page, followed by a
// redirect back to the page or to a pending download.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed static
var staticFiles embed.FS

// CookieName holds the page session id.
const CookieName = "taskdesk_session"

type Config struct {
	Sessions *Sessions
	Logger   *log.Logger
}

type Server struct {
	sessions *Sessions
	logger   *log.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{sessions: cfg.Sessions, logger: logger}
}

// Handler returns the console routes.
func (s *Server) Handler() (http.Handler, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("embed static fs: %w", err)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.index)
	r.Post("/events", s.events)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return r, nil
}

func (s *Server) acquire(w http.ResponseWriter, r *http.Request) (*session, error) {
	var id string
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}
	sess, newID, err := s.sessions.acquire(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	sess, err := s.acquire(w, r)
	if err != nil {
		s.logger.Printf("Error starting session: %v", err)
		http.Error(w, "console unavailable", http.StatusInternalServerError)
		return
	}
	sess.mu.Lock()
	var buf bytes.Buffer
	err = sess.shell.Render(&buf)
	sess.mu.Unlock()
	if err != nil {
		s.logger.Printf("Error rendering page: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess, err := s.acquire(w, r)
	if err != nil {
		s.logger.Printf("Error starting session: %v", err)
		http.Error(w, "console unavailable", http.StatusInternalServerError)
		return
	}
	sess.mu.Lock()
	if err := sess.shell.HandleEvent(r.Context(), r.PostForm); err != nil {
		s.logger.Printf("Error handling event: %v", err)
	}
	target := sess.shell.TakeNavigation()
	sess.mu.Unlock()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
