// Package httpapi exposes assessment sessions and the record history over
// HTTP, with a websocket per session for live events and browser media.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"bodycheck/internal/analysis"
	"bodycheck/internal/config"
	"bodycheck/internal/history"
	"bodycheck/internal/report"
	"bodycheck/internal/timer"
)

type Server struct {
	Config   config.Config
	History  *history.Store
	Analyzer analysis.Analyzer
	// Sharer may be nil when no share channel is configured.
	Sharer   report.Sharer
	Sessions *Registry

	// Scheduler and Dispatch override the session defaults.
	Scheduler timer.Scheduler
	Dispatch  func(func())
}

func NewServer(cfg config.Config, store *history.Store, analyzer analysis.Analyzer, sharer report.Sharer) *Server {
	return &Server{
		Config:   cfg,
		History:  store,
		Analyzer: analyzer,
		Sharer:   sharer,
		Sessions: NewRegistry(),
	}
}

func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if s.Config.SessionIdleTimeout > 0 {
		go s.expireSessions(ctx, s.Config.SessionIdleTimeout)
	}

	r.Get("/health", s.Health)

	r.Route("/api", func(api chi.Router) {
		api.Route("/sessions", func(sessions chi.Router) {
			sessions.Post("/", s.CreateSession)
			sessions.Route("/{sessionId}", func(sess chi.Router) {
				sess.Get("/", s.GetSession)
				sess.Delete("/", s.DeleteSession)
				sess.Post("/begin", s.Begin)
				sess.Post("/history", s.OpenHistory)
				sess.Post("/history/close", s.CloseHistory)
				sess.Post("/user-info", s.SubmitUserInfo)
				sess.Post("/instruction/dismiss", s.DismissInstruction)
				sess.Post("/start", s.StartTest)
				sess.Post("/capture", s.Capture)
				sess.Post("/restart", s.Restart)
				sess.Post("/voice/toggle", s.ToggleVoice)
				sess.Get("/camera/devices", s.ListDevices)
				sess.Post("/camera/toggle", s.ToggleFacing)
				sess.Post("/camera/device", s.SelectDevice)
				sess.Post("/camera/zoom", s.SetZoom)
				sess.Get("/report", s.ReportPage)
				sess.Post("/share", s.Share)
				sess.Post("/records/{recordId}/view", s.ViewRecord)
				sess.Get("/ws", s.SessionSocket)
			})
		})

		api.Route("/records", func(records chi.Router) {
			records.Get("/", s.ListRecords)
			records.Get("/{recordId}", s.GetRecord)
			records.Delete("/{recordId}", s.DeleteRecord)
		})
	})
	return r
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Sessions: s.Sessions.Len()})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.Sessions.Get(chi.URLParam(r, "sessionId"))
	if !ok {
		writeServiceError(w, errSessionNotFound)
		return nil, false
	}
	sess.touch(time.Now())
	return sess, true
}
