package httpapi

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bodycheck/internal/assessment"
	"bodycheck/internal/capture"
	"bodycheck/internal/voice"
)

// Session is one browser tab running an assessment. Its camera and speech
// recognition live in the browser and are driven over the websocket.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Hub        *Hub
	Media      *capture.RemoteMedia
	Recognizer *voice.RemoteRecognizer
	Voice      *voice.Interpreter
	Seq        *assessment.Sequencer

	lastSeen atomic.Int64
}

// touch marks the session as used at t.
func (sess *Session) touch(t time.Time) {
	sess.lastSeen.Store(t.UnixNano())
}

// idleSince reports whether the session has no attached socket and has not
// been used since cutoff.
func (sess *Session) idleSince(cutoff time.Time) bool {
	return sess.Hub.Len() == 0 && sess.lastSeen.Load() < cutoff.UnixNano()
}

// Registry holds live sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Expire removes and closes every session idle since cutoff, returning how
// many were dropped.
func (r *Registry) Expire(cutoff time.Time) int {
	r.mu.Lock()
	var expired []*Session
	for id, sess := range r.sessions {
		if sess.idleSince(cutoff) {
			delete(r.sessions, id)
			expired = append(expired, sess)
		}
	}
	r.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	return len(expired)
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

// newSession wires the browser-backed camera and recognizer into a fresh
// sequencer.
func (s *Server) newSession() *Session {
	hub := NewHub()
	media := capture.NewRemoteMedia(hub)
	rec := voice.NewRemoteRecognizer(hub)

	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Hub:        hub,
		Media:      media,
		Recognizer: rec,
	}
	sess.touch(sess.CreatedAt)
	sess.Voice = voice.NewInterpreter(rec, s.Config.VoiceLang, func(sig voice.Signal) {
		sess.Seq.HandleVoice(sig)
	})
	sess.Seq = assessment.New(assessment.Deps{
		Analyzer:      s.Analyzer,
		History:       s.History,
		Camera:        capture.NewProvider(media),
		Voice:         sess.Voice,
		Scheduler:     s.Scheduler,
		Events:        hub,
		Dispatch:      s.Dispatch,
		AnalysisWidth: s.Config.AnalysisImageWidth,
	})
	s.Sessions.add(sess)
	return sess
}

// close stops everything the session holds.
func (sess *Session) close() {
	sess.Seq.Restart()
	sess.Voice.Stop()
}

// expireSessions drops sessions whose tab went away, checking every minute
// or every half timeout when that is shorter.
func (s *Server) expireSessions(ctx context.Context, timeout time.Duration) {
	interval := timeout / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if n := s.Sessions.Expire(now.Add(-timeout)); n > 0 {
				log.Printf("expired %d idle sessions, %d live", n, s.Sessions.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}
