package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bodycheck/internal/assessment"
	"bodycheck/internal/capture"
	"bodycheck/internal/models"
	"bodycheck/internal/report"
)

type SessionResponse struct {
	ID string `json:"id"`
	assessment.Snapshot
}

func sessionResponse(sess *Session) SessionResponse {
	return SessionResponse{ID: sess.ID, Snapshot: sess.Seq.Snapshot()}
}

func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.newSession()
	WriteJSON(w, http.StatusCreated, sessionResponse(sess))
}

func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Sessions.Remove(chi.URLParam(r, "sessionId"))
	if !ok {
		writeServiceError(w, errSessionNotFound)
		return
	}
	sess.close()
	w.WriteHeader(http.StatusNoContent)
}

// act runs one sequencer action and answers with the resulting snapshot.
func (s *Server) act(w http.ResponseWriter, r *http.Request, fn func(*Session) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *Server) Begin(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Seq.Begin() })
}

func (s *Server) OpenHistory(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Seq.OpenHistory() })
}

func (s *Server) CloseHistory(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Seq.CloseHistory() })
}

func (s *Server) SubmitUserInfo(w http.ResponseWriter, r *http.Request) {
	var req models.UserInfo
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.act(w, r, func(sess *Session) error { return sess.Seq.SubmitUserInfo(req) })
}

func (s *Server) DismissInstruction(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Seq.DismissInstruction(r.Context()) })
}

func (s *Server) StartTest(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Seq.StartTest() })
}

type CaptureRequest struct {
	DataURL string `json:"dataUrl"`
}

// Capture takes the current frame. A client that already captured a frame
// may send it in the body instead.
func (s *Server) Capture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DataURL != "" && !strings.HasPrefix(req.DataURL, "data:image/") {
		WriteError(w, http.StatusBadRequest, "dataUrl must be an image data URL")
		return
	}
	s.act(w, r, func(sess *Session) error {
		if req.DataURL != "" {
			return sess.Seq.HandleCapture(req.DataURL)
		}
		return sess.Seq.Capture()
	})
}

func (s *Server) Restart(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error {
		sess.Seq.Restart()
		return nil
	})
}

func (s *Server) ToggleVoice(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Seq.ToggleVoice() })
}

type DevicesResponse struct {
	Items []capture.Device `json:"items"`
}

func (s *Server) ListDevices(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	devices, err := sess.Seq.ListDevices(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if devices == nil {
		devices = []capture.Device{}
	}
	WriteJSON(w, http.StatusOK, DevicesResponse{Items: devices})
}

func (s *Server) ToggleFacing(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, func(sess *Session) error { return sess.Seq.ToggleFacing(r.Context()) })
}

type SelectDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

func (s *Server) SelectDevice(w http.ResponseWriter, r *http.Request) {
	var req SelectDeviceRequest
	if err := decodeJSON(r, &req); err != nil || req.DeviceID == "" {
		WriteError(w, http.StatusBadRequest, "deviceId is required")
		return
	}
	s.act(w, r, func(sess *Session) error { return sess.Seq.SelectDevice(r.Context(), req.DeviceID) })
}

type ZoomRequest struct {
	Level float64 `json:"level"`
}

type ZoomResponse struct {
	Level float64 `json:"level"`
}

func (s *Server) SetZoom(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	applied, err := sess.Seq.SetZoom(req.Level)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ZoomResponse{Level: applied})
}

// ReportPage renders the printable report of the session.
func (s *Server) ReportPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	view, err := sess.Seq.ReportView()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, view); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

type ShareRequest struct {
	To  string `json:"to"`
	URL string `json:"url"`
}

func (s *Server) Share(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	view, err := sess.Seq.ReportView()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	content, err := report.Share(r.Context(), s.Sharer, view, req.URL, req.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, content)
}

func (s *Server) ViewRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "recordId")
	s.act(w, r, func(sess *Session) error { return sess.Seq.ViewRecord(r.Context(), id) })
}
