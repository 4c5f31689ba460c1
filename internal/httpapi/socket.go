package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"bodycheck/internal/capture"
	"bodycheck/internal/events"
)

// Inbound is a message sent by the browser over the session socket.
//
//	frame                 latest camera frame (dataUrl)
//	capture               frame captured by the client for the current step
//	devices               enumerated video inputs
//	zoom_capability       zoom range of the active track, null when absent
//	camera_denied         getUserMedia failed (message)
//	camera_ready          a previous failure cleared
//	recognition_supported speech recognition availability
//	recognition_result    transcript with isFinal
//	recognition_end       the recognizer session ended
//	recognition_error     recognizer error code
type Inbound struct {
	Type       string             `json:"type"`
	DataURL    string             `json:"dataUrl,omitempty"`
	Devices    []capture.Device   `json:"devices,omitempty"`
	Zoom       *capture.ZoomRange `json:"zoom,omitempty"`
	Message    string             `json:"message,omitempty"`
	Supported  bool               `json:"supported,omitempty"`
	Transcript string             `json:"transcript,omitempty"`
	Final      bool               `json:"isFinal,omitempty"`
	Error      string             `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) SessionSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := sess.Hub.Add(conn)
	go client.WritePump()
	defer func() {
		sess.Hub.Remove(client)
		sess.touch(time.Now())
	}()

	sess.Hub.Publish(events.Event{Type: "snapshot", Data: sessionResponse(sess)})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sess.touch(time.Now())
		var msg Inbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			sess.Hub.Publish(events.Event{Type: "error", Data: map[string]string{"message": "invalid message payload"}})
			continue
		}
		if err := sess.handleInbound(msg); err != nil {
			log.Printf("session %s: %s: %v", sess.ID, msg.Type, err)
			sess.Hub.Publish(events.Event{Type: "error", Data: map[string]string{"message": err.Error()}})
		}
	}
}

func (sess *Session) handleInbound(msg Inbound) error {
	switch msg.Type {
	case "frame":
		return sess.Media.PushFrame(msg.DataURL)
	case "capture":
		return sess.Seq.HandleCapture(msg.DataURL)
	case "devices":
		sess.Media.SetDevices(msg.Devices)
	case "zoom_capability":
		sess.Media.SetZoomCapability(msg.Zoom)
		sess.Seq.CameraChanged()
	case "camera_denied":
		reason := msg.Message
		if reason == "" {
			reason = "permission denied"
		}
		sess.Media.SetDenied(errors.New(reason))
	case "camera_ready":
		sess.Media.SetDenied(nil)
	case "recognition_supported":
		sess.Recognizer.SetSupported(msg.Supported)
	case "recognition_result":
		sess.Voice.HandleResult(msg.Transcript, msg.Final)
	case "recognition_end":
		sess.Voice.HandleEnd()
	case "recognition_error":
		sess.Voice.HandleError(msg.Error)
	default:
		return errors.New("unsupported message type " + msg.Type)
	}
	return nil
}
