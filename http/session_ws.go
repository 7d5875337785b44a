package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartrisk/ml"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 14
)

// Session message types.
const (
	MessageSession    = "session"
	MessagePrediction = "prediction"
	MessageError      = "error"
)

// SessionMessage is sent by the server on a prediction session. The first
// message of every session has type "session" and describes the model the
// session is pinned to.
type SessionMessage struct {
	Type       string         `json:"type"`
	SessionID  string         `json:"session_id"`
	Seq        int            `json:"seq,omitempty"`
	Model      *modelInfo     `json:"model,omitempty"`
	Input      *ml.FeatureRow `json:"input,omitempty"`
	Prediction *ml.Prediction `json:"prediction,omitempty"`
	Verdict    *ml.Verdict    `json:"verdict,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// session answers FeatureRow messages with one model handle for its whole
// lifetime, so a retrain mid-session does not change its answers.
type session struct {
	id     string
	conn   *websocket.Conn
	model  *ml.Model
	send   chan SessionMessage
	logger *zap.Logger
	record func(source string, label int)
}

// handleSession upgrades to a websocket session. The model is resolved before
// the upgrade so an unavailable artifact is reported as a plain 503.
func (h *handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	model, ok := h.model(w, r)
	if !ok {
		return
	}

	header := http.Header{requestIDHeader: {GetRequestID(r.Context())}}
	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		id:     uuid.NewString(),
		conn:   conn,
		model:  model,
		send:   make(chan SessionMessage, 16),
		record: h.recordPrediction,
	}
	s.logger = h.logger.With(
		zap.String("session_id", s.id),
		zap.String("request_id", GetRequestID(r.Context())))
	s.logger.Info("session opened")
	h.metrics.IncrCounter("sessions_total", nil)

	info := describeModel(h.modelPath, model)
	s.send <- SessionMessage{Type: MessageSession, SessionID: s.id, Model: &info}

	done := make(chan struct{})
	go func() {
		s.writePump()
		close(done)
	}()
	n := s.readPump()
	close(s.send)
	<-done
	s.logger.Info("session closed", zap.Int("predictions", n))
}

// readPump answers incoming rows until the peer goes away and returns the
// number of messages handled.
func (s *session) readPump() int {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	seq := 0
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("session read failed", zap.Error(err))
			}
			return seq
		}
		seq++
		s.send <- s.answer(seq, data)
	}
}

func (s *session) answer(seq int, data []byte) SessionMessage {
	msg := SessionMessage{SessionID: s.id, Seq: seq}

	row := ml.DefaultFeatureRow()
	if err := json.Unmarshal(data, &row); err != nil {
		msg.Type = MessageError
		msg.Error = "invalid input: " + err.Error()
		return msg
	}
	row = row.Clamp()

	prediction, err := s.model.PredictRow(row)
	if err != nil {
		msg.Type = MessageError
		msg.Error = err.Error()
		return msg
	}
	s.record("session", prediction.Label)
	verdict := ml.VerdictFor(prediction.Label)
	msg.Type = MessagePrediction
	msg.Input = &row
	msg.Prediction = &prediction
	msg.Verdict = &verdict
	return msg
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Warn("session write failed", zap.Error(err))
				s.drain()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.drain()
				return
			}
		}
	}
}

// drain discards queued replies after a write failure so readPump never
// blocks on a full channel.
func (s *session) drain() {
	s.conn.Close()
	go func() {
		for range s.send {
		}
	}()
}
