package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/splitroom/splitroom/internal/message"
)

const (
	// sendBufferSize is the number of outbound frames that can be queued.
	sendBufferSize = 16

	// writeTimeout is the max time to wait for a single write to complete.
	writeTimeout = 5 * time.Second
)

// ErrClosed is returned by sends after Close has run.
var ErrClosed = errors.New("live: session closed")

// Handler receives inbound events. All methods are called from the
// session's read loop, one event at a time, in arrival order.
type Handler interface {
	UserList(names []string)
	UserJoined(name string)
	UserLeft(name string)
	Message(m message.Message)
	Proof(m message.Message)
}

// Config describes one room visit.
type Config struct {
	URL         string
	Token       string
	RoomID      string
	DisplayName string
}

// Session is one live connection to a room. Dial opens it, Close
// releases it. There is no reconnect: once the connection is gone the
// view simply stops receiving updates.
type Session struct {
	conn    *websocket.Conn
	send    chan []byte
	handler Handler
	log     zerolog.Logger

	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}
}

// Dial opens the single websocket for a room visit, carrying the bearer
// token in the handshake, and emits the joinRoom frame before any other
// traffic. On success the read loop is running and events flow to the
// handler; on failure there is nothing to release.
func Dial(ctx context.Context, cfg Config, h Handler, logger zerolog.Logger) (*Session, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)

	conn, _, err := websocket.Dial(ctx, cfg.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("live: dial %s: %w", cfg.URL, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		handler: h,
		log:     logger,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	join, err := marshalEnvelope(EventJoinRoom, JoinPayload{RoomID: cfg.RoomID, DisplayName: cfg.DisplayName})
	if err != nil {
		s.Close()
		return nil, err
	}
	writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
	err = conn.Write(writeCtx, websocket.MessageText, join)
	writeCancel()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("live: join room %s: %w", cfg.RoomID, err)
	}

	go s.writePump(runCtx)
	go s.readLoop(runCtx)

	return s, nil
}

// Close tears the connection down. Safe to call from any goroutine and
// any number of times; the disconnect runs exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "")
	})
}

// Done is closed when the read loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SendMessage queues a text message frame. Fire and forget: delivery is
// not confirmed and failures are not retried.
func (s *Session) SendMessage(m message.Message) error {
	return s.queue(EventSendMessage, m)
}

// SendProof broadcasts an uploaded proof so other participants see it.
func (s *Session) SendProof(m message.Message) error {
	return s.queue(EventSendProof, m)
}

func (s *Session) queue(event string, v any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := marshalEnvelope(event, v)
	if err != nil {
		return err
	}
	select {
	case s.send <- data:
	default:
		s.log.Warn().Str("event", event).Msg("[live] send buffer full, dropping frame")
	}
	return nil
}

// writePump drains the send queue, writing each frame with a deadline.
// It exits when the session is closed or a write fails.
func (s *Session) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-s.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.Warn().Err(err).Msg("[live] write failed")
				return
			}
		}
	}
}

// readLoop dispatches inbound frames to the handler in arrival order. A
// read error ends the live session for good: the view keeps whatever
// state it has and sees no further updates.
func (s *Session) readLoop(ctx context.Context) {
	defer close(s.done)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if !s.closed.Load() {
				s.log.Warn().Err(err).Msg("[live] connection lost")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Debug().Err(err).Msg("[live] dropping malformed frame")
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env Envelope) {
	switch env.Type {
	case EventUserList:
		var names []string
		if err := json.Unmarshal(env.Payload, &names); err != nil {
			s.log.Debug().Err(err).Msg("[live] bad userList payload")
			return
		}
		s.handler.UserList(names)
	case EventUserJoined:
		if name, ok := decodeName(env.Payload); ok {
			s.handler.UserJoined(name)
		}
	case EventUserLeft:
		if name, ok := decodeName(env.Payload); ok {
			s.handler.UserLeft(name)
		}
	case EventReceiveMessage, EventNewMessage:
		var p message.Payload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.log.Debug().Err(err).Msg("[live] bad message payload")
			return
		}
		s.handler.Message(p.Normalize())
	case EventReceiveProof, EventNewProof:
		var p message.Payload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.log.Debug().Err(err).Msg("[live] bad proof payload")
			return
		}
		s.handler.Proof(p.Normalize())
	default:
		s.log.Debug().Str("type", env.Type).Msg("[live] ignoring unknown event")
	}
}

func marshalEnvelope(event string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("live: marshal %s payload: %w", event, err)
	}
	data, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("live: marshal %s envelope: %w", event, err)
	}
	return data, nil
}
