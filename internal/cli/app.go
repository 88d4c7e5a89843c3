package cli

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/splitroom/splitroom/internal/message"
	"github.com/splitroom/splitroom/internal/room"
)

// ErrNoProofSelected is returned by SendProof when no file is staged.
var ErrNoProofSelected = errors.New("cli: no proof file selected")

// Sender is the live channel's outbound half, as the app needs it.
type Sender interface {
	SendMessage(m message.Message) error
	SendProof(m message.Message) error
}

// Uploader posts a proof file and returns the resulting message.
type Uploader interface {
	UploadProof(ctx context.Context, roomID, path, sender string) (message.Message, error)
}

// App owns the room view. It reconciles live events into room state,
// runs the send paths and drives the renderer. It is the live session's
// Handler; callbacks arrive on the session's read loop.
type App struct {
	state  *room.State
	rend   *Renderer
	upload Uploader
	log    zerolog.Logger
	roomID string

	mu      sync.Mutex
	sender  Sender
	pending string // selected proof file, at most one
}

// NewApp wires the room view together. The live sender is attached
// separately because the session needs the app as its handler before it
// can exist.
func NewApp(state *room.State, rend *Renderer, upload Uploader, roomID string, logger zerolog.Logger) *App {
	return &App{
		state:  state,
		rend:   rend,
		upload: upload,
		log:    logger,
		roomID: roomID,
	}
}

// SetSender attaches the live channel once it is connected. Until then
// sends are local-only.
func (a *App) SetSender(s Sender) {
	a.mu.Lock()
	a.sender = s
	a.mu.Unlock()
}

// Bootstrap merges the fetched history and paints the initial view.
func (a *App) Bootstrap(history []message.Message) {
	for _, m := range history {
		if a.state.Merge(m) {
			a.rend.Message(m)
		}
	}
	a.renderBill()
}

// CanSend reports whether there is anything to send: trimmed text or a
// selected proof file.
func (a *App) CanSend(input string) bool {
	return strings.TrimSpace(input) != "" || a.Pending() != ""
}

// SendText builds a message from the input, appends it locally first,
// then transmits. Fire and forget: a transmit failure is logged, never
// retried. Whitespace-only input changes nothing; it reports whether a
// message was sent.
func (a *App) SendText(input string) bool {
	text := strings.TrimSpace(input)
	if text == "" {
		return false
	}

	m := message.Message{
		ID:        uuid.New().String(),
		RoomID:    a.roomID,
		Sender:    a.state.Self(),
		Text:      text,
		CreatedAt: time.Now(),
	}
	a.state.Merge(m)
	a.rend.Message(m)

	if s := a.currentSender(); s != nil {
		if err := s.SendMessage(m); err != nil {
			a.log.Warn().Err(err).Msg("[app] send message failed")
		}
	}
	return true
}

// SelectProof stages a file for upload, replacing any previous
// selection. Only one attachment can be pending at a time.
func (a *App) SelectProof(path string) {
	a.mu.Lock()
	a.pending = path
	a.mu.Unlock()
}

// Pending returns the currently selected proof file, if any.
func (a *App) Pending() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// SendProof uploads the selected file. On success the server's
// descriptor is merged by ID, broadcast to the room, and the selection
// cleared. On failure the selection survives so the user can retry.
func (a *App) SendProof(ctx context.Context) error {
	path := a.Pending()
	if path == "" {
		return ErrNoProofSelected
	}

	m, err := a.upload.UploadProof(ctx, a.roomID, path, a.state.Self())
	if err != nil {
		a.log.Error().Err(err).Str("file", path).Msg("[app] proof upload failed")
		a.rend.Notice("upload failed: " + err.Error())
		return err
	}

	if a.state.Merge(m) {
		a.rend.Message(m)
	}
	if s := a.currentSender(); s != nil {
		if err := s.SendProof(m); err != nil {
			a.log.Warn().Err(err).Msg("[app] proof broadcast failed")
		}
	}

	a.mu.Lock()
	a.pending = ""
	a.mu.Unlock()
	a.rend.Notice("proof uploaded")
	return nil
}

// UserList replaces the online set with the authoritative server list.
// The bill re-renders because the per-person share changed.
func (a *App) UserList(names []string) {
	a.state.SetOnline(names)
	a.renderBill()
}

// UserJoined surfaces a notice for other participants. The local user's
// own join echo is suppressed. The set change is a defensive fallback
// for the window before the next full presence list.
func (a *App) UserJoined(name string) {
	if strings.TrimSpace(name) == "" || a.state.IsSelf(name) {
		return
	}
	a.rend.Notice(name + " joined")
	if a.state.AddOnline(name) {
		a.renderBill()
	}
}

// UserLeft mirrors UserJoined, removing the participant even if no
// fresh presence list has arrived yet.
func (a *App) UserLeft(name string) {
	if strings.TrimSpace(name) == "" || a.state.IsSelf(name) {
		return
	}
	a.rend.Notice(name + " left")
	if a.state.RemoveOnline(name) {
		a.renderBill()
	}
}

// Message merges an inbound text message. The optimistic local copy and
// the server echo share an ID, so echoes merge to nothing; there is no
// sender-name special-casing.
func (a *App) Message(m message.Message) {
	if a.state.Merge(m) {
		a.rend.Message(m)
	}
}

// Proof merges an inbound proof, sender included. The sender's own copy
// only exists after the upload round-trip, so the echo dedups by ID
// like everything else.
func (a *App) Proof(m message.Message) {
	if a.state.Merge(m) {
		a.rend.Message(m)
	}
}

func (a *App) currentSender() Sender {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sender
}

func (a *App) renderBill() {
	a.rend.Bill(a.state.Room(), a.state.Split(), a.state.Online())
}
