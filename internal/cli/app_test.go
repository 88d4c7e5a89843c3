package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/splitroom/splitroom/internal/api"
	"github.com/splitroom/splitroom/internal/message"
	"github.com/splitroom/splitroom/internal/room"
)

// fakeSender records frames handed to the live channel.
type fakeSender struct {
	mu     sync.Mutex
	msgs   []message.Message
	proofs []message.Message
}

func (f *fakeSender) SendMessage(m message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeSender) SendProof(m message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proofs = append(f.proofs, m)
	return nil
}

// fakeUploader returns a canned message or a canned error.
type fakeUploader struct {
	msg message.Message
	err error
}

func (f *fakeUploader) UploadProof(ctx context.Context, roomID, path, sender string) (message.Message, error) {
	if f.err != nil {
		return message.Message{}, f.err
	}
	return f.msg, nil
}

func newTestApp(t *testing.T, upload Uploader) (*App, *fakeSender, *bytes.Buffer) {
	t.Helper()
	state := room.NewState("alice", room.Room{
		ID:    "room1",
		Title: "Dinner",
		Menu:  []room.MenuItem{{ID: "0", Name: "Pizza", Price: 100}},
	})
	out := &bytes.Buffer{}
	sender := &fakeSender{}
	app := NewApp(state, NewRenderer(out, "alice"), upload, "room1", zerolog.Nop())
	app.SetSender(sender)
	return app, sender, out
}

func TestSendTextWhitespaceOnly(t *testing.T) {
	app, sender, out := newTestApp(t, &fakeUploader{})

	if app.SendText("   \t  ") {
		t.Fatal("whitespace-only input should not send")
	}
	if got := len(app.state.Messages()); got != 0 {
		t.Fatalf("expected no messages, got %d", got)
	}
	if len(sender.msgs) != 0 {
		t.Fatal("nothing should reach the live channel")
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should render, got %q", out.String())
	}
}

func TestSendTextOptimisticAppendAndEchoDedup(t *testing.T) {
	app, sender, _ := newTestApp(t, &fakeUploader{})

	if !app.SendText("  hello everyone  ") {
		t.Fatal("expected send to happen")
	}

	msgs := app.state.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected optimistic append, got %d messages", len(msgs))
	}
	if msgs[0].Text != "hello everyone" {
		t.Errorf("expected trimmed text, got %q", msgs[0].Text)
	}
	if len(sender.msgs) != 1 || sender.msgs[0].ID != msgs[0].ID {
		t.Fatal("transmitted frame should share the optimistic ID")
	}

	// The server echoes the same ID back; the merge is a no-op.
	app.Message(sender.msgs[0])
	if got := len(app.state.Messages()); got != 1 {
		t.Fatalf("echo duplicated the message: %d entries", got)
	}
}

func TestCanSend(t *testing.T) {
	app, _, _ := newTestApp(t, &fakeUploader{})

	if app.CanSend("   ") {
		t.Error("no text and no file should disable sending")
	}
	if !app.CanSend("hi") {
		t.Error("trimmed text should enable sending")
	}
	app.SelectProof("receipt.png")
	if !app.CanSend("") {
		t.Error("a selected file should enable sending")
	}
}

func TestSendProofSuccess(t *testing.T) {
	uploaded := message.Message{
		ID:        "p1",
		Sender:    "alice",
		ProofURL:  "https://cdn/p1.png",
		CreatedAt: time.Now(),
	}
	app, sender, out := newTestApp(t, &fakeUploader{msg: uploaded})

	app.SelectProof("receipt.png")
	if err := app.SendProof(t.Context()); err != nil {
		t.Fatalf("send proof: %v", err)
	}

	if app.Pending() != "" {
		t.Error("selection should be cleared after a successful upload")
	}
	if got := len(app.state.Messages()); got != 1 {
		t.Fatalf("expected 1 message, got %d", got)
	}
	if len(sender.proofs) != 1 || sender.proofs[0].ID != "p1" {
		t.Fatal("proof should be broadcast over the live channel")
	}
	if !strings.Contains(out.String(), "proof uploaded") {
		t.Errorf("expected success notice, got %q", out.String())
	}

	// The broadcast echoes back; dedup by ID keeps a single entry.
	app.Proof(uploaded)
	if got := len(app.state.Messages()); got != 1 {
		t.Fatalf("echo duplicated the proof: %d entries", got)
	}
}

func TestSendProofFailureKeepsSelection(t *testing.T) {
	app, sender, out := newTestApp(t, &fakeUploader{err: errors.New("boom")})

	app.SelectProof("receipt.png")
	if err := app.SendProof(t.Context()); err == nil {
		t.Fatal("expected upload error")
	}

	if app.Pending() != "receipt.png" {
		t.Errorf("selection should survive a failed upload, got %q", app.Pending())
	}
	if got := len(app.state.Messages()); got != 0 {
		t.Fatalf("nothing should be appended on failure, got %d", got)
	}
	if len(sender.proofs) != 0 {
		t.Fatal("nothing should be broadcast on failure")
	}
	if !strings.Contains(out.String(), "upload failed") {
		t.Errorf("expected failure notice, got %q", out.String())
	}
}

func TestSendProofFailureAgainstRealClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "receipt.png")
	if err := os.WriteFile(path, []byte("bytes"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	client := api.NewClient(ts.URL, "tok", 2*time.Second, zerolog.Nop())
	app, _, _ := newTestApp(t, client)

	app.SelectProof(path)
	if err := app.SendProof(t.Context()); err == nil {
		t.Fatal("expected upload error")
	}
	if app.Pending() != path {
		t.Errorf("selection should survive, got %q", app.Pending())
	}
	if got := len(app.state.Messages()); got != 0 {
		t.Fatalf("expected no messages, got %d", got)
	}
}

func TestSendProofWithoutSelection(t *testing.T) {
	app, _, _ := newTestApp(t, &fakeUploader{})
	if err := app.SendProof(t.Context()); !errors.Is(err, ErrNoProofSelected) {
		t.Fatalf("expected ErrNoProofSelected, got %v", err)
	}
}

func TestPresenceNotices(t *testing.T) {
	app, _, out := newTestApp(t, &fakeUploader{})

	// The local user's own join echo is suppressed.
	app.UserJoined("alice")
	if out.Len() != 0 {
		t.Fatalf("self join should render nothing, got %q", out.String())
	}

	app.UserJoined("bob")
	if !strings.Contains(out.String(), "bob joined") {
		t.Errorf("expected join notice, got %q", out.String())
	}
	if got := app.state.Online(); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("expected bob online, got %v", got)
	}

	out.Reset()
	app.UserLeft("bob")
	if !strings.Contains(out.String(), "bob left") {
		t.Errorf("expected leave notice, got %q", out.String())
	}
	if got := app.state.Online(); len(got) != 0 {
		t.Fatalf("expected empty online set, got %v", got)
	}
}

func TestUserListReplacesPresence(t *testing.T) {
	app, _, _ := newTestApp(t, &fakeUploader{})

	app.UserList([]string{"alice", " bob ", "carol", "bob"})
	app.UserList([]string{"alice", " bob ", "carol", "bob"})

	got := app.state.Online()
	if len(got) != 2 || got[0] != "bob" || got[1] != "carol" {
		t.Fatalf("expected [bob carol], got %v", got)
	}
}

func TestHandleLine(t *testing.T) {
	app, sender, out := newTestApp(t, &fakeUploader{})

	if !app.handleLine(t.Context(), "/quit") {
		t.Error("/quit should end the loop")
	}
	if app.handleLine(t.Context(), "hello") {
		t.Error("a plain line should not end the loop")
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("expected one message sent, got %d", len(sender.msgs))
	}

	out.Reset()
	app.handleLine(t.Context(), "/pay")
	if !strings.Contains(out.String(), "no proof file selected") {
		t.Errorf("expected selection hint, got %q", out.String())
	}
}
