package message

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one canonical chat entry: a text message, a proof
// attachment, or both. IDs are unique within the visible set, which is
// what makes merging by ID idempotent.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId,omitempty"`
	Sender    string    `json:"senderName"`
	Text      string    `json:"text,omitempty"`
	ProofURL  string    `json:"proofUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsProof reports whether the message carries an attachment.
func (m Message) IsProof() bool {
	return m.ProofURL != ""
}

// Empty reports whether the message carries neither text nor an
// attachment. Empty messages are not worth rendering.
func (m Message) Empty() bool {
	return strings.TrimSpace(m.Text) == "" && m.ProofURL == ""
}

// fallbackSender is used when no sender field is present on the wire.
const fallbackSender = "Unknown"

// Payload is the wire shape of a message as the API and the live channel
// deliver it. Field names vary between server versions, so several
// spellings are decoded and Normalize resolves the fallback chains.
type Payload struct {
	ID         string `json:"id"`
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
	Sender     struct {
		Name string `json:"name"`
	} `json:"sender"`
	Text      string `json:"text"`
	ProofURL  string `json:"proofUrl"`
	FileURL   string `json:"fileUrl"`
	CreatedAt string `json:"createdAt"`
}

// Normalize maps a wire payload to a canonical Message. The sender falls
// back senderName, then sender.name, then "Unknown"; the attachment URL
// falls back proofUrl, then fileUrl; a missing or malformed timestamp
// falls back to the current time. A missing ID gets a fresh one so the
// entry still participates in dedup.
func (p Payload) Normalize() Message {
	sender := strings.TrimSpace(p.SenderName)
	if sender == "" {
		sender = strings.TrimSpace(p.Sender.Name)
	}
	if sender == "" {
		sender = fallbackSender
	}

	proofURL := p.ProofURL
	if proofURL == "" {
		proofURL = p.FileURL
	}

	createdAt, err := time.Parse(time.RFC3339, p.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}

	return Message{
		ID:        id,
		RoomID:    p.RoomID,
		Sender:    sender,
		Text:      p.Text,
		ProofURL:  proofURL,
		CreatedAt: createdAt,
	}
}

// SortByCreatedAt orders messages ascending by creation time, in place.
func SortByCreatedAt(msgs []Message) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
