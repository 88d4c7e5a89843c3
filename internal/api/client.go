package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/splitroom/splitroom/internal/message"
	"github.com/splitroom/splitroom/internal/room"
)

// ErrRoomNotFound is returned when the room ID does not exist upstream.
var ErrRoomNotFound = errors.New("api: room not found")

// Client talks to the splitroom HTTP API with a bearer token.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   zerolog.Logger
}

// NewClient creates an API client for the given base URL. The timeout
// bounds every request end to end.
func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: timeout},
		log:   logger,
	}
}

type roomResponse struct {
	Room struct {
		Title string `json:"title"`
		Menu  []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"menu"`
	} `json:"room"`
}

// Room fetches room metadata. Menu items get positional IDs and a
// missing price decodes as zero.
func (c *Client) Room(ctx context.Context, roomID string) (room.Room, error) {
	var resp roomResponse
	if err := c.getJSON(ctx, "/rooms/"+roomID, &resp); err != nil {
		return room.Room{}, err
	}

	r := room.Room{ID: roomID, Title: resp.Room.Title}
	for i, it := range resp.Room.Menu {
		r.Menu = append(r.Menu, room.MenuItem{
			ID:    strconv.Itoa(i),
			Name:  it.Name,
			Price: it.Price,
		})
	}
	return r, nil
}

type historyResponse struct {
	Messages []message.Payload `json:"messages"`
}

// History fetches and normalizes the room's message history, sorted
// ascending by creation time.
func (c *Client) History(ctx context.Context, roomID string) ([]message.Message, error) {
	var resp historyResponse
	if err := c.getJSON(ctx, "/messages/"+roomID, &resp); err != nil {
		return nil, err
	}

	msgs := lo.Map(resp.Messages, func(p message.Payload, _ int) message.Message {
		return p.Normalize()
	})
	message.SortByCreatedAt(msgs)
	return msgs, nil
}

// Load fetches metadata and history concurrently. The room fetch is
// fatal on failure. A history failure is only logged and the view
// starts with an empty transcript, since the live channel can still
// fill it.
func (c *Client) Load(ctx context.Context, roomID string) (room.Room, []message.Message, error) {
	var (
		rm   room.Room
		hist []message.Message
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.Room(ctx, roomID)
		if err != nil {
			return err
		}
		rm = r
		return nil
	})
	g.Go(func() error {
		msgs, err := c.History(ctx, roomID)
		if err != nil {
			c.log.Warn().Err(err).Str("room", roomID).Msg("[api] history fetch failed, starting empty")
			return nil
		}
		hist = msgs
		return nil
	})
	if err := g.Wait(); err != nil {
		return room.Room{}, nil, err
	}
	return rm, hist, nil
}

type proofResponse struct {
	Proof struct {
		ID        string `json:"id"`
		FileURL   string `json:"fileUrl"`
		CreatedAt string `json:"createdAt"`
	} `json:"proof"`
}

// UploadProof posts the file as multipart field "file" and returns the
// message built from the server's proof descriptor. The part content
// type is sniffed from the file bytes, not the extension.
func (c *Client) UploadProof(ctx context.Context, roomID, path, sender string) (message.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return message.Message{}, fmt.Errorf("api: read proof file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	hdr.Set("Content-Type", mimetype.Detect(data).String())
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return message.Message{}, fmt.Errorf("api: build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return message.Message{}, fmt.Errorf("api: build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return message.Message{}, fmt.Errorf("api: build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/proofs/"+roomID, &body)
	if err != nil {
		return message.Message{}, fmt.Errorf("api: upload proof: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return message.Message{}, fmt.Errorf("api: upload proof: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return message.Message{}, fmt.Errorf("api: upload proof: unexpected status %d", res.StatusCode)
	}

	var resp proofResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return message.Message{}, fmt.Errorf("api: decode proof response: %w", err)
	}

	p := message.Payload{
		ID:         resp.Proof.ID,
		RoomID:     roomID,
		SenderName: sender,
		FileURL:    resp.Proof.FileURL,
		CreatedAt:  resp.Proof.CreatedAt,
	}
	return p.Normalize(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("api: get %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: get %s: %w", path, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("get %s: %w", path, ErrRoomNotFound)
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("api: get %s: unexpected status %d", path, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s response: %w", path, err)
	}
	return nil
}
