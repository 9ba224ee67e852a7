package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/journeykit/delivery/internal/model"
)

// TelegramClient sends through the Telegram Bot API. The destination is the
// chat id as a string.
type TelegramClient struct {
	baseURL string
	token   string
	client  *http.Client
}

const telegramAPIBase = "https://api.telegram.org"

func NewTelegramClient(token string, timeout time.Duration) *TelegramClient {
	return &TelegramClient{
		baseURL: telegramAPIBase,
		token:   token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBaseURL overrides the Bot API endpoint, for tests.
func (c *TelegramClient) WithBaseURL(url string) *TelegramClient {
	c.baseURL = url
	return c
}

func (c *TelegramClient) SendText(ctx context.Context, destination, text string) error {
	return c.post(ctx, "sendMessage", map[string]any{
		"chat_id": destination,
		"text":    text,
	})
}

func (c *TelegramClient) SendMedia(ctx context.Context, destination string, media model.MediaType, mediaURL, caption string) error {
	var method, field string
	switch media {
	case model.MediaImage:
		method, field = "sendPhoto", "photo"
	case model.MediaVideo:
		method, field = "sendVideo", "video"
	case model.MediaAudio:
		method, field = "sendAudio", "audio"
	default:
		method, field = "sendDocument", "document"
	}

	payload := map[string]any{
		"chat_id": destination,
		field:     mediaURL,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	return c.post(ctx, method, payload)
}

func (c *TelegramClient) post(ctx context.Context, method string, payload map[string]any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return permanentf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return permanentf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return transientf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return classifyHTTP(resp.StatusCode, body)
	}

	// Telegram reports application errors in-band with ok=false.
	var tr struct {
		OK          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return transientf("decode telegram response: %w body=%q", err, truncate(body, 256))
	}
	if !tr.OK {
		return classifyHTTP(tr.ErrorCode, body)
	}
	return nil
}
