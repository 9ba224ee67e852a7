package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/journeykit/delivery/internal/model"
)

// WhatsAppClient sends through the WhatsApp Cloud API (Graph API messages
// endpoint).
type WhatsAppClient struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	client        *http.Client
}

const graphAPIBase = "https://graph.facebook.com/v18.0"

func NewWhatsAppClient(phoneNumberID, accessToken string, timeout time.Duration) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:       graphAPIBase,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBaseURL overrides the Graph API endpoint, for tests.
func (c *WhatsAppClient) WithBaseURL(url string) *WhatsAppClient {
	c.baseURL = url
	return c
}

func (c *WhatsAppClient) SendText(ctx context.Context, destination, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(destination, "+"),
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	return c.post(ctx, payload)
}

func (c *WhatsAppClient) SendMedia(ctx context.Context, destination string, media model.MediaType, mediaURL, caption string) error {
	kind := string(media)
	switch media {
	case model.MediaImage, model.MediaVideo, model.MediaAudio:
	default:
		kind = "document"
	}

	body := map[string]any{"link": mediaURL}
	if caption != "" && (media == model.MediaImage || media == model.MediaVideo) {
		body["caption"] = caption
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(destination, "+"),
		"type":              kind,
		kind:                body,
	}
	return c.post(ctx, payload)
}

func (c *WhatsAppClient) post(ctx context.Context, payload map[string]any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return permanentf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return permanentf("build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return transientf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return classifyHTTP(resp.StatusCode, respBody)
}

// classifyHTTP maps transport status codes onto the failure taxonomy.
// 4xx (except 408/429) means the request itself is bad and will never
// succeed; everything else is worth retrying.
func classifyHTTP(status int, body []byte) error {
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return permanentf("status %d body=%q", status, truncate(body, 256))
	}
	return transientf("status %d body=%q", status, truncate(body, 256))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
