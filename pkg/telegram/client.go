// Package telegram is a minimal Bot API client covering the two calls
// the delivery step needs: sendMessage and sendDocument.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.telegram.org"

// Client defines the Bot API operations.
type Client interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendDocument(ctx context.Context, chatID, path, caption string) error
}

// APIError is returned when the Bot API responds with ok=false or a
// non-2xx status.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: HTTP %d: %s", e.StatusCode, e.Description)
}

// apiResponse is the common Bot API envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default API host.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Bot API client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendMessage(ctx context.Context, chatID, text string) error {
	body := map[string]string{"chat_id": chatID, "text": text}
	if err := c.postJSON(ctx, "sendMessage", body); err != nil {
		return eris.Wrap(err, "telegram: send message")
	}
	return nil
}

func (c *httpClient) SendDocument(ctx context.Context, chatID, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "telegram: open document %s", path)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", chatID); err != nil {
		return eris.Wrap(err, "telegram: write field")
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return eris.Wrap(err, "telegram: write field")
		}
	}
	part, err := mw.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return eris.Wrap(err, "telegram: create form file")
	}
	if _, err := io.Copy(part, f); err != nil {
		return eris.Wrapf(err, "telegram: read document %s", path)
	}
	if err := mw.Close(); err != nil {
		return eris.Wrap(err, "telegram: finish form")
	}

	if err := c.post(ctx, "sendDocument", mw.FormDataContentType(), &buf); err != nil {
		return eris.Wrap(err, "telegram: send document")
	}
	return nil
}

func (c *httpClient) postJSON(ctx context.Context, method string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}
	return c.post(ctx, method, "application/json", bytes.NewReader(buf))
}

func (c *httpClient) post(ctx context.Context, method, contentType string, body io.Reader) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Description: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !api.OK {
		return &APIError{StatusCode: resp.StatusCode, Description: api.Description}
	}
	return nil
}
