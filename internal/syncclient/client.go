// Package syncclient pushes attendance events to a spreadsheet webhook.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Enabled reports whether url looks like an execution-style webhook. Anything
// else turns sync into a no-op.
func Enabled(url string) bool {
	return url != "" && strings.Contains(url, "/exec")
}

// Payload is the JSON body the webhook receives.
type Payload struct {
	Docente    string `json:"docente"`
	Curso      string `json:"curso"`
	Estudiante string `json:"estudiante"`
	Fecha      string `json:"fecha"`
	Asistio    string `json:"asistio"`
}

// Mark converts a presence flag to the webhook's SÍ/NO token.
func Mark(present bool) string {
	if present {
		return "SÍ"
	}
	return "NO"
}

// Client posts payloads to the webhook.
type Client struct {
	HTTP *http.Client
}

// New creates a client with the given timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Push sends p as a text/plain body. The response is drained and ignored;
// only transport failures are errors.
func (c *Client) Push(ctx context.Context, url string, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "syncclient.marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "syncclient.request")
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(err, "syncclient.push")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
