// Package geminiclient extracts student rosters from documents with the Gemini generateContent API.
package geminiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"asistencia/internal/attendance"
)

const rosterPrompt = `
Analiza este documento que contiene una lista de estudiantes.
Extrae los nombres completos de los estudiantes y sus números de identificación si están presentes.
Limpia los nombres de caracteres especiales extraños.
Devuelve los datos en un formato de arreglo JSON estructurado.
`

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("gemini api key not configured")

// Client calls the generative model over REST.
type Client struct {
	BaseURL string
	Model   string
	APIKey  string
	HTTP    *http.Client
}

// New creates a client with configurable timeout.
func New(baseURL, model, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	InlineData *inlineData `json:"inlineData,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type schema struct {
	Type             string            `json:"type"`
	Description      string            `json:"description,omitempty"`
	Items            *schema           `json:"items,omitempty"`
	Properties       map[string]schema `json:"properties,omitempty"`
	Required         []string          `json:"required,omitempty"`
	PropertyOrdering []string          `json:"propertyOrdering,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

var rosterSchema = &schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"name":       {Type: "STRING", Description: "Nombre completo del estudiante"},
			"externalId": {Type: "STRING", Description: "ID o Matrícula"},
		},
		Required:         []string{"name", "externalId"},
		PropertyOrdering: []string{"name", "externalId"},
	},
}

// ParseRoster sends the document inline and decodes the JSON array the model returns.
func (c *Client) ParseRoster(ctx context.Context, data []byte, mediaType string) ([]attendance.RosterEntry, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if len(data) == 0 {
		return nil, errors.New("geminiclient: empty document")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{MimeType: mediaType, Data: base64.StdEncoding.EncodeToString(data)}},
			{Text: rosterPrompt},
		}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json", ResponseSchema: rosterSchema},
	})
	if err != nil {
		return nil, errors.Wrap(err, "geminiclient.marshal")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "gemini request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("gemini error %s: %s", resp.Status, string(bodyBytes))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}

	var text strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	result := strings.TrimSpace(text.String())
	if result == "" {
		result = "[]"
	}

	var entries []attendance.RosterEntry
	if err := json.Unmarshal([]byte(result), &entries); err != nil {
		return nil, errors.Wrap(err, "model returned malformed roster")
	}
	return entries, nil
}
