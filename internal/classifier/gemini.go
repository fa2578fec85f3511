package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dromero/tienda-server/internal/config"
)

// instruction is the fixed prompt describing the six recognized intents.
// The expected reply shape is pinned with examples so the model answers in
// machine-readable JSON.
const instruction = `Analiza el mensaje del usuario: %q.
Determina la intención del usuario respecto a operaciones con categorías (crear, listar, actualizar, eliminar, seleccionar_categoria, actualizar_datos).
Devuelve un JSON con la intención y los datos relevantes, por ejemplo:
{ "intencion": "crear", "datos": {"nombre": "Nombre", "descripcion": "Descripción"} }
{ "intencion": "listar" }, etc.`

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ Classifier = (*GeminiClient)(nil)

// NewGeminiClient creates a classifier backed by the Gemini API.
func NewGeminiClient(cfg config.ClassifierConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier API key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"response_mime_type"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Classify sends the user message to Gemini and parses the intent JSON.
// HTTP 429 maps to the rate-limit error intent; any other transport failure
// maps to the connectivity error intent. A model reply that is not valid
// intent JSON maps to "desconocida" rather than faulting.
func (c *GeminiClient) Classify(ctx context.Context, message string) (*Result, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf(instruction, message)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Classifier request failed", "error", err)
		return errorResult(MsgConnectError), nil
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close classifier response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("Classifier rate limited", "model", c.model)
		return errorResult(MsgRateLimited), nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("Classifier request rejected", "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
		return errorResult(MsgConnectError), nil
	}

	var envelope geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		slog.Warn("Classifier returned malformed envelope", "error", err)
		return unknownResult(), nil
	}

	text := candidateText(envelope)
	if text == "" {
		slog.Warn("Classifier returned no candidates")
		return unknownResult(), nil
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		slog.Warn("Classifier returned malformed intent JSON", "error", err, "text_length", len(text))
		return unknownResult(), nil
	}
	if result.Intent == "" {
		return unknownResult(), nil
	}
	return &result, nil
}

func candidateText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
}
