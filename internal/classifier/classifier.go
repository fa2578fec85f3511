// Package classifier turns free-form user text into a structured category
// intent by calling the Gemini generateContent endpoint.
package classifier

import (
	"context"
	"encoding/json"
	"strings"
)

// Recognized intent values. The vocabulary is fixed by the prompt; anything
// else the model invents is treated as unknown by the dispatcher.
const (
	IntentList        = "listar"
	IntentCreate      = "crear"
	IntentDelete      = "eliminar"
	IntentUpdate      = "actualizar"
	IntentApplyUpdate = "actualizar_datos"
	IntentSelect      = "seleccionar_categoria"
	IntentUnknown     = "desconocida"
	IntentError       = "error"
)

// User-visible messages for classifier failure modes.
const (
	MsgRateLimited  = "Límite de solicitudes alcanzado."
	MsgConnectError = "Error al conectar con la IA."
)

// Fields carries the category fields the model extracted from the message.
type Fields struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// Result is the structured classification of one user message.
type Result struct {
	Intent    string    `json:"intencion"`
	Data      *Fields   `json:"datos,omitempty"`
	Selection Selection `json:"seleccion,omitempty"`
	Message   string    `json:"error,omitempty"`
}

// Selection is a category reference: an exact name or a 1-based position.
// The model returns it sometimes as a JSON string and sometimes as a bare
// number, so it unmarshals from either.
type Selection string

// UnmarshalJSON accepts both "2" and 2 on the wire.
func (s *Selection) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Selection(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = Selection(num.String())
	return nil
}

// Classifier classifies a user message into an intent result. Transport and
// rate-limit failures are folded into the result (intent "error"); a non-nil
// error is reserved for callers' fakes and context cancellation.
type Classifier interface {
	Classify(ctx context.Context, message string) (*Result, error)
}

// errorResult builds the error-intent result for a failure mode.
func errorResult(msg string) *Result {
	return &Result{Intent: IntentError, Message: msg}
}

// unknownResult is returned when the model reply cannot be interpreted.
func unknownResult() *Result {
	return &Result{Intent: IntentUnknown}
}
