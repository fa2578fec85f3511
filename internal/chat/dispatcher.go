// Package chat implements the category chat assistant: intent dispatch,
// conversation log access, live subscription, and the HTTP/WebSocket surface.
package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dromero/tienda-server/internal/classifier"
	"github.com/dromero/tienda-server/internal/domain"
)

// Assistant response texts. These are the product's user-facing strings; the
// chat UI renders them verbatim.
const (
	msgNoCategories   = "No hay categorías registradas."
	msgMissingFields  = "Faltan datos para crear la categoría."
	msgNotFound       = "No se encontró la categoría especificada."
	msgUpdateNotFound = "Categoría no encontrada."
	msgUpdated        = "Categoría actualizada exitosamente."
	msgInvalidChoice  = "Selección inválida."
	msgGuidance       = "No entendí tu solicitud. Usa crear, listar, actualizar o eliminar."
	msgProcessError   = "Error al procesar la solicitud."
)

// MutationKind identifies the store mutation a dispatch decided on.
type MutationKind int

const (
	MutationNone MutationKind = iota
	MutationCreate
	MutationUpdate
	MutationDelete
)

// Mutation is the zero-or-one store write produced by a dispatch.
type Mutation struct {
	Kind     MutationKind
	Category domain.Category // payload for create/update; update carries the id
	TargetID string          // id for delete
}

// Outcome is the result of dispatching one user message: the next session
// state, an optional store mutation, and exactly one assistant response.
type Outcome struct {
	Session  domain.Session
	Mutation *Mutation
	Response string
}

// Dispatch executes one turn of the category assistant. It is a pure function
// over the classified intent, the session state, and the category snapshot
// taken at dispatch time; the caller applies the mutation and appends the
// response to the conversation log. Every branch produces a response.
func Dispatch(userText string, session domain.Session, result *classifier.Result, categories []domain.Category) Outcome {
	if result == nil {
		return Outcome{Session: session, Response: msgGuidance}
	}

	switch result.Intent {
	case classifier.IntentList:
		return listCategories(session, categories)

	case classifier.IntentCreate:
		return createCategory(session, result)

	case classifier.IntentDelete:
		return deleteCategory(session, result, categories)

	case classifier.IntentUpdate:
		return updateCategory(session, result, categories)

	case classifier.IntentApplyUpdate:
		return applyUpdate(session, result)

	case classifier.IntentSelect:
		return selectCategory(userText, session, categories)

	case classifier.IntentError:
		msg := result.Message
		if msg == "" {
			msg = classifier.MsgConnectError
		}
		return Outcome{Session: session, Response: msg}

	default:
		return Outcome{Session: session, Response: msgGuidance}
	}
}

func listCategories(session domain.Session, categories []domain.Category) Outcome {
	if len(categories) == 0 {
		return Outcome{Session: session, Response: msgNoCategories}
	}
	return Outcome{
		Session:  session,
		Response: "Categorías disponibles:\n" + enumerate(categories),
	}
}

func createCategory(session domain.Session, result *classifier.Result) Outcome {
	data := result.Data
	if data == nil || data.Name == "" || data.Description == "" {
		return Outcome{Session: session, Response: msgMissingFields}
	}
	return Outcome{
		Session: session,
		Mutation: &Mutation{
			Kind:     MutationCreate,
			Category: domain.Category{Name: data.Name, Description: data.Description},
		},
		Response: fmt.Sprintf("Categoría %q registrada.", data.Name),
	}
}

func deleteCategory(session domain.Session, result *classifier.Result, categories []domain.Category) Outcome {
	if result.Selection == "" {
		// No selection yet: enter the follow-up flow. A new ambiguous intent
		// overwrites any prior pending state.
		session.Pending = domain.PendingDelete
		session.Selected = nil
		return Outcome{
			Session:  session,
			Response: "Selecciona una categoría para eliminar:\n" + enumerate(categories),
		}
	}

	found := resolve(string(result.Selection), categories)
	if found == nil {
		return Outcome{Session: session, Response: msgNotFound}
	}
	return Outcome{
		Session:  session,
		Mutation: &Mutation{Kind: MutationDelete, TargetID: found.ID, Category: *found},
		Response: fmt.Sprintf("Categoría %q eliminada.", found.Name),
	}
}

func updateCategory(session domain.Session, result *classifier.Result, categories []domain.Category) Outcome {
	if result.Selection == "" {
		session.Pending = domain.PendingUpdate
		session.Selected = nil
		return Outcome{
			Session:  session,
			Response: "Selecciona una categoría para actualizar:\n" + enumerate(categories),
		}
	}

	found := resolve(string(result.Selection), categories)
	if found == nil {
		return Outcome{Session: session, Response: msgUpdateNotFound}
	}
	session.Pending = domain.PendingUpdate
	session.Selected = found
	return Outcome{
		Session:  session,
		Response: fmt.Sprintf("Seleccionaste %q. Proporciona los nuevos datos.", found.Name),
	}
}

func applyUpdate(session domain.Session, result *classifier.Result) Outcome {
	if session.Selected == nil || result.Data == nil {
		return Outcome{Session: session, Response: msgGuidance}
	}

	// Partial update: missing fields fall back to the current values.
	updated := *session.Selected
	if result.Data.Name != "" {
		updated.Name = result.Data.Name
	}
	if result.Data.Description != "" {
		updated.Description = result.Data.Description
	}

	session.Reset()
	return Outcome{
		Session:  session,
		Mutation: &Mutation{Kind: MutationUpdate, Category: updated},
		Response: msgUpdated,
	}
}

func selectCategory(userText string, session domain.Session, categories []domain.Category) Outcome {
	if session.Pending != domain.PendingDelete && session.Pending != domain.PendingUpdate {
		return Outcome{Session: session, Response: msgGuidance}
	}

	// The selection is resolved from the raw message text, not classifier data.
	found := resolve(strings.TrimSpace(userText), categories)
	if found == nil {
		return Outcome{Session: session, Response: msgInvalidChoice}
	}

	if session.Pending == domain.PendingDelete {
		session.Pending = domain.PendingNone
		return Outcome{
			Session:  session,
			Mutation: &Mutation{Kind: MutationDelete, TargetID: found.ID, Category: *found},
			Response: fmt.Sprintf("Categoría %q eliminada.", found.Name),
		}
	}

	// Update flow: keep the selection for the following actualizar_datos turn.
	session.Pending = domain.PendingNone
	session.Selected = found
	return Outcome{
		Session:  session,
		Response: fmt.Sprintf("Seleccionaste %q. Proporciona nuevos datos.", found.Name),
	}
}

// resolve finds a category by case-insensitive exact name match first, then
// by 1-based position in the snapshot.
func resolve(selection string, categories []domain.Category) *domain.Category {
	for i := range categories {
		if strings.EqualFold(categories[i].Name, selection) {
			cat := categories[i]
			return &cat
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(selection)); err == nil && n >= 1 && n <= len(categories) {
		cat := categories[n-1]
		return &cat
	}
	return nil
}

// enumerate renders the 1-indexed "name: description" listing.
func enumerate(categories []domain.Category) string {
	lines := make([]string, len(categories))
	for i, cat := range categories {
		lines[i] = fmt.Sprintf("%d. %s: %s", i+1, cat.Name, cat.Description)
	}
	return strings.Join(lines, "\n")
}
