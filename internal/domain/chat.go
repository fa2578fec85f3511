package domain

import (
	"time"
)

// Message senders. The wire values match the original chat collection.
const (
	SenderUser      = "usuario"
	SenderAssistant = "ia"
)

// ChatMessage is one entry in the conversation log. Messages are append-only
// and totally ordered by (Timestamp, Seq); Seq disambiguates messages written
// within the same timestamp tick.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"texto"`
	Sender    string    `json:"emisor"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"-"`
}

// PendingAction records that the dispatcher is mid-way through a multi-turn
// delete or update flow, awaiting a follow-up selection.
type PendingAction string

const (
	PendingNone   PendingAction = ""
	PendingDelete PendingAction = "eliminar"
	PendingUpdate PendingAction = "actualizar"
)

// Session is the dispatcher's conversational state for one chat widget
// instance. It lives in memory only; there is no cross-session continuity.
type Session struct {
	Pending  PendingAction
	Selected *Category
}

// Reset clears both session fields.
func (s *Session) Reset() {
	s.Pending = PendingNone
	s.Selected = nil
}
