package agent

import "nexo_bot/internal/state"

// Result is what one turn produces. The transport switches on the concrete
// type: Reply is sent as is, NeedsConfirmation and NeedsSelection render
// buttons or a follow-up question.
type Result interface {
	Message() string
}

type Reply struct {
	Text string
	// NotFound marks a reply whose target could not be resolved, so the
	// caller can keep the input it was holding for it.
	NotFound bool
}

func (r Reply) Message() string { return r.Text }

type ConfirmationKind string

const (
	ConfirmPayment        ConfirmationKind = "payment"
	ConfirmDeadline       ConfirmationKind = "deadline"
	ConfirmPartialAmount  ConfirmationKind = "partial_amount"
	ConfirmCustomDeadline ConfirmationKind = "custom_deadline"
)

// NeedsConfirmation pauses the turn until the user supplies one more field
// of a recorded sale.
type NeedsConfirmation struct {
	Kind     ConfirmationKind
	Prompt   string
	OrderID  string
	ClientID string
}

func (c NeedsConfirmation) Message() string { return c.Prompt }

// NeedsSelection pauses a tool call until the user picks one candidate.
type NeedsSelection struct {
	Type       state.SelectionKind
	Prompt     string
	Candidates []state.Candidate
	Action     string
	Args       map[string]any
	Slot       string
}

func (s NeedsSelection) Message() string { return s.Prompt }
