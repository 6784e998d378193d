package state

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultPendingTTL = 15 * time.Minute

type SelectionKind string

const (
	SelectProduct SelectionKind = "product"
	SelectClient  SelectionKind = "client"
)

type Candidate struct {
	ID    string
	Label string
}

// Selection is a paused tool call waiting for the user to pick one entity.
// Slot is the argument path that receives the chosen id, e.g. "cliente" or
// "items.1.producto".
type Selection struct {
	Kind            SelectionKind
	Action          string
	Args            map[string]any
	Slot            string
	OriginalMessage string
	Candidates      []Candidate
	CreatedAt       time.Time
}

func (s Selection) Has(id string) bool {
	for _, c := range s.Candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ActionState names the step of the sale confirmation dialogue.
type ActionState string

const (
	StatePaymentConfirmation    ActionState = "payment_confirmation"
	StatePartialPaymentAmount   ActionState = "partial_payment_amount"
	StatePartialPaymentDeadline ActionState = "partial_payment_deadline"
	StateDeadlineSelection      ActionState = "deadline_selection"
	StateCustomDeadlineInput    ActionState = "custom_deadline_input"
)

// Action is the in-flight confirmation for one recorded sale.
type Action struct {
	State           ActionState
	OrderID         string
	ClientID        string
	OriginalMessage string
	PartialAmount   decimal.Decimal
	CreatedAt       time.Time
}

// AwaitsText reports whether the next free-text message belongs to this
// action instead of the orchestrator.
func (a Action) AwaitsText() bool {
	return a.State == StatePartialPaymentAmount || a.State == StateCustomDeadlineInput
}

// PendingStore keeps at most one selection and one action per user.
// Entries are process-local and older than the ttl are ignored.
type PendingStore struct {
	mu         sync.Mutex
	selections map[int64]Selection
	actions    map[int64]Action
	ttl        time.Duration
	now        func() time.Time
}

func NewPendingStore(ttl time.Duration, now func() time.Time) *PendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	if now == nil {
		now = time.Now
	}
	return &PendingStore{
		selections: make(map[int64]Selection),
		actions:    make(map[int64]Action),
		ttl:        ttl,
		now:        now,
	}
}

func (p *PendingStore) SaveSelection(userID int64, sel Selection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = p.now()
	}
	p.selections[userID] = sel
}

func (p *PendingStore) PeekSelection(userID int64) (Selection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, ok := p.selections[userID]
	if !ok {
		return Selection{}, false
	}
	if p.now().Sub(sel.CreatedAt) > p.ttl {
		delete(p.selections, userID)
		return Selection{}, false
	}
	return sel, true
}

func (p *PendingStore) TakeSelection(userID int64) (Selection, bool) {
	sel, ok := p.PeekSelection(userID)
	if ok {
		p.ClearSelection(userID)
	}
	return sel, ok
}

func (p *PendingStore) ClearSelection(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.selections, userID)
}

func (p *PendingStore) SaveAction(userID int64, action Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = p.now()
	}
	p.actions[userID] = action
}

func (p *PendingStore) PeekAction(userID int64) (Action, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	action, ok := p.actions[userID]
	if !ok {
		return Action{}, false
	}
	if p.now().Sub(action.CreatedAt) > p.ttl {
		delete(p.actions, userID)
		return Action{}, false
	}
	return action, true
}

func (p *PendingStore) ClearAction(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.actions, userID)
}

// Clear drops both the pending selection and the pending action.
func (p *PendingStore) Clear(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.selections, userID)
	delete(p.actions, userID)
}
