// Package dialog keeps per-chat "awaiting next reply" state for multi-step
// forms and dispatches inbound text either to the pending step or to the
// command table.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrValidation marks bad user input. The step that returned it is armed
// again so the user can retry.
var ErrValidation = errors.New("invalid input")

// Validation wraps a user-facing message as a validation error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ValidationMessage returns the text to show for a validation error.
func ValidationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}

type StepKind int

const (
	StepNone StepKind = iota
	AwaitingNewUsername
	AwaitingNewQuota
	AwaitingNewDays
	AwaitingShowUsername
	AwaitingDeleteUsername
	AwaitingRename
	AwaitingTrafficLimit
	AwaitingExpiration
	AwaitingBroadcastText
	AwaitingHelpMessage
	AwaitingMerchantID
	AwaitingPaymentKey
	AwaitingPrices
)

var stepNames = map[StepKind]string{
	StepNone:               "none",
	AwaitingNewUsername:    "awaiting_new_username",
	AwaitingNewQuota:       "awaiting_new_quota",
	AwaitingNewDays:        "awaiting_new_days",
	AwaitingShowUsername:   "awaiting_show_username",
	AwaitingDeleteUsername: "awaiting_delete_username",
	AwaitingRename:         "awaiting_rename",
	AwaitingTrafficLimit:   "awaiting_traffic_limit",
	AwaitingExpiration:     "awaiting_expiration",
	AwaitingBroadcastText:  "awaiting_broadcast_text",
	AwaitingHelpMessage:    "awaiting_help_message",
	AwaitingMerchantID:     "awaiting_merchant_id",
	AwaitingPaymentKey:     "awaiting_payment_key",
	AwaitingPrices:         "awaiting_prices",
}

func (k StepKind) String() string {
	if name, ok := stepNames[k]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(k))
}

// State is the pending form step of one chat with the arguments collected
// so far.
type State struct {
	Step     StepKind
	Username string
	QuotaGB  int
	Audience string
}

type Result int

const (
	Unhandled Result = iota
	Handled
)

const CancelCommand = "/cancel"

type StepFunc func(ctx context.Context, chatID int64, text string, st State) error

type Handler func(ctx context.Context, chatID int64, text string) error

// CommandLookup resolves text to a handler. It sees the chat so it can pick
// the admin or client table and the chat's language.
type CommandLookup func(chatID int64, text string) (Handler, bool)

type chatLock struct {
	mu   sync.Mutex
	refs int
}

type Router struct {
	mu     sync.Mutex
	states map[int64]State
	locks  map[int64]*chatLock
	steps  map[StepKind]StepFunc
	lookup CommandLookup
}

func NewRouter(lookup CommandLookup) *Router {
	return &Router{
		states: map[int64]State{},
		locks:  map[int64]*chatLock{},
		steps:  map[StepKind]StepFunc{},
		lookup: lookup,
	}
}

func (r *Router) RegisterStep(kind StepKind, fn StepFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[kind] = fn
}

// SetState arms the next step for the chat, replacing any pending one.
func (r *Router) SetState(chatID int64, st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[chatID] = st
}

func (r *Router) Clear(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, chatID)
}

func (r *Router) StateOf(chatID int64) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[chatID]
	return st, ok
}

func (r *Router) take(chatID int64) (State, StepFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[chatID]
	if !ok {
		return State{}, nil, false
	}
	delete(r.states, chatID)
	return st, r.steps[st.Step], true
}

func (r *Router) lockChat(chatID int64) func() {
	r.mu.Lock()
	l, ok := r.locks[chatID]
	if !ok {
		l = &chatLock{}
		r.locks[chatID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, chatID)
		}
		r.mu.Unlock()
	}
}

// Dispatch routes one message. Messages of the same chat are handled one at a
// time. A pending step is cleared before it runs, so a step may arm the next
// one. When a step reports ErrValidation and arms nothing, it is armed again.
func (r *Router) Dispatch(ctx context.Context, chatID int64, text string) (Result, error) {
	unlock := r.lockChat(chatID)
	defer unlock()

	if strings.TrimSpace(text) == CancelCommand {
		r.Clear(chatID)
		return Handled, nil
	}

	if st, step, ok := r.take(chatID); ok {
		if step == nil {
			log.Warnf("Dispatch: no step registered for %s in chat %d", st.Step, chatID)
			return Unhandled, nil
		}
		err := step(ctx, chatID, text, st)
		if errors.Is(err, ErrValidation) {
			r.mu.Lock()
			if _, rearmed := r.states[chatID]; !rearmed {
				r.states[chatID] = st
			}
			r.mu.Unlock()
		}
		return Handled, err
	}

	if r.lookup == nil {
		return Unhandled, nil
	}
	handler, ok := r.lookup(chatID, text)
	if !ok {
		return Unhandled, nil
	}
	return Handled, handler(ctx, chatID, text)
}
