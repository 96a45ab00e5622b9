// Package store owns the client-side conversation state: the live message
// mirror, the saved history list, and their synchronization to a persisted
// slot. All mutations go through the operations defined here; renderers
// observe state through accessors and change notifications.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/hikari-ai/chat-assistant/internal/model"
	"github.com/hikari-ai/chat-assistant/pkg/logger"
)

// PlaceholderTitle is assigned to a history created before its first exchange.
const PlaceholderTitle = "New Chat"

var (
	// ErrEmptyMessage rejects an empty or whitespace-only submission.
	ErrEmptyMessage = goerr.New("message is empty")

	// ErrBusy rejects a submission while an exchange is in flight.
	// Concurrent submissions are rejected, never queued.
	ErrBusy = goerr.New("an exchange is already in flight")
)

// Completer produces one assistant reply for a sequence of prior turns.
type Completer interface {
	Complete(ctx context.Context, turns []model.Turn) (string, error)
}

// Store is the conversation store. All methods are safe for concurrent use,
// though at most one exchange may be in flight at a time.
type Store struct {
	mu        sync.Mutex
	histories []*model.ChatHistory
	currentID string
	messages  []model.Message
	busy      bool

	completer Completer
	slot      Slot
	logger    *logger.Logger
	observers []func()
}

// New creates a store and loads any previously persisted histories from the
// slot. A corrupt slot is treated as empty rather than failing startup.
func New(completer Completer, slot Slot, log *logger.Logger) *Store {
	s := &Store{
		completer: completer,
		slot:      slot,
		logger:    log,
	}

	if slot != nil {
		histories, err := slot.Load()
		if err != nil {
			log.Warn("discarding unreadable history slot", zap.Error(err))
		} else {
			s.histories = histories
		}
	}

	return s
}

// Notify registers a callback invoked after every state mutation.
// Callbacks run outside the store lock and must not mutate the store.
func (s *Store) Notify(fn func()) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// NewChat creates an empty history, makes it current, and clears the mirror.
func (s *Store) NewChat() model.ChatHistory {
	now := time.Now()
	h := &model.ChatHistory{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Title:     PlaceholderTitle,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.histories = append([]*model.ChatHistory{h}, s.histories...)
	s.currentID = h.ID
	s.messages = nil
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return h.Clone()
}

// Select makes the matching history current and loads its messages into the
// mirror. An unknown id is silently ignored.
func (s *Store) Select(id string) {
	s.mu.Lock()
	h := s.findLocked(id)
	if h != nil {
		s.currentID = id
		s.messages = make([]model.Message, len(h.Messages))
		copy(s.messages, h.Messages)
	}
	s.mu.Unlock()

	if h != nil {
		s.notify()
	}
}

// Delete removes the matching history. Deleting the current history also
// clears the current reference and the mirror. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	found := false
	for i, h := range s.histories {
		if h.ID == id {
			s.histories = append(s.histories[:i], s.histories[i+1:]...)
			found = true
			break
		}
	}
	if found {
		if s.currentID == id {
			s.currentID = ""
			s.messages = nil
		}
		s.saveLocked()
	}
	s.mu.Unlock()

	if found {
		s.notify()
	}
}

// UpdateTitle sets an explicit title on the matching history.
func (s *Store) UpdateTitle(id, title string) {
	s.mu.Lock()
	h := s.findLocked(id)
	if h != nil {
		h.Title = DeriveTitle(title)
		h.UpdatedAt = time.Now()
		s.saveLocked()
	}
	s.mu.Unlock()

	if h != nil {
		s.notify()
	}
}

// AppendExchange submits the user's text and folds the resulting exchange
// into the active history, creating one when none is active. On failure the
// history list is left untouched; the user's turn stays visible in the
// mirror but is not persisted.
func (s *Store) AppendExchange(ctx context.Context, userText string) (model.Message, error) {
	if strings.TrimSpace(userText) == "" {
		return model.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	s.busy = true

	userMsg := model.Message{
		Role:      model.RoleUser,
		Content:   userText,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, userMsg)

	prompt := model.TurnsOf(s.messages)
	s.mu.Unlock()

	// The typed turn is visible in the mirror while the call is in flight.
	s.notify()

	content, err := s.completer.Complete(ctx, prompt)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.mu.Unlock()
		return model.Message{}, goerr.Wrap(err, "exchange failed")
	}

	assistantMsg := model.Message{
		Role:      model.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, assistantMsg)

	now := time.Now()
	if h := s.findLocked(s.currentID); h != nil {
		h.Messages = make([]model.Message, len(s.messages))
		copy(h.Messages, s.messages)
		if h.Title == "" || h.Title == PlaceholderTitle {
			h.Title = DeriveTitle(s.firstUserTextLocked())
		}
		h.UpdatedAt = now
	} else {
		h := &model.ChatHistory{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Title:     DeriveTitle(s.firstUserTextLocked()),
			Messages:  make([]model.Message, len(s.messages)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		copy(h.Messages, s.messages)
		s.histories = append([]*model.ChatHistory{h}, s.histories...)
		s.currentID = h.ID
	}
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
	return assistantMsg, nil
}

// Histories returns a snapshot of the saved histories, most recent first.
func (s *Store) Histories() []model.ChatHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ChatHistory, len(s.histories))
	for i, h := range s.histories {
		out[i] = h.Clone()
	}
	return out
}

// Current returns the id of the active history, or "" when none is active.
func (s *Store) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Messages returns a snapshot of the live mirror.
func (s *Store) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) findLocked(id string) *model.ChatHistory {
	if id == "" {
		return nil
	}
	for _, h := range s.histories {
		if h.ID == id {
			return h
		}
	}
	return nil
}

func (s *Store) firstUserTextLocked() string {
	for _, msg := range s.messages {
		if msg.Role == model.RoleUser {
			return msg.Content
		}
	}
	return PlaceholderTitle
}

// saveLocked rewrites the whole slot. Save failures are logged, never
// surfaced: a persistence fault must not take down the session.
func (s *Store) saveLocked() {
	if s.slot == nil {
		return
	}
	if err := s.slot.Save(s.histories); err != nil {
		s.logger.Warn("failed to persist histories", zap.Error(err))
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	observers := make([]func(), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}
