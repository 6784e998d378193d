package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPhotoTTL = 5 * time.Minute
	DefaultIdleTTL  = 30 * time.Minute
)

// Conversation is the durable per-user record.
type Conversation struct {
	UserID       int64     `json:"user_id"`
	History      []Message `json:"history,omitempty"`
	PendingPhoto string    `json:"pending_photo,omitempty"`
	PhotoAt      time.Time `json:"photo_at,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

// Backend persists conversations keyed by user id. Load reports false for
// an unknown user.
type Backend interface {
	Load(ctx context.Context, userID int64) (Conversation, bool, error)
	Save(ctx context.Context, conv Conversation) error
	Delete(ctx context.Context, userID int64) error
}

// Store applies the history bound and the lazy expiry windows on top of a
// Backend. Expired fields are cleared on the next access.
type Store struct {
	backend     Backend
	now         func() time.Time
	photoTTL    time.Duration
	idleTTL     time.Duration
	maxMessages int
	maxTokens   int
	logger      *zap.Logger
}

type StoreOptions struct {
	PhotoTTL    time.Duration
	IdleTTL     time.Duration
	MaxMessages int
	MaxTokens   int
	Now         func() time.Time
}

func NewStore(backend Backend, opts StoreOptions, logger *zap.Logger) *Store {
	if opts.PhotoTTL <= 0 {
		opts.PhotoTTL = DefaultPhotoTTL
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:     backend,
		now:         opts.Now,
		photoTTL:    opts.PhotoTTL,
		idleTTL:     opts.IdleTTL,
		maxMessages: opts.MaxMessages,
		maxTokens:   opts.MaxTokens,
		logger:      logger.Named("state"),
	}
}

// Get loads the conversation with expired fields already cleared.
func (s *Store) Get(ctx context.Context, userID int64) (Conversation, error) {
	conv, ok, err := s.backend.Load(ctx, userID)
	if err != nil {
		return Conversation{}, fmt.Errorf("load conversation %d: %w", userID, err)
	}
	if !ok {
		return Conversation{UserID: userID}, nil
	}
	s.expire(&conv)
	return conv, nil
}

func (s *Store) expire(conv *Conversation) {
	now := s.now()
	if conv.PendingPhoto != "" && now.Sub(conv.PhotoAt) > s.photoTTL {
		s.logger.Debug("pending photo expired", zap.Int64("user_id", conv.UserID))
		conv.PendingPhoto = ""
		conv.PhotoAt = time.Time{}
	}
	if len(conv.History) > 0 && !conv.LastActivity.IsZero() && now.Sub(conv.LastActivity) > s.idleTTL {
		s.logger.Debug("history expired after inactivity", zap.Int64("user_id", conv.UserID))
		conv.History = nil
	}
}

func (s *Store) update(ctx context.Context, userID int64, fn func(*Conversation)) error {
	conv, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	fn(&conv)
	conv.LastActivity = s.now()
	if err := s.backend.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation %d: %w", userID, err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, userID int64) ([]Message, error) {
	conv, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return conv.History, nil
}

// AppendExchange stores a user message and the reply that answered it.
func (s *Store) AppendExchange(ctx context.Context, userID int64, userText, reply string) error {
	return s.update(ctx, userID, func(conv *Conversation) {
		h := NewHistory(conv.History, s.maxMessages, s.maxTokens, s.logger)
		h.Append(
			Message{Role: RoleUser, Content: userText},
			Message{Role: RoleAssistant, Content: reply},
		)
		conv.History = h.Messages()
	})
}

func (s *Store) ClearHistory(ctx context.Context, userID int64) error {
	return s.update(ctx, userID, func(conv *Conversation) {
		conv.History = nil
	})
}

func (s *Store) SetPendingPhoto(ctx context.Context, userID int64, fileID string) error {
	return s.update(ctx, userID, func(conv *Conversation) {
		conv.PendingPhoto = fileID
		conv.PhotoAt = s.now()
	})
}

// PendingPhoto reports the unexpired pending photo, if any.
func (s *Store) PendingPhoto(ctx context.Context, userID int64) (string, bool, error) {
	conv, err := s.Get(ctx, userID)
	if err != nil {
		return "", false, err
	}
	return conv.PendingPhoto, conv.PendingPhoto != "", nil
}

func (s *Store) ClearPendingPhoto(ctx context.Context, userID int64) error {
	return s.update(ctx, userID, func(conv *Conversation) {
		conv.PendingPhoto = ""
		conv.PhotoAt = time.Time{}
	})
}

// Reset drops everything stored for the user.
func (s *Store) Reset(ctx context.Context, userID int64) error {
	if err := s.backend.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete conversation %d: %w", userID, err)
	}
	return nil
}

// MemoryBackend keeps conversations in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	convs map[int64]Conversation
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{convs: make(map[int64]Conversation)}
}

func (m *MemoryBackend) Load(_ context.Context, userID int64) (Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[userID]
	if !ok {
		return Conversation{}, false, nil
	}
	conv.History = append([]Message(nil), conv.History...)
	return conv, true, nil
}

func (m *MemoryBackend) Save(_ context.Context, conv Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.History = append([]Message(nil), conv.History...)
	m.convs[conv.UserID] = conv
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, userID)
	return nil
}
