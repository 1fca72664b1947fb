// Package chat stores the chat threads of a project: one threads file plus
// one message file per thread.
package chat

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/validate"
)

// Store reads and writes chat threads and messages.
type Store struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewStore creates a chat store.
func NewStore(store storage.Provider, logger *slog.Logger) *Store {
	return &Store{store: store, logger: logger}
}

func (s *Store) threads(root string) *collection.Collection[models.ChatThread] {
	return collection.New[models.ChatThread](s.store, layout.ChatThreadsFile(root))
}

func (s *Store) messages(root, threadID string) *collection.Collection[models.ChatMessage] {
	return collection.New[models.ChatMessage](s.store, layout.ChatMessagesFile(root, threadID))
}

func threadID(t models.ChatThread) string { return t.ID }
func messageID(m models.ChatMessage) string { return m.ID }

// ListThreads returns the threads of a project that are not deleted,
// pinned first, then most recently updated.
func (s *Store) ListThreads(root string) ([]models.ChatThread, error) {
	items, err := s.threads(root).Load()
	if err != nil {
		return nil, fmt.Errorf("chat: list threads: %w", err)
	}
	out := make([]models.ChatThread, 0, len(items))
	for _, t := range items {
		if t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return out, nil
}

// AllThreads returns every thread record including deleted ones.
func (s *Store) AllThreads(root string) ([]models.ChatThread, error) {
	items, err := s.threads(root).Load()
	if err != nil {
		return nil, fmt.Errorf("chat: threads: %w", err)
	}
	return items, nil
}

// GetThread returns one thread.
func (s *Store) GetThread(root, id string) (models.ChatThread, error) {
	items, err := s.threads(root).Load()
	if err != nil {
		return models.ChatThread{}, fmt.Errorf("chat: get thread: %w", err)
	}
	if t, ok := collection.Find(items, func(t models.ChatThread) bool { return t.ID == id }); ok {
		return t, nil
	}
	return models.ChatThread{}, fmt.Errorf("chat: thread %s: %w", id, apperr.ErrNotFound)
}

// CreateThread adds a new thread.
func (s *Store) CreateThread(root string, t models.ChatThread) (models.ChatThread, error) {
	if strings.TrimSpace(t.Name) == "" {
		t.Name = "New Chat"
	}
	if t.ID == "" {
		t.ID = ident.New()
	}
	if err := validate.ID("thread id", t.ID); err != nil {
		return models.ChatThread{}, err
	}
	now := stamp.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	err := s.threads(root).Update(func(items []models.ChatThread) ([]models.ChatThread, error) {
		if _, dup := collection.Find(items, func(x models.ChatThread) bool { return x.ID == t.ID }); dup {
			return nil, fmt.Errorf("chat: thread %s: %w", t.ID, apperr.ErrAlreadyExists)
		}
		return append(items, t), nil
	})
	if err != nil {
		return models.ChatThread{}, err
	}
	return t, nil
}

// ThreadUpdate is a partial thread update; nil fields are left alone.
type ThreadUpdate struct {
	Name         *string `json:"name"`
	Pinned       *bool   `json:"pinned"`
	Archived     *bool   `json:"archived"`
	DefaultModel *string `json:"defaultModel"`
}

// UpdateThread applies upd to a thread.
func (s *Store) UpdateThread(root, id string, upd ThreadUpdate) (models.ChatThread, error) {
	var out models.ChatThread
	err := s.threads(root).Update(func(items []models.ChatThread) ([]models.ChatThread, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			t := &items[i]
			if upd.Name != nil {
				t.Name = *upd.Name
			}
			if upd.Pinned != nil {
				t.Pinned = *upd.Pinned
			}
			if upd.Archived != nil {
				t.Archived = *upd.Archived
			}
			if upd.DefaultModel != nil {
				t.DefaultModel = *upd.DefaultModel
			}
			t.UpdatedAt = stamp.Now()
			out = *t
			return items, nil
		}
		return nil, fmt.Errorf("chat: thread %s: %w", id, apperr.ErrNotFound)
	})
	return out, err
}

// DeleteThread removes a thread and its message file.
func (s *Store) DeleteThread(root, id string) error {
	if err := validate.ID("thread id", id); err != nil {
		return err
	}
	err := s.threads(root).Update(func(items []models.ChatThread) ([]models.ChatThread, error) {
		kept, n := collection.Filter(items, func(t models.ChatThread) bool { return t.ID != id })
		if n == 0 {
			return nil, fmt.Errorf("chat: thread %s: %w", id, apperr.ErrNotFound)
		}
		return kept, nil
	})
	if err != nil {
		return err
	}
	if err := s.store.Delete(layout.ChatMessagesFile(root, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("chat: delete messages of %s: %w", id, err)
	}
	return nil
}

// Messages returns the messages of a thread in timestamp order.
func (s *Store) Messages(root, threadID string) ([]models.ChatMessage, error) {
	if err := validate.ID("thread id", threadID); err != nil {
		return nil, err
	}
	items, err := s.messages(root, threadID).Load()
	if err != nil {
		return nil, fmt.Errorf("chat: messages: %w", err)
	}
	sortMessages(items)
	return items, nil
}

// AddMessage appends msg to its thread and raises the thread's updatedAt.
func (s *Store) AddMessage(root string, msg models.ChatMessage) (models.ChatMessage, error) {
	if _, err := s.GetThread(root, msg.ThreadID); err != nil {
		return models.ChatMessage{}, err
	}
	if msg.ID == "" {
		msg.ID = ident.New()
	}
	msg.Role = NormalizeRole(msg.Role)
	if msg.Timestamp == 0 {
		msg.Timestamp = stamp.Now()
	}
	err := s.messages(root, msg.ThreadID).Update(func(items []models.ChatMessage) ([]models.ChatMessage, error) {
		return collection.Upsert(items, msg, messageID), nil
	})
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("chat: add message: %w", err)
	}
	err = s.threads(root).Update(func(items []models.ChatThread) ([]models.ChatThread, error) {
		for i := range items {
			if items[i].ID == msg.ThreadID && items[i].UpdatedAt < msg.Timestamp {
				items[i].UpdatedAt = msg.Timestamp
			}
		}
		return items, nil
	})
	if err != nil {
		return msg, fmt.Errorf("chat: touch thread: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes one message from a thread.
func (s *Store) DeleteMessage(root, threadID, id string) error {
	if err := validate.ID("thread id", threadID); err != nil {
		return err
	}
	return s.messages(root, threadID).Update(func(items []models.ChatMessage) ([]models.ChatMessage, error) {
		kept, n := collection.Filter(items, func(m models.ChatMessage) bool { return m.ID != id })
		if n == 0 {
			return nil, fmt.Errorf("chat: message %s: %w", id, apperr.ErrNotFound)
		}
		return kept, nil
	})
}

// ReplaceAll overwrites the threads file and writes one message file per
// thread. Used by backup import. Every thread id is checked before the
// first write.
func (s *Store) ReplaceAll(root string, threads []models.ChatThread, messages map[string][]models.ChatMessage) error {
	for _, t := range threads {
		if err := validate.ID("thread id", t.ID); err != nil {
			return err
		}
	}
	if err := s.threads(root).Save(threads); err != nil {
		return fmt.Errorf("chat: write threads: %w", err)
	}
	for _, t := range threads {
		if err := s.messages(root, t.ID).Save(messages[t.ID]); err != nil {
			return fmt.Errorf("chat: write messages of %s: %w", t.ID, err)
		}
	}
	s.logger.Debug("chat: threads replaced", slog.String("root", root), slog.Int("threads", len(threads)))
	return nil
}

// NormalizeRole maps any role other than assistant to user.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), models.RoleAssistant) {
		return models.RoleAssistant
	}
	return models.RoleUser
}

func sortMessages(items []models.ChatMessage) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp < items[j].Timestamp })
}
