package backup

import (
	"log/slog"
	"time"

	"github.com/starford/folio/internal/chat"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/snippet"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/structure"
)

// Service builds and restores backup documents on top of the stores.
type Service struct {
	store     storage.Provider
	library   *library.Manager
	structure *structure.Store
	scenes    *manuscript.Store
	codex     *codex.Manager
	chats     *chat.Store
	snippets  *snippet.Store
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for file and folder names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a backup service. All stores must share one storage root.
func NewService(
	lib *library.Manager,
	st *structure.Store,
	scenes *manuscript.Store,
	cm *codex.Manager,
	chats *chat.Store,
	snippets *snippet.Store,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:     lib.Store(),
		library:   lib,
		structure: st,
		scenes:    scenes,
		codex:     cm,
		chats:     chats,
		snippets:  snippets,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
