package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/folio/internal/backup"
	"github.com/starford/folio/internal/chat"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/mention"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/snippet"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/structure"
)

var errConfigRequired = errors.New("config is required")

// newLogger builds the JSON logger. With a log file configured, records go
// to both the console and a lumberjack-rotated file.
func newLogger(cfg ApplicationConfig, console io.Writer) (*slog.Logger, func() error) {
	if console == nil {
		console = os.Stdout
	}
	out := console
	closeLog := func() error { return nil }
	if cfg.Log.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   cfg.Log.Compress,
		}
		out = io.MultiWriter(console, rotating)
		closeLog = rotating.Close
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closeLog
}

// services is the set of stores every command works with.
type services struct {
	store     storage.Provider
	db        *index.DB
	codex     *codex.Manager
	library   *library.Manager
	scenes    *manuscript.Store
	structure *structure.Store
	chats     *chat.Store
	snippets  *snippet.Store
	backup    *backup.Service
	mentions  *mention.Tracker
}

// openServices opens the library and, when withIndex is set, the search
// index database.
func openServices(cfg *Config, logger *slog.Logger, withIndex bool) (*services, error) {
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	s := &services{store: store}
	if withIndex {
		if s.db, err = index.Open(cfg.SQLite.Path); err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
	}

	s.codex = codex.NewManager(store, logger, codex.WithListPolicy(cfg.Library.ListPolicy()))
	s.library = library.NewManager(store, s.codex, logger,
		library.WithProjectsDir(cfg.Library.ProjectsDir),
		library.WithRecentWindow(cfg.Library.RecentWindow),
	)
	s.scenes = manuscript.NewStore(store, logger)
	s.structure = structure.NewStore(store, s.scenes, logger)
	s.chats = chat.NewStore(store, logger)
	s.snippets = snippet.NewStore(store, logger)
	s.backup = backup.NewService(s.library, s.structure, s.scenes, s.codex, s.chats, s.snippets, logger)
	s.mentions = mention.NewTracker(s.codex, s.structure, s.scenes, s.snippets, logger)
	return s, nil
}

// resolveProject finds a project by id, falling back to a library-relative path.
func (s *services) resolveProject(ref string) (models.Project, error) {
	p, err := s.library.ProjectByID(ref)
	if err != nil {
		return s.library.GetProject(ref)
	}
	return p, nil
}

// searcher returns the index as a Searcher, or nil without one.
func (s *services) searcher() index.Searcher {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *services) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
