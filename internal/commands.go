package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/folio/internal/backup"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/validate"
)

// withServices runs fn against freshly opened services and closes them
// afterwards.
func withServices(opts []Option, withIndex bool, fn func(*services, *slog.Logger) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(app.config.App, app.console)
	defer closeLog()

	svc, err := openServices(app.config, logger, withIndex)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc, logger)
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	return withServices(append(opts, WithConsole(os.Stderr)), true, func(svc *services, logger *slog.Logger) error {
		if err := index.Sync(svc.db, svc.store, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		srv := mcpserver.New(mcpserver.Deps{
			Library:   svc.library,
			Structure: svc.structure,
			Scenes:    svc.scenes,
			Codex:     svc.codex,
			Backup:    svc.backup,
			Mentions:  svc.mentions,
			Search:    svc.searcher(),
		}, app.version)
		logger.Info("MCP server starting", slog.String("library_path", app.config.Library.Path))
		return srv.ServeStdio()
	})
}

// ExportProject writes a backup of the project identified by ref (an id
// or a library-relative path) and returns the backup file path.
func ExportProject(_ context.Context, ref string, opts ...Option) (string, error) {
	var file string
	err := withServices(opts, false, func(svc *services, _ *slog.Logger) error {
		p, err := svc.resolveProject(ref)
		if err != nil {
			return err
		}
		file, err = svc.backup.ExportProjectBackup(p.Path)
		return err
	})
	return file, err
}

// ExportText writes the manuscript of the project identified by ref as
// plain text into its exports directory and returns the file path.
func ExportText(_ context.Context, ref string, opts ...Option) (string, error) {
	var file string
	err := withServices(opts, false, func(svc *services, _ *slog.Logger) error {
		p, err := svc.resolveProject(ref)
		if err != nil {
			return err
		}
		file, err = svc.backup.ExportManuscriptText(p.Path)
		return err
	})
	return file, err
}

// ExportSeries writes a backup of a series and returns the file path.
func ExportSeries(_ context.Context, seriesID string, opts ...Option) (string, error) {
	var file string
	err := withServices(opts, false, func(svc *services, _ *slog.Logger) error {
		var err error
		file, err = svc.backup.ExportSeriesBackup(seriesID)
		return err
	})
	return file, err
}

// ImportSeries imports a series backup file as a new series.
func ImportSeries(_ context.Context, filename string, opts ...Option) (backup.ImportResult, error) {
	var res backup.ImportResult
	err := withServices(opts, false, func(svc *services, _ *slog.Logger) error {
		info, err := os.Stat(filename)
		if err != nil {
			return err
		}
		if info.Size() > validate.MaxBackupSize {
			return fmt.Errorf("%s: backup is larger than %d bytes", filename, validate.MaxBackupSize)
		}
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		res, err = svc.backup.ImportSeriesBackup(data)
		return err
	})
	return res, err
}

// ImportProject imports a project backup file into a series.
func ImportProject(_ context.Context, filename, seriesID, seriesIndex string, opts ...Option) (models.Project, error) {
	var p models.Project
	err := withServices(opts, false, func(svc *services, _ *slog.Logger) error {
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		p, err = svc.backup.ImportProjectBackup(data, seriesID, seriesIndex)
		return err
	})
	return p, err
}

// Reindex synchronizes the search index with the library and returns the
// number of indexed documents.
func Reindex(_ context.Context, opts ...Option) (int, error) {
	var n int
	err := withServices(opts, true, func(svc *services, logger *slog.Logger) error {
		if err := index.Sync(svc.db, svc.store, logger); err != nil {
			return err
		}
		var err error
		n, err = svc.db.Count("")
		return err
	})
	return n, err
}
