package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Classify reports which kind of document lives at the library-relative
// path p, or "" when the file is not indexed. Scenes are .md files directly
// under a manuscript directory; codex entries are .json files in a category
// directory below a codex directory. Nothing under the trash is indexed.
func Classify(p string) string {
	if strings.HasPrefix(p, layout.TrashDir+"/") || strings.HasPrefix(p, layout.MetaDir+"/") {
		return ""
	}
	dir := path.Dir(p)
	switch path.Ext(p) {
	case ".md":
		if path.Base(dir) == "manuscript" {
			return KindScene
		}
	case ".json":
		if path.Base(path.Dir(dir)) == "codex" {
			return KindCodex
		}
	}
	return ""
}

// ScopeOf returns the project or series root of an indexed document:
// the directory holding its manuscript or codex directory.
func ScopeOf(p string) string {
	switch Classify(p) {
	case KindScene:
		return path.Dir(path.Dir(p))
	case KindCodex:
		return path.Dir(path.Dir(path.Dir(p)))
	}
	return ""
}

// Sync walks the library and brings the index up to date:
//   - new/changed scenes and codex entries are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := indexable(store)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	indexed := 0
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			indexed++
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	removed := 0
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				removed++
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	logger.Info("sync: done",
		slog.Int("documents", len(metas)), slog.Int("indexed", indexed), slog.Int("removed", removed))
	return nil
}

// indexable lists every scene and codex entry file in the library.
func indexable(store storage.Provider) ([]storage.FileMeta, error) {
	var out []storage.FileMeta
	for _, ext := range []string{".md", ".json"} {
		metas, err := store.List("", ext)
		if err != nil {
			return nil, err
		}
		for _, m := range metas {
			if Classify(m.Path) != "" {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// indexFile parses data according to its kind and upserts it into the DB.
func indexFile(db *DB, p string, data []byte) error {
	kind := Classify(p)
	var (
		title, body string
		updated     int64
	)
	switch kind {
	case KindScene:
		meta, content, err := manuscript.Parse(data)
		if err != nil {
			return err
		}
		title, body, updated = meta.Title, content, meta.UpdatedAt
	case KindCodex:
		var e models.CodexEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("index: decode codex entry: %w", err)
		}
		title, body, updated = e.Name, codexText(e), e.UpdatedAt
	default:
		return fmt.Errorf("index: %s is not an indexed document", p)
	}

	row := DocumentRow{
		Path:      p,
		Kind:      kind,
		Scope:     ScopeOf(p),
		Title:     title,
		Checksum:  checksum.Sum(data),
		UpdatedAt: timeOf(updated),
	}
	return db.Upsert(row, body)
}

// codexText flattens the searchable fields of an entry into one body.
func codexText(e models.CodexEntry) string {
	parts := []string{e.Description}
	parts = append(parts, e.Aliases...)
	parts = append(parts, e.Tags...)
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Attributes[k])
	}
	parts = append(parts, e.Notes, e.AIContext)

	var b strings.Builder
	for _, p := range parts {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p)
	}
	return b.String()
}

func timeOf(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
