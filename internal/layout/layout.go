// Package layout names every file and directory the stores use below the
// library root. All paths are slash separated and relative to the root.
package layout

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/starford/folio/internal/apperr"
)

// Library-level locations.
const (
	MetaDir     = ".meta"
	ProjectsDir = "Projects"
	SeriesDir   = "series"
	TrashDir    = "Trash"

	SeriesRegistry        = MetaDir + "/series.json"
	DeletedSeriesRegistry = MetaDir + "/deleted_series.json"
	ProjectRegistry       = MetaDir + "/project_registry.json"
	TrashRegistry         = MetaDir + "/project_trash.json"
	EmergencyBackupsDir   = MetaDir + "/emergency_backups"
)

// Project-relative locations.
const (
	manuscriptDir = "manuscript"
	snippetsDir   = "snippets"
	exportsDir    = "exports"
	codexDir      = "codex"
	chatDir       = MetaDir + "/chat"
)

// ProjectFile is the project metadata document.
func ProjectFile(root string) string { return path.Join(root, MetaDir, "project.json") }

// StructureFile is the outline document of a project.
func StructureFile(root string) string { return path.Join(root, MetaDir, "structure.json") }

// ManuscriptDir holds the scene documents of a project.
func ManuscriptDir(root string) string { return path.Join(root, manuscriptDir) }

// SceneFile is the document of one scene; name is the node's file field.
func SceneFile(root, name string) string { return path.Join(root, manuscriptDir, name) }

// SceneFileName is the file name given to a new scene node.
func SceneFileName(sceneID string) string { return sceneID + ".md" }

// SnippetsDir holds one JSON file per snippet.
func SnippetsDir(root string) string { return path.Join(root, snippetsDir) }

// SnippetFile is the document of one snippet.
func SnippetFile(root, id string) string { return path.Join(root, snippetsDir, id+".json") }

// ExportsDir receives backup files.
func ExportsDir(root string) string { return path.Join(root, exportsDir) }

// ChatThreadsFile lists the chat threads of a project.
func ChatThreadsFile(root string) string { return path.Join(root, chatDir, "threads.json") }

// ChatMessagesDir holds one message file per thread.
func ChatMessagesDir(root string) string { return path.Join(root, chatDir, "messages") }

// ChatMessagesFile holds the messages of one thread.
func ChatMessagesFile(root, threadID string) string {
	return path.Join(root, chatDir, "messages", threadID+".json")
}

// ProjectDirs are created for every new project.
func ProjectDirs(root string) []string {
	return []string{
		path.Join(root, MetaDir),
		ChatMessagesDir(root),
		ManuscriptDir(root),
		SnippetsDir(root),
		ExportsDir(root),
	}
}

// SeriesRoot is the directory owning a series' shared codex.
func SeriesRoot(seriesID string) string { return path.Join(SeriesDir, seriesID) }

// CodexDir is the codex root below a scope (series or legacy project root).
func CodexDir(scope string) string { return path.Join(scope, codexDir) }

// CodexCategoryDir holds the entries of one category.
func CodexCategoryDir(scope, category string) string { return path.Join(scope, codexDir, category) }

// CodexEntryFile is the document of one entry.
func CodexEntryFile(scope, category, id string) string {
	return path.Join(scope, codexDir, category, id+".json")
}

// CodexCollection is one of the flat codex collections of a scope,
// e.g. "codex_relations".
func CodexCollection(scope, name string) string {
	return path.Join(scope, MetaDir, name+".json")
}

// EmergencyBackupFile is the document of one emergency scene backup.
func EmergencyBackupFile(id string) string {
	return path.Join(EmergencyBackupsDir, id+".json")
}

// TrashFolder is the folder name a project directory gets in the trash.
func TrashFolder(projectPath, suffix string) string {
	return path.Base(projectPath) + "_" + suffix
}

// Slugify keeps letters and digits, replaces everything else with '_' and
// lowercases the result.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.ToLower(b.String())
}

// PlainName rejects names that would address anything but a direct child
// of a directory.
func PlainName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("invalid file name %q: %w", name, apperr.ErrInvalidInput)
	}
	return nil
}
