// Package backup exports projects and series as self-contained JSON
// documents and imports them back under fresh identifiers.
package backup

import (
	"encoding/json"
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/chat"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/validate"
)

// Version is the backup document format version written by this package.
const Version = 2

// Backup types.
const (
	TypeProject = "project"
	TypeSeries  = "series"
)

// ProjectPayload is one project inside a backup document.
type ProjectPayload struct {
	Project    models.Project         `json:"project"`
	Nodes      []models.StructureNode `json:"nodes"`
	SceneFiles map[string]string      `json:"sceneFiles"`
	Snippets   []models.Snippet       `json:"snippets"`
	Chats      []models.ChatThread    `json:"chats"`
	Messages   []models.ChatMessage   `json:"messages"`
}

// Document is the exported form. A project backup fills the project fields
// at the top level; a series backup fills Series and Projects.
type Document struct {
	Version    int    `json:"version"`
	BackupType string `json:"backupType"`
	ExportedAt string `json:"exportedAt"`

	Project    *models.Project        `json:"project,omitempty"`
	Nodes      []models.StructureNode `json:"nodes,omitempty"`
	SceneFiles map[string]string      `json:"sceneFiles,omitempty"`
	Snippets   []models.Snippet       `json:"snippets,omitempty"`
	Chats      []models.ChatThread    `json:"chats,omitempty"`
	Messages   []models.ChatMessage   `json:"messages,omitempty"`

	Series   *models.Series   `json:"series,omitempty"`
	Projects []ProjectPayload `json:"projects,omitempty"`

	Codex              []models.CodexEntry        `json:"codex"`
	CodexRelations     []models.CodexRelation     `json:"codexRelations,omitempty"`
	CodexTags          []models.CodexTag          `json:"codexTags,omitempty"`
	CodexEntryTags     []models.CodexEntryTag     `json:"codexEntryTags,omitempty"`
	SceneCodexLinks    []models.SceneCodexLink    `json:"sceneCodexLinks,omitempty"`
	CodexRelationTypes []models.CodexRelationType `json:"codexRelationTypes,omitempty"`
}

// The import side decodes loosely: older backups carry string timestamps
// on projects and snippets and "title" instead of "name" on threads.

type inProject struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Archived    bool   `json:"archived"`
	Language    string `json:"language"`
	CoverImage  string `json:"coverImage"`
	SeriesID    string `json:"seriesId"`
	SeriesIndex string `json:"seriesIndex"`
}

type inSnippet struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   any    `json:"content"`
	Pinned    bool   `json:"pinned"`
	CreatedAt any    `json:"createdAt"`
	UpdatedAt any    `json:"updatedAt"`
}

type inPayload struct {
	Project    *inProject             `json:"project"`
	Nodes      []models.StructureNode `json:"nodes"`
	SceneFiles map[string]string      `json:"sceneFiles"`
	Snippets   []inSnippet            `json:"snippets"`
	Chats      []chat.RawThread       `json:"chats"`
	Messages   []chat.RawMessage      `json:"messages"`
}

type inSeries struct {
	Title       *string `json:"title"`
	Description string  `json:"description"`
	Author      string  `json:"author"`
	Genre       string  `json:"genre"`
	Status      string  `json:"status"`
}

type inDocument struct {
	Version    int    `json:"version"`
	BackupType string `json:"backupType"`

	inPayload

	Series   *inSeries   `json:"series"`
	Projects []inPayload `json:"projects"`

	Codex              []models.CodexEntry        `json:"codex"`
	CodexRelations     []models.CodexRelation     `json:"codexRelations"`
	CodexTags          []models.CodexTag          `json:"codexTags"`
	CodexEntryTags     []models.CodexEntryTag     `json:"codexEntryTags"`
	SceneCodexLinks    []models.SceneCodexLink    `json:"sceneCodexLinks"`
	CodexRelationTypes []models.CodexRelationType `json:"codexRelationTypes"`
}

// ImportResult describes an imported series.
type ImportResult struct {
	SeriesID             string   `json:"seriesId"`
	SeriesTitle          string   `json:"seriesTitle"`
	ProjectIDs           []string `json:"projectIds"`
	ImportedProjectCount int      `json:"importedProjectCount"`
}

func encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	if len(data) > validate.MaxBackupSize {
		return nil, fmt.Errorf("backup: document is %d bytes, over the %d byte limit: %w",
			len(data), validate.MaxBackupSize, apperr.ErrConstraint)
	}
	return data, nil
}
