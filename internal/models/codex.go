package models

// CodexEntry is one world-building record (character, location, item, ...).
type CodexEntry struct {
	ID            string            `json:"id"`
	ProjectID     string            `json:"projectId"`
	SeriesID      string            `json:"seriesId,omitempty"`
	Name          string            `json:"name"`
	Category      string            `json:"category"`
	Aliases       []string          `json:"aliases"`
	Description   string            `json:"description"`
	Attributes    map[string]string `json:"attributes"`
	Tags          []string          `json:"tags"`
	References    []string          `json:"references"`
	Image         string            `json:"image,omitempty"`
	Thumbnail     string            `json:"thumbnail,omitempty"`
	CustomDetails any               `json:"customDetails,omitempty"`
	AIContext     string            `json:"aiContext,omitempty"`
	TrackMentions *bool             `json:"trackMentions,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	ExternalLinks []string          `json:"externalLinks,omitempty"`
	Settings      CodexSettings     `json:"settings"`
	TemplateID    string            `json:"templateId,omitempty"`
	CustomFields  any               `json:"customFields,omitempty"`
	Gallery       []string          `json:"gallery,omitempty"`
	Completeness  *int              `json:"completeness,omitempty"`
	CreatedAt     int64             `json:"createdAt"`
	UpdatedAt     int64             `json:"updatedAt"`
}

// CodexSettings holds per-entry display settings.
type CodexSettings struct {
	ShowInMentions *bool        `json:"showInMentions,omitempty"`
	Fields         []CodexField `json:"fields"`
}

// CodexField is a free-form name/value pair.
type CodexField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CodexRelation is an edge between two entries.
type CodexRelation struct {
	ID        string `json:"id"`
	ParentID  string `json:"parentId"`
	ChildID   string `json:"childId"`
	ProjectID string `json:"projectId"`
	TypeID    string `json:"typeId,omitempty"`
	Label     string `json:"label,omitempty"`
	Strength  *int   `json:"strength,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// CodexRelationType is a catalog entry that types relations.
type CodexRelationType struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Color           string `json:"color"`
	IsBuiltIn       bool   `json:"isBuiltIn"`
	IsDirectional   bool   `json:"isDirectional"`
	CanHaveStrength bool   `json:"canHaveStrength"`
}

// CodexTag is a named, coloured label.
type CodexTag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	ProjectID string `json:"projectId"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// CodexEntryTag joins an entry to a tag.
type CodexEntryTag struct {
	ID      string `json:"id"`
	EntryID string `json:"entryId"`
	TagID   string `json:"tagId"`
}

// CodexTemplate describes the fields offered for a category.
type CodexTemplate struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	IsBuiltIn bool            `json:"isBuiltIn"`
	Fields    []TemplateField `json:"fields"`
	CreatedAt int64           `json:"createdAt"`
}

// TemplateField is one field of a CodexTemplate.
type TemplateField struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	FieldType    string   `json:"fieldType"`
	Required     bool     `json:"required"`
	DefaultValue string   `json:"defaultValue,omitempty"`
	Placeholder  string   `json:"placeholder,omitempty"`
	Options      []string `json:"options,omitempty"`
	Min          *int     `json:"min,omitempty"`
	Max          *int     `json:"max,omitempty"`
}

// SceneCodexLink associates a scene with a codex entry.
type SceneCodexLink struct {
	ID           string `json:"id"`
	SceneID      string `json:"sceneId"`
	CodexID      string `json:"codexId"`
	ProjectID    string `json:"projectId"`
	Role         string `json:"role"`
	AutoDetected *bool  `json:"autoDetected,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// Mention sources.
const (
	MentionScene   = "scene"
	MentionSnippet = "snippet"
)

// Mention is one occurrence of a codex entry's name or alias in project
// text. Position is a byte offset into the scene body; snippet mentions
// are reported once per snippet with Position 0.
type Mention struct {
	ID           string `json:"id"`
	CodexEntryID string `json:"codexEntryId"`
	SourceType   string `json:"sourceType"`
	SourceID     string `json:"sourceId"`
	SourceTitle  string `json:"sourceTitle"`
	Position     int    `json:"position"`
	Context      string `json:"context"`
	CreatedAt    int64  `json:"createdAt"`
}
