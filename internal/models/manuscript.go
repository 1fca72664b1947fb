package models

// Structure node types.
const (
	NodeAct     = "act"
	NodeChapter = "chapter"
	NodeScene   = "scene"
)

// ValidNodeType reports whether t is one of the structure node types.
func ValidNodeType(t string) bool {
	return t == NodeAct || t == NodeChapter || t == NodeScene
}

// StructureNode is one act, chapter or scene in a project outline.
// Only scene nodes carry File.
type StructureNode struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Order    int             `json:"order"`
	Children []StructureNode `json:"children"`
	File     string          `json:"file,omitempty"`
}

// Scene status values.
const (
	StatusDraft = "draft"
)

// SceneMeta is the front matter of a manuscript document.
// Timestamps are ms epoch in memory and RFC3339 on disk.
type SceneMeta struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Order         int      `json:"order"`
	Status        string   `json:"status"`
	WordCount     int      `json:"wordCount"`
	POV           *string  `json:"pov"`
	Subtitle      *string  `json:"subtitle"`
	Labels        []string `json:"labels"`
	ExcludeFromAI bool     `json:"excludeFromAI"`
	Summary       string   `json:"summary"`
	Archived      bool     `json:"archived"`
	CreatedAt     int64    `json:"createdAt"`
	UpdatedAt     int64    `json:"updatedAt"`
}

// Scene is a manuscript document: metadata plus opaque editor content.
type Scene struct {
	SceneMeta
	File    string `json:"file"`
	Content string `json:"content"`
}

// Snippet is a free-floating piece of project text.
type Snippet struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Content   any    `json:"content"`
	Pinned    bool   `json:"pinned"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatThread is a conversation attached to a project.
type ChatThread struct {
	ID           string `json:"id"`
	ProjectID    string `json:"projectId"`
	Name         string `json:"name"`
	Pinned       bool   `json:"pinned"`
	Archived     bool   `json:"archived"`
	DeletedAt    *int64 `json:"deletedAt,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// ChatMessage is one message in a thread.
type ChatMessage struct {
	ID        string `json:"id"`
	ThreadID  string `json:"threadId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// EmergencyBackup is an unsaved copy of a scene body kept until ExpiresAt.
type EmergencyBackup struct {
	ID        string `json:"id"`
	SceneID   string `json:"sceneId"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	ExpiresAt int64  `json:"expiresAt"`
}
