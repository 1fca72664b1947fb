package chat

import (
	"sort"
	"strings"

	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

// ImportedThreadName names threads synthesized for messages whose thread
// record is missing.
const ImportedThreadName = "Imported Chat"

// RawThread is a thread as found in a backup document. Older backups name
// the thread "title" and may carry string timestamps.
type RawThread struct {
	ID           string `json:"id"`
	ProjectID    string `json:"projectId"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Pinned       bool   `json:"pinned"`
	Archived     bool   `json:"archived"`
	DeletedAt    *int64 `json:"deletedAt,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
	CreatedAt    any    `json:"createdAt"`
	UpdatedAt    any    `json:"updatedAt"`
}

// RawMessage is a message as found in a backup document.
type RawMessage struct {
	ID        string `json:"id"`
	ThreadID  string `json:"threadId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	Timestamp any    `json:"timestamp"`
}

// Normalize turns backup chat data into thread records and per-thread
// message lists owned by projectID:
//   - messages without a thread id are dropped
//   - missing message ids are generated and roles normalized
//   - duplicate thread records are merged (first wins)
//   - threads that only appear in messages are synthesized
//   - each thread's updatedAt is raised to its newest message
//   - messages are sorted by timestamp
func Normalize(projectID string, threads []RawThread, messages []RawMessage) ([]models.ChatThread, map[string][]models.ChatMessage) {
	now := stamp.Now()
	byThread := make(map[string][]models.ChatMessage)
	var order []string
	for _, rm := range messages {
		tid := strings.TrimSpace(rm.ThreadID)
		if tid == "" {
			continue
		}
		if _, seen := byThread[tid]; !seen {
			order = append(order, tid)
		}
		msg := models.ChatMessage{
			ID:        rm.ID,
			ThreadID:  tid,
			Role:      NormalizeRole(rm.Role),
			Content:   rm.Content,
			Model:     rm.Model,
			Timestamp: stamp.Coerce(rm.Timestamp, now),
		}
		if msg.ID == "" {
			msg.ID = ident.New()
		}
		byThread[tid] = append(byThread[tid], msg)
	}

	var out []models.ChatThread
	index := make(map[string]int)
	for _, rt := range threads {
		id := strings.TrimSpace(rt.ID)
		if id == "" {
			continue
		}
		if _, dup := index[id]; dup {
			continue
		}
		name := strings.TrimSpace(rt.Name)
		if name == "" {
			name = strings.TrimSpace(rt.Title)
		}
		if name == "" {
			name = ImportedThreadName
		}
		created := stamp.Coerce(rt.CreatedAt, now)
		index[id] = len(out)
		out = append(out, models.ChatThread{
			ID:           id,
			ProjectID:    projectID,
			Name:         name,
			Pinned:       rt.Pinned,
			Archived:     rt.Archived,
			DeletedAt:    rt.DeletedAt,
			DefaultModel: rt.DefaultModel,
			CreatedAt:    created,
			UpdatedAt:    stamp.Coerce(rt.UpdatedAt, created),
		})
	}
	for _, tid := range order {
		if _, ok := index[tid]; ok {
			continue
		}
		first := byThread[tid][0].Timestamp
		for _, m := range byThread[tid] {
			if m.Timestamp < first {
				first = m.Timestamp
			}
		}
		index[tid] = len(out)
		out = append(out, models.ChatThread{
			ID:        tid,
			ProjectID: projectID,
			Name:      ImportedThreadName,
			CreatedAt: first,
			UpdatedAt: first,
		})
	}

	for tid, msgs := range byThread {
		sortMessages(msgs)
		t := &out[index[tid]]
		if last := msgs[len(msgs)-1].Timestamp; last > t.UpdatedAt {
			t.UpdatedAt = last
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, byThread
}
