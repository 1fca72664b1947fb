package manuscript

import (
	"encoding/json"
	"strings"
)

// richNode is the subset of the editor's JSON document tree that carries text.
type richNode struct {
	Type    string     `json:"type"`
	Text    string     `json:"text"`
	Content []richNode `json:"content"`
}

func (n richNode) write(sb *strings.Builder) {
	sb.WriteString(n.Text)
	for _, c := range n.Content {
		c.write(sb)
	}
	if n.Type == "paragraph" {
		sb.WriteString("\n\n")
	}
}

// PlainText returns the readable text of a scene body. Editor documents
// (a JSON object with a "content" array) are flattened, with a blank line
// after every paragraph. Any other body is returned unchanged.
func PlainText(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return body
	}
	var doc richNode
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil || doc.Content == nil {
		return body
	}
	var sb strings.Builder
	for _, n := range doc.Content {
		n.write(&sb)
	}
	return sb.String()
}
