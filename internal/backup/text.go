package backup

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

// ManuscriptText renders a project outline as plain text. Acts and chapters
// become "#" and "##" headings; scenes a "###" heading followed by their
// text. Each nesting level indents headings by two spaces. Scenes whose
// document cannot be read keep their heading only.
func (s *Service) ManuscriptText(projectPath string) (string, error) {
	proj, err := s.library.GetProject(projectPath)
	if err != nil {
		return "", err
	}
	return s.manuscriptText(proj)
}

func (s *Service) manuscriptText(proj models.Project) (string, error) {
	nodes, err := s.structure.Get(proj.Path)
	if err != nil {
		return "", fmt.Errorf("backup: %s: %w", proj.Path, err)
	}
	var sb strings.Builder
	for _, n := range nodes {
		s.writeText(&sb, proj.Path, n, 0)
	}
	return sb.String(), nil
}

func (s *Service) writeText(sb *strings.Builder, root string, n models.StructureNode, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Type {
	case models.NodeAct:
		fmt.Fprintf(sb, "\n%s# %s\n\n", indent, n.Title)
	case models.NodeChapter:
		fmt.Fprintf(sb, "\n%s## %s\n\n", indent, n.Title)
	case models.NodeScene:
		fmt.Fprintf(sb, "%s### %s\n\n", indent, n.Title)
		if n.File != "" {
			scene, err := s.scenes.Load(root, n.File)
			if err != nil {
				s.logger.Warn("backup: text export skipped scene body",
					slog.String("file", n.File), slog.String("error", err.Error()))
			} else if body := strings.TrimSpace(manuscript.PlainText(scene.Content)); body != "" {
				sb.WriteString(body)
				sb.WriteString("\n\n")
			}
		}
	}
	for _, c := range n.Children {
		s.writeText(sb, root, c, depth+1)
	}
}

// ExportManuscriptText writes ManuscriptText into the project's exports
// directory and returns the library-relative file path.
func (s *Service) ExportManuscriptText(projectPath string) (string, error) {
	proj, err := s.library.GetProject(projectPath)
	if err != nil {
		return "", err
	}
	text, err := s.manuscriptText(proj)
	if err != nil {
		return "", err
	}
	file := path.Join(layout.ExportsDir(proj.Path),
		fmt.Sprintf("%s_manuscript_%s.txt", layout.Slugify(proj.Title), stamp.Suffix(s.now())))
	if err := s.store.Write(file, []byte(text)); err != nil {
		return "", fmt.Errorf("backup: write %s: %w", file, err)
	}
	s.logger.Info("backup: manuscript text exported", slog.String("file", file), slog.Int("bytes", len(text)))
	return file, nil
}
