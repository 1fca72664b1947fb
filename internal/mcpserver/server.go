// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio library tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/backup"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/mention"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/structure"
)

// Deps are the stores the tools operate on. Search may be nil.
type Deps struct {
	Library   *library.Manager
	Structure *structure.Store
	Scenes    *manuscript.Store
	Codex     *codex.Manager
	Backup    *backup.Service
	Mentions  *mention.Tracker
	Search    index.Searcher
}

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp *server.MCPServer
	d   Deps
}

// New creates a new MCP server with all Folio tools registered.
func New(d Deps, version string) *Server {
	s := &Server{d: d}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects in the library, most recently updated first."),
		mcp.WithString("series_id", mcp.Description("Only projects of this series")),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_structure",
		mcp.WithDescription("Return the outline of a project: acts, chapters and scenes with their ids."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.getStructure)

	s.mcp.AddTool(mcp.NewTool("read_scene",
		mcp.WithDescription("Read a scene: its metadata and content."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene node id from get_structure")),
	), s.readScene)

	s.mcp.AddTool(mcp.NewTool("save_scene",
		mcp.WithDescription("Replace the content of an existing scene. Metadata is kept and "+
			"the word count recomputed. Read the contract first via get_scene_contract "+
			"or the folio://scene-format resource."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene node id from get_structure")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Scene body following the Folio scene format contract")),
	), s.saveScene)

	s.mcp.AddTool(mcp.NewTool("get_scene_contract",
		mcp.WithDescription("Returns the Folio scene document format contract."),
	), s.getSceneContract)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Full-text search through scenes and codex entries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("kind", mcp.Description("scene or codex (empty for both)")),
		mcp.WithString("project_id", mcp.Description("Only this project and its series codex")),
		mcp.WithString("series_id", mcp.Description("Only this series and its projects")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("list_codex",
		mcp.WithDescription("List the codex entries (characters, locations, lore...) visible to a project or series."),
		mcp.WithString("project_id", mcp.Description("Project id")),
		mcp.WithString("series_id", mcp.Description("Series id, used when project_id is empty")),
		mcp.WithString("category", mcp.Description("Only this category")),
	), s.listCodex)

	s.mcp.AddTool(mcp.NewTool("find_mentions",
		mcp.WithDescription("List where a codex entry's name or aliases appear in a project's scenes and snippets."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Codex entry id from list_codex")),
	), s.findMentions)

	s.mcp.AddTool(mcp.NewTool("export_manuscript_text",
		mcp.WithDescription("Return the whole manuscript of a project as plain text, in outline order."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.exportText)

	s.mcp.AddTool(mcp.NewTool("export_project_backup",
		mcp.WithDescription("Write a backup of a project into its exports directory and return the file path."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.exportProject)

	s.mcp.AddTool(mcp.NewTool("export_series_backup",
		mcp.WithDescription("Write a backup of a series and all its projects and return the file path."),
		mcp.WithString("series_id", mcp.Required(), mcp.Description("Series id")),
	), s.exportSeries)

	s.mcp.AddTool(mcp.NewTool("set_cover_image",
		mcp.WithDescription("Set the cover image of a project from a base64 data URI (png, jpeg, gif or webp)."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("data_uri", mcp.Required(), mcp.Description("data:image/png;base64,...")),
	), s.setCoverImage)

	// Resource: scene format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Scene Format Contract",
			mcp.WithResourceDescription("Format of Folio scene documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSceneFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) project(req mcp.CallToolRequest) (models.Project, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return models.Project{}, err
	}
	return s.d.Library.ProjectByID(id)
}

func (s *Server) listProjects(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		projects []models.Project
		err      error
	)
	if id := req.GetString("series_id", ""); id != "" {
		projects, err = s.d.Library.ProjectsInSeries(id)
	} else {
		projects, err = s.d.Library.ListProjects()
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(projects)
}

func (s *Server) getStructure(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.d.Structure.Get(p.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodes)
}

func (s *Server) sceneFile(req mcp.CallToolRequest) (models.Project, string, error) {
	p, err := s.project(req)
	if err != nil {
		return p, "", err
	}
	id, err := req.RequireString("scene_id")
	if err != nil {
		return p, "", err
	}
	file, err := s.d.Structure.SceneFile(p.Path, id)
	return p, file, err
}

func (s *Server) readScene(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, file, err := s.sceneFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scene, err := s.d.Scenes.Load(p.Path, file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(scene)
}

func (s *Server) saveScene(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, file, err := s.sceneFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := s.d.Scenes.Save(p.Path, file, content, nil, manuscript.CountWords(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (%d words)", meta.Title, meta.WordCount)), nil
}

func (s *Server) search(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.d.Search == nil {
		return mcp.NewToolResultError("search index is disabled"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q := index.Query{Text: query, Kind: req.GetString("kind", "")}
	if q.Kind != "" && q.Kind != index.KindScene && q.Kind != index.KindCodex {
		return mcp.NewToolResultError("kind must be scene or codex"), nil
	}
	q.Scopes, err = library.SearchScopes(s.d.Library, req.GetString("project_id", ""), req.GetString("series_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.d.Search.Search(q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) listCodex(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scope string
	switch {
	case req.GetString("project_id", "") != "":
		p, err := s.project(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		scope = library.ScopeFor(p)
	case req.GetString("series_id", "") != "":
		sr, err := s.d.Library.GetSeries(req.GetString("series_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		scope = layout.SeriesRoot(sr.ID)
	default:
		return mcp.NewToolResultError("project_id or series_id is required"), nil
	}
	entries, err := s.d.Codex.List(scope, req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries)
}

func (s *Server) findMentions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entryID, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	found, err := s.d.Mentions.Find(p.Path, library.ScopeFor(p), entryID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(found)
}

func (s *Server) exportText(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.d.Backup.ManuscriptText(p.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) exportProject(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	file, err := s.d.Backup.ExportProjectBackup(p.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("exported: %s", file)), nil
}

func (s *Server) exportSeries(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	file, err := s.d.Backup.ExportSeriesBackup(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("exported: %s", file)), nil
}

func (s *Server) getSceneContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SceneFormatContract), nil
}

func (s *Server) readSceneFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     SceneFormatContract,
		},
	}, nil
}
