package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/folio/internal/library"
)

type coverResult struct {
	ProjectID  string `json:"projectId"`
	CoverImage string `json:"coverImage"`
}

func (s *Server) setCoverImage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("data_uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.project(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := decodeDataURI(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > library.MaxCoverSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), library.MaxCoverSize)), nil
	}

	// SetCover checks the magic bytes; the declared MIME type is not trusted.
	updated, err := s.d.Library.SetCover(p.Path, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(coverResult{ProjectID: updated.ID, CoverImage: updated.CoverImage})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	if mime := strings.TrimSuffix(meta, ";base64"); mime != "" && !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}
