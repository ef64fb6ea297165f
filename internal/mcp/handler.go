package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tendant/content-guardian/pkg/guardian"
)

// Handler exposes the guardian service as MCP tools
type Handler struct {
	service guardian.Service
}

// NewHandler creates a new instance of Handler
func NewHandler(service guardian.Service) *Handler {
	return &Handler{service: service}
}

// RegisterTools registers the guardian tools with the MCP server
func (h *Handler) RegisterTools(s *server.MCPServer) {
	s.AddTool(mcp.Tool{
		Name:        "register_content",
		Description: "Register text or an image so later copies can be detected and licensed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"title":   map[string]any{"type": "string", "description": "Title of the work"},
				"type":    map[string]any{"type": "string", "enum": []string{"text", "image"}},
				"content": map[string]any{"type": "string", "description": "Text body, image path or data URI"},
				"owner":   map[string]any{"type": "string", "description": "Owning account, defaults to the first ledger account"},
			},
			Required: []string{"title", "type", "content"},
		},
	}, h.handleRegister)

	s.AddTool(mcp.Tool{
		Name:        "verify_content",
		Description: "Find the registered content most similar to the given content",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"type":    map[string]any{"type": "string", "enum": []string{"text", "image"}},
				"content": map[string]any{"type": "string", "description": "Text body, image path or data URI"},
			},
			Required: []string{"type", "content"},
		},
	}, h.handleVerify)

	s.AddTool(mcp.Tool{
		Name:        "issue_license",
		Description: "Issue a 30 day license on registered content",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"contentId":   map[string]any{"type": "string"},
				"licenseType": map[string]any{"type": "string"},
				"permissions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			Required: []string{"contentId", "licenseType", "permissions"},
		},
	}, h.handleIssueLicense)

	s.AddTool(mcp.Tool{
		Name:        "get_content",
		Description: "Return a registered record with its licenses",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"contentId": map[string]any{"type": "string"},
			},
			Required: []string{"contentId"},
		},
	}, h.handleGetContent)
}

func (h *Handler) handleRegister(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	record, err := h.service.Register(ctx, guardian.RegisterRequest{
		Title: stringArg(args, "title"),
		Type:  guardian.ContentType(stringArg(args, "type")),
		Body:  stringArg(args, "content"),
		Owner: stringArg(args, "owner"),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"contentId":       record.ID,
		"timestamp":       record.RegisteredAt,
		"transactionHash": record.LedgerTxID,
		"owner":           record.Owner,
	})
}

func (h *Handler) handleVerify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	result, err := h.service.Verify(ctx, guardian.VerifyRequest{
		Type: guardian.ContentType(stringArg(args, "type")),
		Body: stringArg(args, "content"),
	})
	if err != nil {
		return toolError(err)
	}
	if !result.Matched {
		return jsonResult(map[string]any{
			"matchPercentage": 0,
			"message":         result.Message,
		})
	}
	return jsonResult(map[string]any{
		"matchPercentage":  result.MatchPercentage,
		"owner":            result.Owner,
		"registrationDate": result.RegistrationDate,
		"contentId":        result.ContentID,
		"exactMatch":       result.ExactMatch,
	})
}

func (h *Handler) handleIssueLicense(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	issued, err := h.service.IssueLicense(ctx, guardian.IssueLicenseRequest{
		ContentID:   stringArg(args, "contentId"),
		LicenseType: stringArg(args, "licenseType"),
		Permissions: stringSliceArg(args, "permissions"),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"licenseId":  issued.License.ID,
		"licenseUrl": issued.LicenseURL,
		"expiryDate": issued.License.ExpiresAt,
	})
}

func (h *Handler) handleGetContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	record, err := h.service.GetContent(ctx, stringArg(request.GetArguments(), "contentId"))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(record)
}

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func stringSliceArg(args map[string]any, name string) []string {
	switch v := args[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toolError reports caller errors as tool results and everything else as a
// protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, guardian.ErrValidation) || errors.Is(err, guardian.ErrNotFound) || errors.Is(err, guardian.ErrDependency) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, fmt.Errorf("internal error: %w", err)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
