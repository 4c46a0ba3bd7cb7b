package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/files"
)

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	reply := s.agent.Respond(ctx, s.session, question)
	if reply.Err != nil {
		s.logger.Warn("ask", zap.Error(reply.Err))
		return mcp.NewToolResultError(reply.Text), nil
	}
	text := reply.Text
	if reply.Attachment != "" {
		text += "\n\nAttachment: " + reply.Attachment
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	chunks, err := s.agent.ContextFor(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(chunks) == 0 {
		return mcp.NewToolResultText("No results found."), nil
	}
	return mcp.NewToolResultText(strings.Join(chunks, "\n\n")), nil
}

func (s *Server) handleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}
	res := s.agent.Import(ctx, path)
	if res.Err != nil {
		return mcp.NewToolResultError(res.Message), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) handleListFiles(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.agent.Files().List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list files: %v", err)), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("No files stored."), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) handleReadFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	dir := s.agent.Files()
	name = dir.Resolve(name)
	if !files.IsText(name) {
		return mcp.NewToolResultError(fmt.Sprintf("%s is not a text file", name)), nil
	}
	text, err := dir.ReadText(name)
	switch {
	case errors.Is(err, files.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("file %s not found", name)), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", name, err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleDeleteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	res := s.agent.Delete(ctx, name)
	if res.Err() != nil || !res.Found() {
		return mcp.NewToolResultError(res.Message()), nil
	}
	return mcp.NewToolResultText(res.Message()), nil
}

func (s *Server) handleAddRule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rule, err := req.RequireString("rule")
	if err != nil || strings.TrimSpace(rule) == "" {
		return mcp.NewToolResultError("missing required parameter: rule"), nil
	}
	if err := s.agent.AddRule(rule); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store rule: %v", err)), nil
	}
	return mcp.NewToolResultText("Rule saved."), nil
}

func (s *Server) handleWipeAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError("wipe_all requires confirm=true"), nil
	}
	res := s.agent.WipeAll(ctx)
	if res.Err != nil {
		return mcp.NewToolResultError(res.Summary()), nil
	}
	return mcp.NewToolResultText(res.Summary()), nil
}
