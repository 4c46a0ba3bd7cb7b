// Package mcp exposes docbot over the Model Context Protocol so other AI
// tools can ask questions and manage the document store.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/agent"
	"github.com/memvra/docbot/internal/conversation"
)

// SessionID names the conversation shared by all MCP calls.
const SessionID = "mcp"

type Server struct {
	agent   *agent.Agent
	session *conversation.Session
	logger  *zap.Logger
	mcp     *server.MCPServer
}

// NewServer registers docbot's tools on a fresh MCP server.
func NewServer(a *agent.Agent, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		agent:   a,
		session: a.Sessions().Get(SessionID),
		logger:  logger.Named("mcp"),
		mcp:     server.NewMCPServer("docbot", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Ask docbot a question. Answers draw on every uploaded document and the running conversation."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question or command, e.g. 'list files'")),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Return the raw memory context retrieved for a query, without generating an answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("ingest_file",
		mcp.WithDescription("Copy a local file into docbot's folder and index it into long-term memory."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the file to ingest")),
	), s.handleIngest)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the files docbot currently holds."),
	), s.handleListFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Return the contents of a stored text file."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name, e.g. notes.txt")),
	), s.handleReadFile)

	s.mcp.AddTool(mcp.NewTool("delete_file",
		mcp.WithDescription("Delete a file from disk and remove its records from memory."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name to delete")),
	), s.handleDeleteFile)

	s.mcp.AddTool(mcp.NewTool("add_rule",
		mcp.WithDescription("Teach docbot a behavioral rule that applies to every future answer."),
		mcp.WithString("rule", mcp.Required(), mcp.Description("The rule text")),
	), s.handleAddRule)

	s.mcp.AddTool(mcp.NewTool("wipe_all",
		mcp.WithDescription("Erase all conversations, memory records, files and rules. Irreversible."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	), s.handleWipeAll)

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio blocks serving JSON-RPC over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
