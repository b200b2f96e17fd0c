// Package mcp exposes the estimation pipeline over the Model Context
// Protocol: tools to generate datasets, run specification curves, and read
// back persisted runs, plus resources that surface recent results.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/causalkit/oster/internal/config"
	"github.com/causalkit/oster/internal/ratelimit"
	"github.com/causalkit/oster/internal/store"
)

// Server wraps the MCP SDK server together with the run store and the
// loaded analysis configuration.
type Server struct {
	server *sdk.Server
	store  *store.RunStore
	conf   *config.Config
	audit  *AuditLogger
	limits ratelimit.ToolLimiters
	root   string
}

// Config holds server configuration.
type Config struct {
	Name    string // server name reported to clients
	Version string // server version
	Root    string // project root directory
}

// NewServer creates an MCP server with the analysis tools registered and a
// run store opened under the project data directory.
func NewServer(cfg *Config) (*Server, error) {
	conf, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := conf.Store.Dir
	if dataDir == "" {
		dataDir = ".oster"
	}
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(cfg.Root, dataDir)
	}

	runStore, err := store.NewRunStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server: mcpServer,
		store:  runStore,
		conf:   conf,
		audit:  NewAuditLogger(dataDir),
		limits: ratelimit.Defaults(),
		root:   cfg.Root,
	}

	if err := s.registerTools(); err != nil {
		runStore.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	s.registerResources()

	return s, nil
}

// Run serves the MCP protocol over stdio until the client disconnects or
// the context is cancelled. SIGINT and SIGTERM cancel the context.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.audit.Close()
	if closeErr := s.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the server's resources without serving.
func (s *Server) Close() error {
	s.audit.Close()
	return s.store.Close()
}
