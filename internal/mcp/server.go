package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/javacontext-mcp/internal/config"
	"github.com/dshills/javacontext-mcp/internal/eval"
	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/indexer"
	"github.com/dshills/javacontext-mcp/internal/parser"
	"github.com/dshills/javacontext-mcp/internal/search"
	"github.com/dshills/javacontext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "javacontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// ErrUnknownSession is returned for a session id the server does not hold.
var ErrUnknownSession = errors.New("unknown evaluation session")

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	cfg     *config.Config
	storage storage.Storage
	manager *index.Manager
	indexer *indexer.Indexer
	jobs    *search.JobManager
	parser  *parser.Parser
	engine  *search.Engine

	mu       sync.Mutex
	sessions map[string]*session
	watchers map[string]*indexer.Watcher
	// ctx is the serving context watchers run under, nil before Serve
	ctx       context.Context
	closeOnce sync.Once
}

// session is one evaluation context handed out to a client.
type session struct {
	id      string
	context *eval.Context
}

// NewServer opens the database named by cfg and the indexes recorded in
// it, and registers the tools.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	dbFile, err := cfg.DBFile()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	s, err := newServer(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

func newServer(cfg *config.Config, store storage.Storage) (*Server, error) {
	// containers are named by their root directory
	manager := index.NewManager(storage.NewIndexStore(store, func(container string) string { return container }))
	containers, err := store.ListContainers(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed containers: %w", err)
	}
	for _, c := range containers {
		if _, err := manager.Index(context.Background(), c.Name); err != nil {
			log.Printf("mcp: failed to open index of %s: %v", c.Name, err)
		}
	}

	jobs := search.NewJobManager()
	p := parser.New()
	engine, err := search.NewEngine(manager, jobs, p, cfg.SearchOptions())
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create search engine: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		storage:  store,
		manager:  manager,
		indexer:  indexer.New(manager),
		jobs:     jobs,
		parser:   p,
		engine:   engine,
		sessions: make(map[string]*session),
		watchers: make(map[string]*indexer.Watcher),
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.Start(ctx)
	defer s.Close()
	return server.ServeStdio(s.mcp)
}

// Start runs the background job manager and, when watching is enabled,
// the watchers of the indexed containers.
func (s *Server) Start(ctx context.Context) {
	s.jobs.Start(ctx)
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	if !s.cfg.Indexer.Watch {
		return
	}
	for _, c := range s.manager.Containers() {
		s.watch(c)
	}
}

// Close stops the watchers and the job manager, closes every session and
// releases the database. Only the first call has an effect.
func (s *Server) Close() {
	s.closeOnce.Do(s.close)
}

func (s *Server) close() {
	s.mu.Lock()
	watchers := s.watchers
	s.watchers = make(map[string]*indexer.Watcher)
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, w := range watchers {
		if err := w.Stop(); err != nil {
			log.Printf("mcp: stopping watcher of %s: %v", w.Container(), err)
		}
	}
	s.jobs.Stop()
	for id, sess := range sessions {
		sess.context.Close()
		if err := s.storage.CloseSession(context.Background(), id); err != nil {
			log.Printf("mcp: closing session %s: %v", id, err)
		}
	}
	if err := s.manager.MergeAll(context.Background()); err != nil {
		log.Printf("mcp: final index merge failed: %v", err)
	}
	s.parser.Close()
	_ = s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(searchAccessedFieldsTool(), s.handleSearchAccessedFields)
	s.mcp.AddTool(evaluateSnippetTool(), s.handleEvaluateSnippet)
	s.mcp.AddTool(closeSessionTool(), s.handleCloseSession)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// scheduleMerge queues the merge of the pending writes of container.
func (s *Server) scheduleMerge(container string) {
	if x, ok := s.manager.Lookup(container); ok {
		s.jobs.Request(search.MergeJob(x))
	}
}

// watch starts a watcher for container unless one runs already or the
// server is not serving yet.
func (s *Server) watch(container string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.watchers[container] != nil {
		return
	}
	w, err := indexer.NewWatcher(s.indexer, container, s.cfg.IndexerConfig())
	if err != nil {
		log.Printf("mcp: cannot watch %s: %v", container, err)
		return
	}
	w.SetDebounce(s.cfg.Debounce())
	w.OnIndexed = func(c string, stats *indexer.Statistics) {
		log.Printf("mcp: re-indexed %d files of %s", stats.FilesIndexed, c)
		s.scheduleMerge(c)
	}
	if err := w.Start(s.ctx); err != nil {
		log.Printf("mcp: cannot watch %s: %v", container, err)
		_ = w.Stop()
		return
	}
	s.watchers[container] = w
}

// newSession creates an evaluation context resolving against the indexed
// containers and records it.
func (s *Server) newSession(ctx context.Context, declaringType string) (*session, error) {
	// the environment outlives the request, so it reads the indexes under
	// the serving context
	s.mu.Lock()
	envCtx := s.ctx
	s.mu.Unlock()
	if envCtx == nil {
		envCtx = context.Background()
	}
	ec, err := eval.NewContext(s.engine.NameEnvironment(envCtx), s.cfg.EvalOptions())
	if err != nil {
		return nil, err
	}
	sess := &session{id: uuid.NewString(), context: ec}
	if err := s.storage.CreateSession(ctx, &storage.EvalSession{ID: sess.id, DeclaringType: declaringType}); err != nil {
		ec.Close()
		return nil, err
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Server) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess, nil
}

func (s *Server) closeSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	sess.context.Close()
	return s.storage.CloseSession(ctx, id)
}
