package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dshills/javacontext-mcp/internal/config"
	"github.com/dshills/javacontext-mcp/internal/index"
	"github.com/dshills/javacontext-mcp/internal/parser"
	"github.com/dshills/javacontext-mcp/internal/search"
	"github.com/dshills/javacontext-mcp/internal/storage"
)

// workspace is the database and the indexes recorded in it, opened for a
// single command.
type workspace struct {
	store   storage.Storage
	manager *index.Manager
	jobs    *search.JobManager
	parser  *parser.Parser
	engine  *search.Engine
}

func openWorkspace(ctx context.Context, cfg *config.Config) (*workspace, error) {
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

	manager := index.NewManager(storage.NewIndexStore(store, func(container string) string { return container }))
	containers, err := store.ListContainers(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to list indexed containers: %w", err)
	}
	for _, c := range containers {
		if _, err := manager.Index(ctx, c.Name); err != nil {
			log.Printf("failed to open index of %s: %v", c.Name, err)
		}
	}

	jobs := search.NewJobManager()
	p := parser.New()
	engine, err := search.NewEngine(manager, jobs, p, cfg.SearchOptions())
	if err != nil {
		p.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create search engine: %w", err)
	}
	return &workspace{store: store, manager: manager, jobs: jobs, parser: p, engine: engine}, nil
}

// Close merges pending writes and releases the database.
func (w *workspace) Close() error {
	w.jobs.Stop()
	err := w.manager.MergeAll(context.Background())
	w.parser.Close()
	if cerr := w.store.Close(); err == nil {
		err = cerr
	}
	return err
}
