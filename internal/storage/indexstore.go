package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/javacontext-mcp/internal/index"
)

// IndexStore persists index documents through a Storage. Containers are
// created on first write.
type IndexStore struct {
	db       Storage
	rootPath func(container string) string
}

// NewIndexStore adapts db to index.Store. rootPath reports the root
// directory recorded for new containers and may be nil.
func NewIndexStore(db Storage, rootPath func(container string) string) *IndexStore {
	return &IndexStore{db: db, rootPath: rootPath}
}

// LoadDocuments implements index.Store.
func (s *IndexStore) LoadDocuments(ctx context.Context, container string) ([]index.Document, error) {
	c, err := s.db.GetContainer(ctx, container)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	docs, err := s.db.ListDocuments(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", container, err)
	}
	out := make([]index.Document, 0, len(docs))
	for _, d := range docs {
		entries, err := s.db.ListEntries(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("list entries of %s: %w", d.Path, err)
		}
		doc := index.Document{Path: d.Path, PackageName: d.PackageName, Hash: d.ContentHash}
		for _, e := range entries {
			doc.Entries = append(doc.Entries, index.Entry{Category: index.Category(e.Category), Key: e.Key})
		}
		out = append(out, doc)
	}
	return out, nil
}

// SaveDocument implements index.Store. The document row and its entries are
// written in one transaction.
func (s *IndexStore) SaveDocument(ctx context.Context, container string, doc index.Document) (err error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	c, err := s.container(ctx, tx, container)
	if err != nil {
		return err
	}
	row := &Document{
		ContainerID: c.ID,
		Path:        doc.Path,
		PackageName: doc.PackageName,
		ContentHash: doc.Hash,
	}
	if err = tx.UpsertDocument(ctx, row); err != nil {
		return err
	}
	entries := make([]IndexEntry, len(doc.Entries))
	for i, e := range doc.Entries {
		entries[i] = IndexEntry{Category: string(e.Category), Key: e.Key}
	}
	if err = tx.ReplaceEntries(ctx, row.ID, entries); err != nil {
		return err
	}
	c.LastIndexedAt = time.Now()
	if err = tx.UpdateContainer(ctx, c); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *IndexStore) container(ctx context.Context, tx Tx, name string) (*Container, error) {
	c, err := tx.GetContainer(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	c = &Container{Name: name, Kind: KindSource}
	if s.rootPath != nil {
		c.RootPath = s.rootPath(name)
	}
	if err := tx.CreateContainer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteDocument implements index.Store.
func (s *IndexStore) DeleteDocument(ctx context.Context, container, path string) error {
	c, err := s.db.GetContainer(ctx, container)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	d, err := s.db.GetDocument(ctx, c.ID, path)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.DeleteDocument(ctx, d.ID)
}
