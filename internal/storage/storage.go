package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting indexed Java containers
type Storage interface {
	// Container operations
	CreateContainer(ctx context.Context, container *Container) error
	GetContainer(ctx context.Context, name string) (*Container, error)
	UpdateContainer(ctx context.Context, container *Container) error
	ListContainers(ctx context.Context) ([]*Container, error)
	DeleteContainer(ctx context.Context, containerID int64) error

	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, containerID int64, path string) (*Document, error)
	ListDocuments(ctx context.Context, containerID int64) ([]*Document, error)
	DeleteDocument(ctx context.Context, documentID int64) error

	// Index entry operations
	ReplaceEntries(ctx context.Context, documentID int64, entries []IndexEntry) error
	ListEntries(ctx context.Context, documentID int64) ([]IndexEntry, error)
	FindDocuments(ctx context.Context, containerID int64, category, keyPrefix string) ([]string, error)

	// Evaluation session operations
	CreateSession(ctx context.Context, session *EvalSession) error
	CloseSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, openOnly bool) ([]*EvalSession, error)

	// Status operations
	GetStatus(ctx context.Context, containerID int64) (*ContainerStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Container kinds
const (
	KindSource  = "source"
	KindLibrary = "library"
)

// Container represents an indexed project or library
type Container struct {
	ID             int64
	Name           string
	RootPath       string
	Kind           string
	TotalDocuments int
	IndexVersion   string
	LastIndexedAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Document represents a tracked source or class file
type Document struct {
	ID            int64
	ContainerID   int64
	Path          string // Relative to the container root
	PackageName   string
	ContentHash   uint64 // xxhash of the content
	ModTime       time.Time
	SizeBytes     int64
	ParseError    *string // Nullable
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IndexEntry is one (category, key) pair of a document
type IndexEntry struct {
	Category string
	Key      string
}

// EvalSession records an evaluation session served to a client
type EvalSession struct {
	ID            string
	DeclaringType string
	CreatedAt     time.Time
	ClosedAt      *time.Time // Nullable
}

// ContainerStatus contains statistics about an indexed container
type ContainerStatus struct {
	Container      *Container
	DocumentsCount int
	EntriesCount   int
	ParseErrors    int
	IndexSizeMB    float64
	LastIndexedAt  time.Time
	Health         HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	EntriesIndexed     bool
}
