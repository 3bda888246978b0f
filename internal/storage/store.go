package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/schema"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Profile methods
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	TouchProfileSignIn(ctx context.Context, id uuid.UUID, at time.Time) error

	// Company methods
	CreateCompany(ctx context.Context, company *models.Company) error

	// Generic row methods. Callers pass registry-validated tables and columns.
	ListRows(ctx context.Context, table *schema.Table, q RowQuery) ([]models.Row, error)
	InsertRow(ctx context.Context, table *schema.Table, values models.Row) (models.Row, error)
	UpdateRow(ctx context.Context, table *schema.Table, where []Condition, values models.Row) (models.Row, error)
	DeleteRow(ctx context.Context, table *schema.Table, where []Condition) error

	// Health
	Ping(ctx context.Context) error
	Stats() sql.DBStats

	// Close the store
	Close() error
}

// Condition is an equality predicate on a column
type Condition struct {
	Column string
	Value  interface{}
}

// Order is a single ORDER BY term
type Order struct {
	Column     string
	Descending bool
}

// RowQuery describes a row listing. Empty Columns selects every known column.
type RowQuery struct {
	Columns []string
	Where   []Condition
	Order   []Order
	Limit   int
	Offset  int
}
