// Package schema holds the registry of tables reachable through the data
// gateway: which columns each table exposes and how rows are scoped to the
// calling identity.
package schema

import (
	"fmt"
	"sort"

	"github.com/gestaopro/gestaopro-server/internal/models"
)

// TenantColumn is the column that ties a business row to its company
const TenantColumn = "company_id"

// Stamped columns
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// ScopeSource names the caller attribute a table's scope column is compared with
type ScopeSource int

const (
	// ScopeTenant compares against the caller's company id
	ScopeTenant ScopeSource = iota
	// ScopeSelf compares against the caller's own profile id
	ScopeSelf
)

func (s ScopeSource) String() string {
	switch s {
	case ScopeTenant:
		return "tenant"
	case ScopeSelf:
		return "self"
	default:
		return fmt.Sprintf("ScopeSource(%d)", int(s))
	}
}

// Policy describes how the gateway scopes and mutates a table
type Policy struct {
	// ScopeColumn is matched against ScopeSource in every statement
	ScopeColumn string
	ScopeSource ScopeSource

	// AutoStampTenant overwrites TenantColumn with the caller's company on create
	AutoStampTenant bool

	Creatable bool
	Deletable bool

	// WriteRoles restricts create/update/delete; empty means any role
	WriteRoles []models.Role

	// Protected columns are silently dropped from create and update bodies
	Protected []string
}

// Table is a registered table and its known columns
type Table struct {
	Name    string
	Policy  Policy
	Columns []string

	columns   map[string]struct{}
	protected map[string]struct{}
}

// HasColumn reports whether name is a known column of the table
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// IsProtected reports whether name may not be written through the gateway
func (t *Table) IsProtected(name string) bool {
	_, ok := t.protected[name]
	return ok
}

// IsTenantRecord reports whether the table holds the tenant rows themselves
func (t *Table) IsTenantRecord() bool {
	return t.Policy.ScopeColumn == ColumnID && t.Policy.ScopeSource == ScopeTenant
}

// IsIdentityRecord reports whether the table holds the callers' own identity rows
func (t *Table) IsIdentityRecord() bool {
	return t.Policy.ScopeColumn == ColumnID && t.Policy.ScopeSource == ScopeSelf
}

// AllowsWrite reports whether role may mutate the table
func (t *Table) AllowsWrite(role models.Role) bool {
	if len(t.Policy.WriteRoles) == 0 {
		return true
	}
	for _, r := range t.Policy.WriteRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (t *Table) init() error {
	if t.Name == "" {
		return fmt.Errorf("table without name")
	}

	t.columns = make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if _, dup := t.columns[c]; dup {
			return fmt.Errorf("table %s: duplicate column %s", t.Name, c)
		}
		t.columns[c] = struct{}{}
	}

	if !t.HasColumn(ColumnID) {
		return fmt.Errorf("table %s: missing %s column", t.Name, ColumnID)
	}
	if !t.HasColumn(t.Policy.ScopeColumn) {
		return fmt.Errorf("table %s: scope column %q is not a column", t.Name, t.Policy.ScopeColumn)
	}
	if t.Policy.AutoStampTenant && !t.HasColumn(TenantColumn) {
		return fmt.Errorf("table %s: auto-stamp requires %s column", t.Name, TenantColumn)
	}

	t.protected = make(map[string]struct{}, len(t.Policy.Protected))
	for _, c := range t.Policy.Protected {
		if !t.HasColumn(c) {
			return fmt.Errorf("table %s: protected column %q is not a column", t.Name, c)
		}
		t.protected[c] = struct{}{}
	}

	return nil
}

// Registry is the allow-list of gateway tables
type Registry struct {
	tables map[string]*Table
}

// NewRegistry validates and indexes tables
func NewRegistry(tables ...*Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if err := t.init(); err != nil {
			return nil, err
		}
		if _, dup := r.tables[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table %s", t.Name)
		}
		r.tables[t.Name] = t
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on an invalid definition
func MustRegistry(tables ...*Table) *Registry {
	r, err := NewRegistry(tables...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the table registered under name
func (r *Registry) Lookup(name string) (*Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Names returns the registered table names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
