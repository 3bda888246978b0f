package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/schema"
)

// MemoryStore is a process-local Store used by the "memory" driver and tests.
// Every table, profiles and companies included, is kept as ordered rows.
type MemoryStore struct {
	mu     *sync.RWMutex
	tables map[string][]models.Row

	// set on transaction handles
	parent  *MemoryStore
	journal []memoryOp
	done    bool
}

// memoryOp is a write applied to a store whose lock is held by the caller
type memoryOp func(s *MemoryStore) error

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:     &sync.RWMutex{},
		tables: make(map[string][]models.Row),
	}
}

// BeginTx starts a transaction on a snapshot of the data. Writes are
// journaled and replayed onto the current parent data at Commit.
func (s *MemoryStore) BeginTx(ctx context.Context) (Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &MemoryStore{
		mu:     &sync.RWMutex{},
		tables: cloneTables(s.tables),
		parent: s,
	}, nil
}

// Commit replays the journal onto the parent. Constraints are checked again
// against the parent data; on failure nothing is applied.
func (s *MemoryStore) Commit() error {
	if s.parent == nil || s.done {
		return nil
	}
	s.done = true

	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()

	staged := &MemoryStore{mu: &sync.RWMutex{}, tables: cloneTables(s.parent.tables)}
	for _, op := range s.journal {
		if err := op(staged); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	s.parent.tables = staged.tables
	return nil
}

// Rollback discards the transaction
func (s *MemoryStore) Rollback() error {
	s.done = true
	s.journal = nil
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Stats returns zero pool statistics
func (s *MemoryStore) Stats() sql.DBStats {
	return sql.DBStats{}
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// write applies op under the write lock and journals it on transactions
func (s *MemoryStore) write(op memoryOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := op(s); err != nil {
		return err
	}
	if s.parent != nil {
		s.journal = append(s.journal, op)
	}
	return nil
}

// ========== Profile Methods ==========

// CreateProfile creates a new profile; email is unique
func (s *MemoryStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	row := profileToRow(profile)

	return s.write(func(s *MemoryStore) error {
		for _, existing := range s.tables[schema.TableProfiles] {
			if existing["email"] == row["email"] {
				return fmt.Errorf("%w: profiles_email_key", ErrDuplicateKey)
			}
		}
		if s.findLocked(schema.TableProfiles, row.ID()) >= 0 {
			return fmt.Errorf("%w: profiles_pkey", ErrDuplicateKey)
		}
		if profile.CompanyID != nil && s.findLocked(schema.TableCompanies, profile.CompanyID.String()) < 0 {
			return fmt.Errorf("%w: profiles_company_id_fkey", ErrInvalidData)
		}

		s.tables[schema.TableProfiles] = append(s.tables[schema.TableProfiles], row.Clone())
		return nil
	})
}

// GetProfile gets a profile by ID
func (s *MemoryStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.findLocked(schema.TableProfiles, id.String())
	if i < 0 {
		return nil, ErrNotFound
	}
	return rowToProfile(s.tables[schema.TableProfiles][i]), nil
}

// GetProfileByEmail gets a profile by email
func (s *MemoryStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.tables[schema.TableProfiles] {
		if row["email"] == email {
			return rowToProfile(row), nil
		}
	}
	return nil, ErrNotFound
}

// TouchProfileSignIn records a successful sign in
func (s *MemoryStore) TouchProfileSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.write(func(s *MemoryStore) error {
		i := s.findLocked(schema.TableProfiles, id.String())
		if i < 0 {
			return ErrNotFound
		}
		s.tables[schema.TableProfiles][i]["last_sign_in_at"] = at
		return nil
	})
}

// CreateCompany creates a new company
func (s *MemoryStore) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now
	if company.Settings == nil {
		company.Settings = make(models.Variables)
	}

	row := models.Row{
		"id":         company.ID.String(),
		"name":       company.Name,
		"document":   company.Document,
		"email":      company.Email,
		"phone":      company.Phone,
		"address":    company.Address,
		"settings":   map[string]interface{}(company.Settings),
		"created_at": company.CreatedAt,
		"updated_at": company.UpdatedAt,
	}

	return s.write(func(s *MemoryStore) error {
		if s.findLocked(schema.TableCompanies, row.ID()) >= 0 {
			return fmt.Errorf("%w: companies_pkey", ErrDuplicateKey)
		}
		s.tables[schema.TableCompanies] = append(s.tables[schema.TableCompanies], row.Clone())
		return nil
	})
}

// ========== Generic Row Methods ==========

// ListRows selects rows matching q
func (s *MemoryStore) ListRows(ctx context.Context, table *schema.Table, q RowQuery) ([]models.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Row
	for _, row := range s.tables[table.Name] {
		if matches(row, q.Where) {
			matched = append(matched, row)
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Order {
				c := compareValues(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	columns := q.Columns
	if len(columns) == 0 {
		columns = table.Columns
	}
	out := make([]models.Row, 0, len(matched))
	for _, row := range matched {
		out = append(out, project(row, columns))
	}
	return out, nil
}

// InsertRow inserts values and returns the stored row
func (s *MemoryStore) InsertRow(ctx context.Context, table *schema.Table, values models.Row) (models.Row, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty insert", ErrInvalidData)
	}

	row := values.Clone()
	if row.ID() == "" {
		row[schema.ColumnID] = uuid.New().String()
	}
	row[schema.ColumnID] = normalizeKey(row[schema.ColumnID])

	err := s.write(func(s *MemoryStore) error {
		if s.findLocked(table.Name, row.ID()) >= 0 {
			return fmt.Errorf("%w: %s_pkey", ErrDuplicateKey, table.Name)
		}
		s.tables[table.Name] = append(s.tables[table.Name], row.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project(row, table.Columns), nil
}

// UpdateRow updates the single row matching where and returns it
func (s *MemoryStore) UpdateRow(ctx context.Context, table *schema.Table, where []Condition, values models.Row) (models.Row, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrInvalidData)
	}

	var updated models.Row
	err := s.write(func(s *MemoryStore) error {
		for _, row := range s.tables[table.Name] {
			if !matches(row, where) {
				continue
			}
			for k, v := range values {
				row[k] = v
			}
			updated = project(row, table.Columns)
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRow deletes the rows matching where
func (s *MemoryStore) DeleteRow(ctx context.Context, table *schema.Table, where []Condition) error {
	return s.write(func(s *MemoryStore) error {
		rows := s.tables[table.Name]
		kept := rows[:0]
		deleted := 0
		for _, row := range rows {
			if matches(row, where) {
				deleted++
				continue
			}
			kept = append(kept, row)
		}
		s.tables[table.Name] = kept

		if deleted == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ========== helpers ==========

func (s *MemoryStore) findLocked(table, id string) int {
	for i, row := range s.tables[table] {
		if row.ID() == id {
			return i
		}
	}
	return -1
}

func cloneTables(in map[string][]models.Row) map[string][]models.Row {
	out := make(map[string][]models.Row, len(in))
	for name, rows := range in {
		copied := make([]models.Row, len(rows))
		for i, row := range rows {
			copied[i] = row.Clone()
		}
		out[name] = copied
	}
	return out
}

func project(row models.Row, columns []string) models.Row {
	out := make(models.Row, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}

func matches(row models.Row, where []Condition) bool {
	for _, c := range where {
		if normalizeKey(row[c.Column]) != normalizeKey(c.Value) {
			return false
		}
	}
	return true
}

// normalizeKey renders a value the way PostgreSQL would compare it with a
// text parameter
func normalizeKey(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case uuid.UUID:
		return val.String()
	case *uuid.UUID:
		if val == nil {
			return nil
		}
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1 // NULLS LAST
		default:
			return -1
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	sa, _ := normalizeKey(a).(string)
	sb, _ := normalizeKey(b).(string)
	fa, errA := strconv.ParseFloat(sa, 64)
	fb, errB := strconv.ParseFloat(sb, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(sa, sb)
}

func profileToRow(p *models.Profile) models.Row {
	var companyID interface{}
	if p.CompanyID != nil {
		companyID = p.CompanyID.String()
	}
	var lastSignIn interface{}
	if p.LastSignInAt != nil {
		lastSignIn = *p.LastSignInAt
	}
	return models.Row{
		"id":              p.ID.String(),
		"email":           p.Email,
		"full_name":       p.FullName,
		"phone":           p.Phone,
		"avatar_url":      p.AvatarURL,
		"password_hash":   p.PasswordHash,
		"role":            string(p.Role),
		"company_id":      companyID,
		"last_sign_in_at": lastSignIn,
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
}

func rowToProfile(row models.Row) *models.Profile {
	p := &models.Profile{}
	p.ID, _ = uuid.Parse(row.ID())
	p.Email, _ = row["email"].(string)
	p.FullName, _ = row["full_name"].(string)
	p.Phone, _ = row["phone"].(string)
	p.AvatarURL, _ = row["avatar_url"].(string)
	p.PasswordHash, _ = row["password_hash"].(string)
	role, _ := row["role"].(string)
	p.Role = models.Role(role)
	if s, ok := normalizeKey(row["company_id"]).(string); ok && s != "" {
		if id, err := uuid.Parse(s); err == nil {
			p.CompanyID = &id
		}
	}
	if t, ok := row["last_sign_in_at"].(time.Time); ok {
		p.LastSignInAt = &t
	}
	p.CreatedAt, _ = row["created_at"].(time.Time)
	p.UpdatedAt, _ = row["updated_at"].(time.Time)
	return p
}
