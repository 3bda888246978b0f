package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/schema"
)

func seedProducts(t *testing.T, store *MemoryStore, companyID string, names ...string) {
	table := productsTable(t)
	for i, name := range names {
		_, err := store.InsertRow(context.Background(), table, models.Row{
			"company_id": companyID,
			"name":       name,
			"price":      float64(i + 1),
		})
		require.NoError(t, err)
	}
}

func TestMemoryStore_ListFiltersAndOrders(t *testing.T) {
	store := NewMemoryStore()
	seedProducts(t, store, "c-1", "b", "a", "c")
	seedProducts(t, store, "c-2", "other")

	out, err := store.ListRows(context.Background(), productsTable(t), RowQuery{
		Columns: []string{"name", "price"},
		Where:   []Condition{{Column: "company_id", Value: "c-1"}},
		Order:   []Order{{Column: "price", Descending: true}},
		Limit:   2,
	})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, models.Row{"name": "c", "price": 3.0}, out[0])
	assert.Equal(t, models.Row{"name": "a", "price": 2.0}, out[1])
}

func TestMemoryStore_OffsetPastEnd(t *testing.T) {
	store := NewMemoryStore()
	seedProducts(t, store, "c-1", "a")

	out, err := store.ListRows(context.Background(), productsTable(t), RowQuery{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMemoryStore_ProjectionIncludesMissingColumns(t *testing.T) {
	store := NewMemoryStore()
	seedProducts(t, store, "c-1", "a")

	out, err := store.ListRows(context.Background(), productsTable(t), RowQuery{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	table := productsTable(t)
	assert.Len(t, out[0], len(table.Columns))
	assert.Contains(t, out[0], "sku")
	assert.Nil(t, out[0]["sku"])
}

func TestMemoryStore_UpdateAndDeleteScoped(t *testing.T) {
	store := NewMemoryStore()
	table := productsTable(t)

	row, err := store.InsertRow(context.Background(), table, models.Row{"company_id": "c-1", "name": "Widget"})
	require.NoError(t, err)
	id := row.ID()
	require.NotEmpty(t, id)

	_, err = store.UpdateRow(context.Background(), table,
		[]Condition{{Column: "id", Value: id}, {Column: "company_id", Value: "c-2"}},
		models.Row{"name": "Stolen"})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := store.UpdateRow(context.Background(), table,
		[]Condition{{Column: "id", Value: id}, {Column: "company_id", Value: "c-1"}},
		models.Row{"name": "Gadget"})
	require.NoError(t, err)
	assert.Equal(t, "Gadget", updated["name"])

	err = store.DeleteRow(context.Background(), table,
		[]Condition{{Column: "id", Value: id}, {Column: "company_id", Value: "c-2"}})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.DeleteRow(context.Background(), table,
		[]Condition{{Column: "id", Value: id}, {Column: "company_id", Value: "c-1"}})
	require.NoError(t, err)

	out, err := store.ListRows(context.Background(), table, RowQuery{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMemoryStore_UUIDConditionsMatchStrings(t *testing.T) {
	store := NewMemoryStore()
	companyID := uuid.New()
	seedProducts(t, store, companyID.String(), "a")

	out, err := store.ListRows(context.Background(), productsTable(t), RowQuery{
		Where: []Condition{{Column: "company_id", Value: companyID}},
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestMemoryStore_Profiles(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	company := &models.Company{Name: "Acme"}
	require.NoError(t, store.CreateCompany(ctx, company))

	profile := &models.Profile{
		Email:        "ana@example.com",
		FullName:     "Ana",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
		CompanyID:    &company.ID,
	}
	require.NoError(t, store.CreateProfile(ctx, profile))

	err := store.CreateProfile(ctx, &models.Profile{Email: "ana@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	byEmail, err := store.GetProfileByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	require.NotNil(t, byEmail.CompanyID)
	assert.Equal(t, company.ID, *byEmail.CompanyID)

	at := time.Now().UTC()
	require.NoError(t, store.TouchProfileSignIn(ctx, profile.ID, at))
	byID, err := store.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastSignInAt)
	assert.True(t, at.Equal(*byID.LastSignInAt))

	_, err = store.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	// the password hash never leaves through the generic row path
	profiles, _ := schema.Default().Lookup(schema.TableProfiles)
	rows, err := store.ListRows(ctx, profiles, RowQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0], "password_hash")
}

func TestMemoryStore_ProfileUnknownCompany(t *testing.T) {
	store := NewMemoryStore()
	missing := uuid.New()

	err := store.CreateProfile(context.Background(), &models.Profile{
		Email: "x@example.com", PasswordHash: "h", CompanyID: &missing,
	})
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestMemoryStore_Transaction(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateCompany(ctx, &models.Company{Name: "Rolled back"}))
	require.NoError(t, tx.Rollback())

	companies, _ := schema.Default().Lookup(schema.TableCompanies)
	rows, err := store.ListRows(ctx, companies, RowQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateCompany(ctx, &models.Company{Name: "Committed"}))
	require.NoError(t, tx.Commit())

	rows, err = store.ListRows(ctx, companies, RowQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Committed", rows[0]["name"])
}

func TestMemoryStore_CommitKeepsConcurrentWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateCompany(ctx, &models.Company{Name: "Acme"}))

	seedProducts(t, store, "c-1", "Widget")
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{Email: "early@example.com", Role: models.RoleUser}))

	require.NoError(t, tx.Commit())

	products, err := store.ListRows(ctx, productsTable(t), RowQuery{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0]["name"])

	_, err = store.GetProfileByEmail(ctx, "early@example.com")
	require.NoError(t, err)

	companies, _ := schema.Default().Lookup(schema.TableCompanies)
	rows, err := store.ListRows(ctx, companies, RowQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["name"])
}

func TestMemoryStore_CommitRechecksUniqueEmail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	company := &models.Company{Name: "Acme"}
	require.NoError(t, tx.CreateCompany(ctx, company))
	require.NoError(t, tx.CreateProfile(ctx, &models.Profile{
		Email: "ana@example.com", Role: models.RoleAdmin, CompanyID: &company.ID,
	}))

	first := &models.Profile{Email: "ana@example.com", Role: models.RoleUser}
	require.NoError(t, store.CreateProfile(ctx, first))

	err = tx.Commit()
	assert.ErrorIs(t, err, ErrDuplicateKey)

	got, err := store.GetProfileByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	companies, _ := schema.Default().Lookup(schema.TableCompanies)
	rows, err := store.ListRows(ctx, companies, RowQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues(2.0, 10.0))
	assert.Equal(t, -1, compareValues("2", "10"))
	assert.Equal(t, 1, compareValues("b", "a"))
	assert.Equal(t, 1, compareValues(nil, "a"))
	assert.Equal(t, 0, compareValues(nil, nil))

	earlier := time.Now()
	assert.Equal(t, -1, compareValues(earlier, earlier.Add(time.Second)))
}
