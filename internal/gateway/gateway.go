// Package gateway implements generic, company-scoped access to the tables
// in the schema registry. Every statement it issues is filtered by the
// table's scope column, so rows of other companies are never read or written.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaopro/gestaopro-server/internal/config"
	"github.com/gestaopro/gestaopro-server/internal/events"
	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/observability"
	"github.com/gestaopro/gestaopro-server/internal/schema"
	"github.com/gestaopro/gestaopro-server/internal/storage"
)

// Operation names used in metrics and logs
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Gateway runs list/create/update/delete on registered tables
type Gateway struct {
	registry  *schema.Registry
	store     storage.Store
	publisher events.Publisher
	config    *config.GatewayConfig
	now       func() time.Time
}

// New creates a gateway. A nil publisher disables change events.
func New(registry *schema.Registry, store storage.Store, publisher events.Publisher, cfg *config.GatewayConfig) *Gateway {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Gateway{
		registry:  registry,
		store:     store,
		publisher: publisher,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Table resolves a registered table
func (g *Gateway) Table(name string) (*schema.Table, error) {
	table, ok := g.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, name)
	}
	return table, nil
}

// List returns the caller's rows of table filtered by the query parameters
func (g *Gateway) List(ctx context.Context, caller *models.Profile, tableName string, query url.Values) (rows []models.Row, err error) {
	defer func() { record(tableName, OpList, err) }()

	table, err := g.Table(tableName)
	if err != nil {
		return nil, err
	}

	scope, err := scopeCondition(table, caller)
	if err != nil {
		return nil, err
	}

	params, err := g.ParseListParams(table, query)
	if err != nil {
		return nil, err
	}

	rows, err = g.store.ListRows(ctx, table, storage.RowQuery{
		Columns: params.Columns,
		Where:   append([]storage.Condition{scope}, params.Filters...),
		Order:   params.Order,
		Limit:   params.Limit,
		Offset:  params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table.Name, err)
	}
	if rows == nil {
		rows = []models.Row{}
	}
	return rows, nil
}

// Create inserts a row owned by the caller's company
func (g *Gateway) Create(ctx context.Context, caller *models.Profile, tableName string, body models.Row) (row models.Row, err error) {
	defer func() { record(tableName, OpCreate, err) }()

	table, err := g.Table(tableName)
	if err != nil {
		return nil, err
	}
	if !table.Policy.Creatable {
		return nil, fmt.Errorf("%w: create %s", ErrOperationNotAllowed, table.Name)
	}
	if err := checkWrite(table, caller); err != nil {
		return nil, err
	}
	if _, err := scopeCondition(table, caller); err != nil {
		return nil, err
	}

	values, err := writableValues(table, body, schema.ColumnUpdatedAt)
	if err != nil {
		return nil, err
	}

	now := g.now()
	values[schema.ColumnID] = uuid.New().String()
	if table.HasColumn(schema.ColumnCreatedAt) {
		values[schema.ColumnCreatedAt] = now
	}
	if table.HasColumn(schema.ColumnUpdatedAt) {
		values[schema.ColumnUpdatedAt] = now
	}
	if table.Policy.AutoStampTenant {
		values[schema.TenantColumn] = caller.CompanyID.String()
	}

	row, err = g.store.InsertRow(ctx, table, values)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", table.Name, err)
	}

	g.publish(ctx, caller, table, events.OperationCreated, row.ID())
	return row, nil
}

// Update changes the row id if it lies within the caller's scope.
// Rows outside the scope are reported as storage.ErrNotFound.
func (g *Gateway) Update(ctx context.Context, caller *models.Profile, tableName, id string, body models.Row) (row models.Row, err error) {
	defer func() { record(tableName, OpUpdate, err) }()

	table, err := g.Table(tableName)
	if err != nil {
		return nil, err
	}
	if err := checkWrite(table, caller); err != nil {
		return nil, err
	}

	where, err := rowConditions(table, caller, id)
	if err != nil {
		return nil, err
	}

	values, err := writableValues(table, body, schema.ColumnUpdatedAt)
	if err != nil {
		return nil, err
	}
	if table.HasColumn(schema.ColumnUpdatedAt) {
		values[schema.ColumnUpdatedAt] = g.now()
	}

	row, err = g.store.UpdateRow(ctx, table, where, values)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table.Name, err)
	}

	g.publish(ctx, caller, table, events.OperationUpdated, row.ID())
	return row, nil
}

// Delete removes the row id if it lies within the caller's scope
func (g *Gateway) Delete(ctx context.Context, caller *models.Profile, tableName, id string) (err error) {
	defer func() { record(tableName, OpDelete, err) }()

	table, err := g.Table(tableName)
	if err != nil {
		return err
	}
	if !table.Policy.Deletable {
		return fmt.Errorf("%w: delete %s", ErrOperationNotAllowed, table.Name)
	}
	if err := checkWrite(table, caller); err != nil {
		return err
	}

	where, err := rowConditions(table, caller, id)
	if err != nil {
		return err
	}

	if err := g.store.DeleteRow(ctx, table, where); err != nil {
		return fmt.Errorf("delete %s: %w", table.Name, err)
	}

	g.publish(ctx, caller, table, events.OperationDeleted, id)
	return nil
}

// scopeCondition is the predicate that confines a statement to the caller
func scopeCondition(table *schema.Table, caller *models.Profile) (storage.Condition, error) {
	switch table.Policy.ScopeSource {
	case schema.ScopeSelf:
		return storage.Condition{Column: table.Policy.ScopeColumn, Value: caller.ID.String()}, nil
	default:
		if !caller.HasCompany() {
			return storage.Condition{}, ErrNoCompany
		}
		return storage.Condition{Column: table.Policy.ScopeColumn, Value: caller.CompanyID.String()}, nil
	}
}

// rowConditions matches a single row by id within the caller's scope.
// A malformed id cannot match any row.
func rowConditions(table *schema.Table, caller *models.Profile, id string) ([]storage.Condition, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	scope, err := scopeCondition(table, caller)
	if err != nil {
		return nil, err
	}

	return []storage.Condition{
		{Column: schema.ColumnID, Value: parsed.String()},
		scope,
	}, nil
}

func checkWrite(table *schema.Table, caller *models.Profile) error {
	if !table.AllowsWrite(caller.Role) {
		return fmt.Errorf("%w: %s cannot write %s", ErrForbidden, caller.Role, table.Name)
	}
	return nil
}

// writableValues drops gateway-managed and protected keys from body and
// rejects keys that are not columns of table
func writableValues(table *schema.Table, body models.Row, managed ...string) (models.Row, error) {
	skip := map[string]bool{
		schema.ColumnID:        true,
		schema.ColumnCreatedAt: true,
	}
	for _, c := range managed {
		skip[c] = true
	}
	if !table.IsTenantRecord() {
		skip[schema.TenantColumn] = true
	}

	values := make(models.Row, len(body))
	for k, v := range body {
		if !table.HasColumn(k) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
		if skip[k] || table.IsProtected(k) {
			continue
		}
		values[k] = v
	}
	return values, nil
}

func (g *Gateway) publish(ctx context.Context, caller *models.Profile, table *schema.Table, operation, id string) {
	companyID := "none"
	if caller.HasCompany() {
		companyID = caller.CompanyID.String()
	}

	g.publisher.Publish(ctx, events.Event{
		Table:      table.Name,
		Operation:  operation,
		ID:         id,
		CompanyID:  companyID,
		ActorID:    caller.ID.String(),
		OccurredAt: g.now(),
	})
}

func record(table, operation string, err error) {
	outcome := observability.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		outcome = observability.OutcomeNotFound
	case errors.Is(err, ErrTableNotAllowed):
		// keep label values bounded
		table = "unknown"
		outcome = observability.OutcomeRejected
	case errors.Is(err, ErrOperationNotAllowed), errors.Is(err, ErrUnknownColumn),
		errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrForbidden), errors.Is(err, ErrNoCompany),
		errors.Is(err, storage.ErrInvalidData), errors.Is(err, storage.ErrDuplicateKey):
		outcome = observability.OutcomeRejected
	default:
		outcome = observability.OutcomeError
		log.Error().Err(err).Str("table", table).Str("operation", operation).Msg("Gateway operation failed")
	}
	observability.GatewayOperationsTotal.WithLabelValues(table, operation, outcome).Inc()
}
