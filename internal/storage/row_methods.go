package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/schema"
)

// ========== Generic Row Methods ==========

// ListRows selects rows matching q
func (s *PostgresStore) ListRows(ctx context.Context, table *schema.Table, q RowQuery) ([]models.Row, error) {
	query, args := buildSelect(table, q)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// InsertRow inserts values and returns the stored row
func (s *PostgresStore) InsertRow(ctx context.Context, table *schema.Table, values models.Row) (models.Row, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty insert", ErrInvalidData)
	}
	query, args := buildInsert(table, values)
	return s.queryOne(ctx, query, args)
}

// UpdateRow updates the single row matching where and returns it
func (s *PostgresStore) UpdateRow(ctx context.Context, table *schema.Table, where []Condition, values models.Row) (models.Row, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrInvalidData)
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("update %s without conditions", table.Name)
	}
	query, args := buildUpdate(table, where, values)
	return s.queryOne(ctx, query, args)
}

// DeleteRow deletes the rows matching where
func (s *PostgresStore) DeleteRow(ctx context.Context, table *schema.Table, where []Condition) error {
	if len(where) == 0 {
		return fmt.Errorf("delete %s without conditions", table.Name)
	}
	query, args := buildDelete(table, where)

	result, err := s.getDB().ExecContext(ctx, query, args...)
	if err != nil {
		return classifyError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args []interface{}) (models.Row, error) {
	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

// ========== SQL construction ==========

// Identifiers are quoted with pq.QuoteIdentifier even though callers only pass
// registry columns; values are always bind parameters.

func quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func whereClause(where []Condition, args []interface{}) (string, []interface{}) {
	if len(where) == 0 {
		return "", args
	}
	parts := make([]string, len(where))
	for i, c := range where {
		args = append(args, bindValue(c.Value))
		parts[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c.Column), len(args))
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func sortedKeys(values models.Row) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildSelect(table *schema.Table, q RowQuery) (string, []interface{}) {
	columns := q.Columns
	if len(columns) == 0 {
		columns = table.Columns
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", quoteColumns(columns), pq.QuoteIdentifier(table.Name))

	where, args := whereClause(q.Where, nil)
	b.WriteString(where)

	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			terms[i] = pq.QuoteIdentifier(o.Column) + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}

	return b.String(), args
}

func buildInsert(table *schema.Table, values models.Row) (string, []interface{}) {
	keys := sortedKeys(values)
	args := make([]interface{}, len(keys))
	placeholders := make([]string, len(keys))
	for i, k := range keys {
		args[i] = bindValue(values[k])
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		pq.QuoteIdentifier(table.Name), quoteColumns(keys),
		strings.Join(placeholders, ", "), quoteColumns(table.Columns))

	return query, args
}

func buildUpdate(table *schema.Table, where []Condition, values models.Row) (string, []interface{}) {
	keys := sortedKeys(values)
	args := make([]interface{}, 0, len(keys)+len(where))
	sets := make([]string, len(keys))
	for i, k := range keys {
		args = append(args, bindValue(values[k]))
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(k), len(args))
	}

	whereSQL, args := whereClause(where, args)

	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s",
		pq.QuoteIdentifier(table.Name), strings.Join(sets, ", "), whereSQL,
		quoteColumns(table.Columns))

	return query, args
}

func buildDelete(table *schema.Table, where []Condition) (string, []interface{}) {
	whereSQL, args := whereClause(where, nil)
	return "DELETE FROM " + pq.QuoteIdentifier(table.Name) + whereSQL, args
}

// bindValue converts decoded JSON values into driver arguments
func bindValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return string(data)
	case json.Number:
		return val.String()
	case uuid.UUID:
		return val.String()
	default:
		return v
	}
}

// ========== Scanning ==========

func scanRows(rows *sql.Rows) ([]models.Row, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	out := make([]models.Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(types))
		ptrs := make([]interface{}, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(models.Row, len(types))
		for i, ct := range types {
			row[ct.Name()] = normalizeValue(ct.DatabaseTypeName(), values[i])
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// normalizeValue turns driver values into JSON friendly ones
func normalizeValue(dbType string, v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		switch dbType {
		case "JSON", "JSONB":
			raw := make(json.RawMessage, len(val))
			copy(raw, val)
			return raw
		case "NUMERIC", "DECIMAL":
			return parseNumeric(string(val))
		default:
			return string(val)
		}
	case string:
		switch dbType {
		case "JSON", "JSONB":
			return json.RawMessage(val)
		case "NUMERIC", "DECIMAL":
			return parseNumeric(val)
		}
		return val
	case [16]byte:
		return uuid.UUID(val).String()
	default:
		return v
	}
}

func parseNumeric(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
