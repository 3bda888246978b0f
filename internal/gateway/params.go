package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gestaopro/gestaopro-server/internal/schema"
	"github.com/gestaopro/gestaopro-server/internal/storage"
)

// ListParams are the parsed query parameters of a list request
type ListParams struct {
	Columns []string
	Filters []storage.Condition
	Order   []storage.Order
	Limit   int
	Offset  int
}

// ParseListParams validates select, eq, order, limit and offset against table.
//
//	select=name,price        known columns; empty or "*" selects all
//	eq=status.paid           repeatable, split at the first '.'
//	order=created_at.desc    comma separated; direction asc|desc, also "col:desc"
//	limit=50&offset=100
func (g *Gateway) ParseListParams(table *schema.Table, values url.Values) (*ListParams, error) {
	p := &ListParams{Limit: g.config.DefaultLimit}

	if sel := strings.TrimSpace(values.Get("select")); sel != "" && sel != "*" {
		for _, col := range strings.Split(sel, ",") {
			col = strings.TrimSpace(col)
			if col == "" {
				continue
			}
			if !table.HasColumn(col) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
			}
			p.Columns = append(p.Columns, col)
		}
	}

	for _, eq := range values["eq"] {
		col, val, ok := strings.Cut(eq, ".")
		if !ok || col == "" {
			return nil, fmt.Errorf("%w: eq=%s", ErrInvalidQuery, eq)
		}
		if !table.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
		p.Filters = append(p.Filters, storage.Condition{Column: col, Value: val})
	}

	if order := strings.TrimSpace(values.Get("order")); order != "" {
		for _, term := range strings.Split(order, ",") {
			o, err := parseOrderTerm(table, strings.TrimSpace(term))
			if err != nil {
				return nil, err
			}
			p.Order = append(p.Order, o)
		}
	}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > g.config.MaxLimit {
			return nil, fmt.Errorf("%w: limit=%s", ErrInvalidQuery, raw)
		}
		p.Limit = n
	}

	if raw := values.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: offset=%s", ErrInvalidQuery, raw)
		}
		p.Offset = n
	}

	return p, nil
}

func parseOrderTerm(table *schema.Table, term string) (storage.Order, error) {
	col, dir := term, ""
	if i := strings.IndexAny(term, ".: "); i >= 0 {
		col, dir = term[:i], strings.ToLower(strings.TrimSpace(term[i+1:]))
	}

	if !table.HasColumn(col) {
		return storage.Order{}, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}

	switch dir {
	case "", "asc":
		return storage.Order{Column: col}, nil
	case "desc":
		return storage.Order{Column: col, Descending: true}, nil
	default:
		return storage.Order{}, fmt.Errorf("%w: order=%s", ErrInvalidQuery, term)
	}
}
