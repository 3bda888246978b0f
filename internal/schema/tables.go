package schema

import "github.com/gestaopro/gestaopro-server/internal/models"

// Distinguished tables
const (
	TableProfiles  = "profiles"
	TableCompanies = "companies"
)

// businessTable builds a company-scoped table with the common columns
func businessTable(name string, columns ...string) *Table {
	cols := append([]string{ColumnID, TenantColumn}, columns...)
	cols = append(cols, ColumnCreatedAt, ColumnUpdatedAt)
	return &Table{
		Name:    name,
		Columns: cols,
		Policy: Policy{
			ScopeColumn:     TenantColumn,
			ScopeSource:     ScopeTenant,
			AutoStampTenant: true,
			Creatable:       true,
			Deletable:       true,
		},
	}
}

// Default returns the registry of every table the application exposes.
// Column lists mirror internal/storage/migrations.
func Default() *Registry {
	return MustRegistry(
		&Table{
			Name: TableProfiles,
			Columns: []string{
				ColumnID, "email", "full_name", "phone", "avatar_url", "role",
				TenantColumn, "last_sign_in_at", ColumnCreatedAt, ColumnUpdatedAt,
			},
			// Profiles are created only by signup and are never hard-deleted,
			// so create and delete stay off here.
			Policy: Policy{
				ScopeColumn: ColumnID,
				ScopeSource: ScopeSelf,
				Protected:   []string{"email", "role", TenantColumn, "last_sign_in_at"},
			},
		},
		&Table{
			Name: TableCompanies,
			Columns: []string{
				ColumnID, "name", "document", "email", "phone", "address", "settings",
				ColumnCreatedAt, ColumnUpdatedAt,
			},
			Policy: Policy{
				ScopeColumn: ColumnID,
				ScopeSource: ScopeTenant,
				WriteRoles:  []models.Role{models.RoleAdmin},
			},
		},
		businessTable("categories", "name", "description", "type"),
		businessTable("suppliers",
			"name", "document", "email", "phone", "address", "contact_name", "notes"),
		businessTable("products",
			"name", "description", "sku", "barcode", "category_id", "supplier_id",
			"price", "cost_price", "stock_quantity", "min_stock", "unit", "active", "image_url"),
		businessTable("customers",
			"name", "document", "email", "phone", "address", "city", "state", "zip_code",
			"birth_date", "notes", "active"),
		businessTable("stock_movements",
			"product_id", "type", "quantity", "unit_cost", "reason", "reference_id", "created_by"),
		businessTable("sales",
			"customer_id", "sale_number", "sale_date", "status", "payment_method",
			"subtotal", "discount", "total", "notes", "created_by"),
		businessTable("sale_items",
			"sale_id", "product_id", "quantity", "unit_price", "discount", "total"),
		businessTable("quotes",
			"customer_id", "quote_number", "status", "valid_until", "subtotal", "discount",
			"total", "notes", "created_by"),
		businessTable("quote_items",
			"quote_id", "product_id", "description", "quantity", "unit_price", "discount", "total"),
		businessTable("accounts_receivable",
			"customer_id", "sale_id", "description", "amount", "due_date", "paid_date",
			"paid_amount", "status", "payment_method", "notes"),
		businessTable("accounts_payable",
			"supplier_id", "description", "category", "amount", "due_date", "paid_date",
			"paid_amount", "status", "payment_method", "notes"),
		businessTable("calendar_events",
			"title", "description", "start_at", "end_at", "all_day", "type", "color",
			"customer_id", "created_by"),
		businessTable("automations",
			"name", "description", "trigger_type", "trigger_config", "action_type",
			"action_config", "active", "last_run_at"),
		businessTable("ai_insights",
			"type", "title", "content", "priority", "data", "read", "generated_at"),
	)
}
