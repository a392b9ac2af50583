package model

// Field maps one GraphQL field of an ERP entity onto a table column.
type Field struct {
	Name   string `json:"name"`   // GraphQL field name
	Column string `json:"column"` // database column
	Type   string `json:"type"`   // GraphQL scalar: ID, String, Int, Float, Boolean
}

// Entity describes how an ERP business object is exposed over GraphQL and
// where it lives in the ERP database.
type Entity struct {
	TypeName    string   `json:"type_name"`    // GraphQL object type
	ListField   string   `json:"list_field"`   // Query field returning [TypeName!]!
	SingleField string   `json:"single_field"` // Query field returning TypeName by id
	Table       string   `json:"table"`        // database table
	Key         string   `json:"key"`          // primary key column
	Fields      []Field  `json:"fields"`       // ordered; Fields[0] is always the id
	Filters     []string `json:"filters"`      // GraphQL field names accepted as equality arguments on ListField
}

// Field returns the field with the given GraphQL name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsFilter reports whether name may be used as an equality argument.
func (e *Entity) IsFilter(name string) bool {
	for _, f := range e.Filters {
		if f == name {
			return true
		}
	}
	return false
}

func id() Field { return Field{Name: "id", Column: "id", Type: "ID"} }

func str(name, column string) Field { return Field{Name: name, Column: column, Type: "String"} }

func ref(name, column string) Field { return Field{Name: name, Column: column, Type: "ID"} }

// Entities returns the catalog of ERP entities served by the gateway.
func Entities() []Entity {
	return []Entity{
		{
			TypeName: "Customer", ListField: "customers", SingleField: "customer",
			Table: "customers", Key: "id",
			Fields: []Field{
				id(), str("code", "code"), str("name", "name"), ref("companyId", "company_id"),
				str("email", "email"), str("phone", "phone"), str("currency", "currency"),
				{Name: "isActive", Column: "is_active", Type: "Boolean"}, str("createdAt", "created_at"),
			},
			Filters: []string{"code", "companyId", "currency", "isActive"},
		},
		{
			TypeName: "Supplier", ListField: "suppliers", SingleField: "supplier",
			Table: "suppliers", Key: "id",
			Fields: []Field{
				id(), str("code", "code"), str("name", "name"), ref("companyId", "company_id"),
				str("email", "email"), str("phone", "phone"), str("currency", "currency"),
				{Name: "isActive", Column: "is_active", Type: "Boolean"}, str("createdAt", "created_at"),
			},
			Filters: []string{"code", "companyId", "currency", "isActive"},
		},
		{
			TypeName: "SalesOrder", ListField: "salesOrders", SingleField: "salesOrder",
			Table: "sales_orders", Key: "id",
			Fields: []Field{
				id(), str("orderNumber", "order_number"), ref("customerId", "customer_id"),
				ref("companyId", "company_id"), ref("siteId", "site_id"), str("orderDate", "order_date"),
				str("status", "status"), str("currency", "currency"),
				{Name: "totalAmount", Column: "total_amount", Type: "Float"},
			},
			Filters: []string{"orderNumber", "customerId", "companyId", "siteId", "status"},
		},
		{
			TypeName: "PurchaseOrder", ListField: "purchaseOrders", SingleField: "purchaseOrder",
			Table: "purchase_orders", Key: "id",
			Fields: []Field{
				id(), str("orderNumber", "order_number"), ref("supplierId", "supplier_id"),
				ref("companyId", "company_id"), ref("siteId", "site_id"), str("orderDate", "order_date"),
				str("status", "status"), str("currency", "currency"),
				{Name: "totalAmount", Column: "total_amount", Type: "Float"},
			},
			Filters: []string{"orderNumber", "supplierId", "companyId", "siteId", "status"},
		},
		{
			TypeName: "Company", ListField: "companies", SingleField: "company",
			Table: "companies", Key: "id",
			Fields: []Field{
				id(), str("code", "code"), str("name", "name"), str("legalName", "legal_name"),
				str("country", "country"), str("currency", "currency"),
			},
			Filters: []string{"code", "country"},
		},
		{
			TypeName: "Site", ListField: "sites", SingleField: "site",
			Table: "sites", Key: "id",
			Fields: []Field{
				id(), str("code", "code"), str("name", "name"), ref("companyId", "company_id"),
				str("address", "address"), str("country", "country"),
			},
			Filters: []string{"code", "companyId", "country"},
		},
		{
			TypeName: "CurrencyRate", ListField: "currencyRates", SingleField: "currencyRate",
			Table: "currency_rates", Key: "id",
			Fields: []Field{
				id(), str("fromCurrency", "from_currency"), str("toCurrency", "to_currency"),
				{Name: "rate", Column: "rate", Type: "Float"}, str("effectiveDate", "effective_date"),
			},
			Filters: []string{"fromCurrency", "toCurrency", "effectiveDate"},
		},
		{
			TypeName: "AccountingDimension", ListField: "accountingDimensions", SingleField: "accountingDimension",
			Table: "accounting_dimensions", Key: "id",
			Fields: []Field{
				id(), str("code", "code"), str("name", "name"), str("dimensionType", "dimension_type"),
				ref("companyId", "company_id"), {Name: "isActive", Column: "is_active", Type: "Boolean"},
			},
			Filters: []string{"code", "dimensionType", "companyId", "isActive"},
		},
	}
}
