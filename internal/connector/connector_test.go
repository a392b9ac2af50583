package connector

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildSelect(t *testing.T) {
	d := &mockConnector{}

	tests := []struct {
		name     string
		req      SelectRequest
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "columns only",
			req:     SelectRequest{Table: "customers", Columns: []string{"id", "name"}},
			wantSQL: `SELECT "id", "name" FROM "customers"`,
		},
		{
			name: "filters order and page",
			req: SelectRequest{
				Table:   "customers",
				Columns: []string{"id"},
				Where:   []Condition{{Column: "company_id", Value: "10"}, {Column: "is_active", Value: true}},
				OrderBy: "id",
				Limit:   50,
				Offset:  100,
			},
			wantSQL:  `SELECT "id" FROM "customers" WHERE "company_id" = ? AND "is_active" = ? ORDER BY "id" LIMIT ? OFFSET ?`,
			wantArgs: []interface{}{"10", true, 50, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := BuildSelect(d, tt.req)
			if err != nil {
				t.Fatalf("BuildSelect: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql:\n got %s\nwant %s", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildSelectValidation(t *testing.T) {
	d := &mockConnector{}
	if _, _, err := BuildSelect(d, SelectRequest{Columns: []string{"id"}}); err == nil {
		t.Error("expected error without table")
	}
	if _, _, err := BuildSelect(d, SelectRequest{Table: "customers"}); err == nil {
		t.Error("expected error without columns")
	}
}

type numberedDialect struct{ mockConnector }

func (numberedDialect) ParameterPlaceholder(i int) string {
	return "@p" + string(rune('0'+i))
}

func TestOffsetFetchOrder(t *testing.T) {
	clause, args := OffsetFetch(&numberedDialect{}, 25, 50, 2)
	if clause != " OFFSET @p2 ROWS FETCH NEXT @p3 ROWS ONLY" {
		t.Errorf("clause = %q", clause)
	}
	if !reflect.DeepEqual(args, []interface{}{50, 25}) {
		t.Errorf("args = %v, want [50 25] (offset first)", args)
	}
}

func TestSanitizeDSN(t *testing.T) {
	tests := []struct {
		driver, in, want string
	}{
		{"postgres", "postgres://erp:p@ss#1@db:5432/erp?sslmode=disable", "postgres://erp:p%40ss%231@db:5432/erp?sslmode=disable"},
		{"postgres", "host=db user=erp", "host=db user=erp"},
		{"mssql", "sqlserver://sa:a@b@db:1433?database=erp", "sqlserver://sa:a%40b@db:1433?database=erp"},
		{"oracle", "oracle://erp:x@y@db:1521/ORCL", "oracle://erp:x%40y@db:1521/ORCL"},
		{"sqlite", "/var/lib/erp.db", "/var/lib/erp.db"},
	}
	for _, tt := range tests {
		if got := SanitizeDSN(tt.driver, tt.in); got != tt.want {
			t.Errorf("SanitizeDSN(%q, %q) = %q, want %q", tt.driver, tt.in, got, tt.want)
		}
	}
}

func TestSanitizeMySQLDSN(t *testing.T) {
	for _, in := range []string{
		"erp:secret@db:3306/erp",
		"erp:secret@(db:3306)/erp",
		"erp:secret@tcp(db:3306)/erp",
	} {
		got := SanitizeDSN("mysql", in)
		if !strings.HasPrefix(got, "erp:secret@tcp(db:3306)/erp") {
			t.Errorf("SanitizeDSN(mysql, %q) = %q", in, got)
		}
	}
}
