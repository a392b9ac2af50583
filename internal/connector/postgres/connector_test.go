package postgres

import (
	"context"
	"reflect"
	"testing"

	"github.com/erpgraph/erpgraph/internal/connector"
)

func TestBuildSelect(t *testing.T) {
	c := &PostgresConnector{schemaName: "erp"}

	sql, args, err := c.BuildSelect(context.Background(), connector.SelectRequest{
		Table:   "sales_orders",
		Columns: []string{"id", "order_number"},
		Where:   []connector.Condition{{Column: "status", Value: "open"}},
		OrderBy: "id",
		Limit:   20,
		Offset:  40,
	})
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}

	want := `SELECT "id", "order_number" FROM "erp"."sales_orders" WHERE "status" = $1 ORDER BY "id" LIMIT $2 OFFSET $3`
	if sql != want {
		t.Errorf("sql:\n got %s\nwant %s", sql, want)
	}
	if !reflect.DeepEqual(args, []interface{}{"open", 20, 40}) {
		t.Errorf("args = %v", args)
	}
}
