package mssql

import (
	"context"
	"reflect"
	"testing"

	"github.com/erpgraph/erpgraph/internal/connector"
)

func TestBuildSelect(t *testing.T) {
	c := &MSSQLConnector{schemaName: "dbo"}

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

	want := `SELECT [id], [order_number] FROM [dbo].[sales_orders] WHERE [status] = @p1 ORDER BY [id] OFFSET @p2 ROWS FETCH NEXT @p3 ROWS ONLY`
	if sql != want {
		t.Errorf("sql:\n got %s\nwant %s", sql, want)
	}
	if !reflect.DeepEqual(args, []interface{}{"open", 40, 20}) {
		t.Errorf("args = %v", args)
	}
}

func TestBuildSelectRequiresOrderForPaging(t *testing.T) {
	c := &MSSQLConnector{schemaName: "dbo"}
	_, _, err := c.BuildSelect(context.Background(), connector.SelectRequest{
		Table: "customers", Columns: []string{"id"}, Limit: 10,
	})
	if err == nil {
		t.Error("expected error paging without ORDER BY")
	}
}
