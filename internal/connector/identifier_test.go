package connector

import (
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"customers", "company_id", "_tmp", "Order2", strings.Repeat("a", 128)}
	for _, name := range valid {
		if err := ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "1abc", "name;drop", "a b", `x"y`, "select", "Table", strings.Repeat("a", 129)}
	for _, name := range invalid {
		if err := ValidateIdentifier(name); err == nil {
			t.Errorf("ValidateIdentifier(%q) = nil, want error", name)
		}
	}
}

func TestBuildSelectRejectsBadIdentifiers(t *testing.T) {
	d := &mockConnector{}
	reqs := []SelectRequest{
		{Table: "customers; DROP TABLE x", Columns: []string{"id"}},
		{Table: "customers", Columns: []string{"id", "name--"}},
		{Table: "customers", Columns: []string{"id"}, Where: []Condition{{Column: "1=1", Value: 1}}},
		{Table: "customers", Columns: []string{"id"}, OrderBy: "id desc"},
	}
	for _, req := range reqs {
		if _, _, err := BuildSelect(d, req); err == nil {
			t.Errorf("BuildSelect(%+v) = nil error, want rejection", req)
		}
	}
}

func TestSanitizeStringValue(t *testing.T) {
	got, err := SanitizeStringValue("C0\x0001", 0)
	if err != nil || got != "C001" {
		t.Errorf("got %q, %v; want C001, nil", got, err)
	}
	if _, err := SanitizeStringValue("toolong", 3); err == nil {
		t.Error("expected length error")
	}
}
