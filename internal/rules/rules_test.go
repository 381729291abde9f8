package rules

import "testing"

func TestLoadKnownClasses(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	for _, class := range []string{
		"SelectStmt", "InsertStmt", "UpdateStmt", "DeleteStmt",
		"A_Const", "A_Expr", "BoolExpr", "RawStmt", "RangeVar",
	} {
		if _, ok := table.Lookup(class); !ok {
			t.Errorf("Lookup(%q) not found, want a rule", class)
		}
	}

	if _, ok := table.Lookup("NoSuchNode"); ok {
		t.Errorf("Lookup(%q) found, want not found", "NoSuchNode")
	}
}

func TestLoadTryNullPresence(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		class       string
		wantTryNull bool
	}{
		{"A_Const", true},
		{"A_Expr", true},
		{"SelectStmt", false},
		{"RawStmt", false},
	}
	for _, c := range cases {
		rule, ok := table.Lookup(c.class)
		if !ok {
			t.Fatalf("Lookup(%q) not found", c.class)
		}
		if rule.TryNull != c.wantTryNull {
			t.Errorf("%s.TryNull = %v, want %v", c.class, rule.TryNull, c.wantTryNull)
		}
	}
}

func TestLoadFieldLists(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	sel, ok := table.Lookup("SelectStmt")
	if !ok {
		t.Fatal("SelectStmt rule not found")
	}
	wantDescend := []string{
		"limitCount", "sortClause", "targetList", "valuesLists",
		"fromClause", "whereClause", "groupClause", "withClause",
	}
	if !equalStrings(sel.Descend, wantDescend) {
		t.Errorf("SelectStmt.Descend = %v, want %v", sel.Descend, wantDescend)
	}
	wantReplace := []string{"larg", "rarg"}
	if !equalStrings(sel.Replace, wantReplace) {
		t.Errorf("SelectStmt.Replace = %v, want %v", sel.Replace, wantReplace)
	}

	insert, ok := table.Lookup("InsertStmt")
	if !ok {
		t.Fatal("InsertStmt rule not found")
	}
	if !equalStrings(insert.Remove, []string{"onConflictClause"}) {
		t.Errorf("InsertStmt.Remove = %v", insert.Remove)
	}
}

func TestLoadTestsParsedInPairs(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	rule, ok := table.Lookup("A_Expr")
	if !ok {
		t.Fatal("A_Expr rule not found")
	}
	if len(rule.Tests) != 1 {
		t.Fatalf("len(Tests) = %d, want 1", len(rule.Tests))
	}
	if rule.Tests[0].Input != "select 1+moo" || rule.Tests[0].Expected != "SELECT moo" {
		t.Errorf("Tests[0] = %+v", rule.Tests[0])
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
