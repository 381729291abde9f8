package ast

import (
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

func columnRef(name string) *pg_query.Node {
	return &pg_query.Node{Node: &pg_query.Node_ColumnRef{ColumnRef: &pg_query.ColumnRef{
		Fields: []*pg_query.Node{
			{Node: &pg_query.Node_String_{String_: &pg_query.String{Sval: name}}},
		},
	}}}
}

func resTarget(val *pg_query.Node) *pg_query.Node {
	return &pg_query.Node{Node: &pg_query.Node_ResTarget{ResTarget: &pg_query.ResTarget{Val: val}}}
}

func buildTree(targets ...*pg_query.Node) []*pg_query.Node {
	sel := &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: &pg_query.SelectStmt{
		TargetList: targets,
	}}}
	raw := &pg_query.Node{Node: &pg_query.Node_RawStmt{RawStmt: &pg_query.RawStmt{Stmt: sel}}}
	return []*pg_query.Node{raw}
}

func TestGetResolvesFieldsAndIndexes(t *testing.T) {
	tree := buildTree(resTarget(columnRef("foo")), resTarget(columnRef("bar")))

	got, err := Get(tree, Path{IndexStep(0)})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*pg_query.Node); !ok {
		t.Fatalf("Get(root[0]) = %T, want *pg_query.Node", got)
	}

	got, err = Get(tree, Path{IndexStep(0), FieldStep("stmt"), FieldStep("targetList"), IndexStep(1)})
	if err != nil {
		t.Fatal(err)
	}
	rt, ok := got.(*pg_query.Node)
	if !ok {
		t.Fatalf("got %T, want *pg_query.Node", got)
	}
	cr := rt.Node.(*pg_query.Node_ResTarget).ResTarget.Val.Node.(*pg_query.Node_ColumnRef).ColumnRef
	if cr.Fields[0].Node.(*pg_query.Node_String_).String_.Sval != "bar" {
		t.Errorf("got field %v, want bar", cr.Fields[0])
	}
}

func TestGetUnknownFieldErrors(t *testing.T) {
	tree := buildTree(resTarget(columnRef("foo")))
	_, err := Get(tree, Path{IndexStep(0), FieldStep("stmt"), FieldStep("noSuchField")})
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestSetReplacesOnlyTargetedSubtree(t *testing.T) {
	first := resTarget(columnRef("foo"))
	second := resTarget(columnRef("bar"))
	tree := buildTree(first, second)

	replacement := resTarget(columnRef("moo"))
	path := Path{IndexStep(0), FieldStep("stmt"), FieldStep("targetList"), IndexStep(0)}
	updated, err := Set(tree, path, replacement)
	if err != nil {
		t.Fatal(err)
	}

	newTree, ok := updated.([]*pg_query.Node)
	if !ok {
		t.Fatalf("Set returned %T, want []*pg_query.Node", updated)
	}

	if newTree[0] == tree[0] {
		t.Error("root element on the update path should have been cloned, not shared")
	}

	newTargets := newTree[0].Node.(*pg_query.Node_RawStmt).RawStmt.Stmt.Node.(*pg_query.Node_SelectStmt).SelectStmt.TargetList
	if newTargets[0] != replacement {
		t.Error("targetList[0] was not replaced")
	}
	if newTargets[1] != second {
		t.Error("targetList[1] should be shared, unchanged, with the original tree")
	}

	oldTargets := tree[0].Node.(*pg_query.Node_RawStmt).RawStmt.Stmt.Node.(*pg_query.Node_SelectStmt).SelectStmt.TargetList
	if oldTargets[0] != first {
		t.Error("Set must not mutate the original tree")
	}
}

func TestSetWholeElementToNil(t *testing.T) {
	tree := buildTree(resTarget(columnRef("foo")))
	path := Path{IndexStep(0), FieldStep("stmt"), FieldStep("targetList")}
	updated, err := Set(tree, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	newTree := updated.([]*pg_query.Node)
	sel := newTree[0].Node.(*pg_query.Node_RawStmt).RawStmt.Stmt.Node.(*pg_query.Node_SelectStmt).SelectStmt
	if sel.TargetList != nil {
		t.Errorf("TargetList = %v, want nil", sel.TargetList)
	}
}

func TestAsTupleHandlesListNodes(t *testing.T) {
	row := &pg_query.Node{Node: &pg_query.Node_List{List: &pg_query.List{
		Items: []*pg_query.Node{columnRef("a"), columnRef("b")},
	}}}

	items, rewrap, ok := AsTuple(row)
	if !ok {
		t.Fatal("AsTuple should treat a List node as a tuple")
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	rewrapped := rewrap(items[:1])
	n, ok := rewrapped.(*pg_query.Node)
	if !ok {
		t.Fatalf("rewrap returned %T, want *pg_query.Node", rewrapped)
	}
	if len(n.Node.(*pg_query.Node_List).List.Items) != 1 {
		t.Error("rewrap did not carry the truncated item list")
	}
}

func TestClassify(t *testing.T) {
	n := columnRef("foo")
	class, ok := Classify(n)
	if !ok || class != "ColumnRef" {
		t.Errorf("Classify(ColumnRef node) = (%q, %v), want (\"ColumnRef\", true)", class, ok)
	}

	if _, ok := Classify(nil); ok {
		t.Error("Classify(nil) should report not ok")
	}
}
