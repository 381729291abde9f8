package ast

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// classOf reports the pg_query_go class name carried by a wrapped node's
// oneof case, along with its concrete payload (e.g. *pg_query.SelectStmt).
// It returns ("", nil) for a node whose variant this module doesn't know.
// Such a node is not reported: the enumerator yields its path without
// descending into it, and the reducer attempts nothing at it. Only a class
// listed here but missing from the rule table raises ErrUnknownClass.
//
// pg_query_go multiplexes every Postgres node kind through the Node oneof
// (Node_SelectStmt, Node_AExpr, ...); this switch is the one place that
// bridges that oneof to the class-name strings the rule table is keyed by,
// generalizing the inline "node.Node.(*pg_query.Node_SelectStmt)" switches
// scattered through the teacher's internal/analyzer package into a single
// lookup table.
func classOf(n *pg_query.Node) (string, any) {
	if n == nil {
		return "", nil
	}
	switch x := n.Node.(type) {
	case *pg_query.Node_AConst:
		return "A_Const", x.AConst
	case *pg_query.Node_AExpr:
		return "A_Expr", x.AExpr
	case *pg_query.Node_AlterDatabaseSetStmt:
		return "AlterDatabaseSetStmt", x.AlterDatabaseSetStmt
	case *pg_query.Node_AlterRoleSetStmt:
		return "AlterRoleSetStmt", x.AlterRoleSetStmt
	case *pg_query.Node_BoolExpr:
		return "BoolExpr", x.BoolExpr
	case *pg_query.Node_BooleanTest:
		return "BooleanTest", x.BooleanTest
	case *pg_query.Node_CaseExpr:
		return "CaseExpr", x.CaseExpr
	case *pg_query.Node_CaseWhen:
		return "CaseWhen", x.CaseWhen
	case *pg_query.Node_CoalesceExpr:
		return "CoalesceExpr", x.CoalesceExpr
	case *pg_query.Node_ColumnRef:
		return "ColumnRef", x.ColumnRef
	case *pg_query.Node_CommonTableExpr:
		return "CommonTableExpr", x.CommonTableExpr
	case *pg_query.Node_CreateStmt:
		return "CreateStmt", x.CreateStmt
	case *pg_query.Node_CreateTableAsStmt:
		return "CreateTableAsStmt", x.CreateTableAsStmt
	case *pg_query.Node_DeleteStmt:
		return "DeleteStmt", x.DeleteStmt
	case *pg_query.Node_DropStmt:
		return "DropStmt", x.DropStmt
	case *pg_query.Node_FuncCall:
		return "FuncCall", x.FuncCall
	case *pg_query.Node_InsertStmt:
		return "InsertStmt", x.InsertStmt
	case *pg_query.Node_JoinExpr:
		return "JoinExpr", x.JoinExpr
	case *pg_query.Node_List:
		return "List", x.List
	case *pg_query.Node_NullTest:
		return "NullTest", x.NullTest
	case *pg_query.Node_OnConflictClause:
		return "OnConflictClause", x.OnConflictClause
	case *pg_query.Node_RangeFunction:
		return "RangeFunction", x.RangeFunction
	case *pg_query.Node_RangeSubselect:
		return "RangeSubselect", x.RangeSubselect
	case *pg_query.Node_RangeTableSample:
		return "RangeTableSample", x.RangeTableSample
	case *pg_query.Node_RangeVar:
		return "RangeVar", x.RangeVar
	case *pg_query.Node_RawStmt:
		return "RawStmt", x.RawStmt
	case *pg_query.Node_ResTarget:
		return "ResTarget", x.ResTarget
	case *pg_query.Node_SelectStmt:
		return "SelectStmt", x.SelectStmt
	case *pg_query.Node_SortBy:
		return "SortBy", x.SortBy
	case *pg_query.Node_SubLink:
		return "SubLink", x.SubLink
	case *pg_query.Node_TypeCast:
		return "TypeCast", x.TypeCast
	case *pg_query.Node_UpdateStmt:
		return "UpdateStmt", x.UpdateStmt
	case *pg_query.Node_VariableSetStmt:
		return "VariableSetStmt", x.VariableSetStmt
	case *pg_query.Node_WindowDef:
		return "WindowDef", x.WindowDef
	case *pg_query.Node_WithClause:
		return "WithClause", x.WithClause
	default:
		return "", nil
	}
}

// wrap is the inverse of classOf: it builds a *pg_query.Node carrying
// concrete in the oneof case named by class. Only classes that can appear
// as a *pg_query.SelectStmt/etc. direct pointer needing promotion into a
// generic Node-typed slot need an entry here. SelectStmt (SelectStmt.Larg/
// Rarg, used by the "replace" union strategy) is presently the only such
// case this module exercises; the remaining cases are kept for robustness
// if the rule table ever adds a "replace"/"pullup" target whose field isn't
// already generic.
func wrap(class string, concrete any) (*pg_query.Node, error) {
	switch class {
	case "A_Const":
		return &pg_query.Node{Node: &pg_query.Node_AConst{AConst: concrete.(*pg_query.A_Const)}}, nil
	case "A_Expr":
		return &pg_query.Node{Node: &pg_query.Node_AExpr{AExpr: concrete.(*pg_query.A_Expr)}}, nil
	case "BoolExpr":
		return &pg_query.Node{Node: &pg_query.Node_BoolExpr{BoolExpr: concrete.(*pg_query.BoolExpr)}}, nil
	case "BooleanTest":
		return &pg_query.Node{Node: &pg_query.Node_BooleanTest{BooleanTest: concrete.(*pg_query.BooleanTest)}}, nil
	case "CaseExpr":
		return &pg_query.Node{Node: &pg_query.Node_CaseExpr{CaseExpr: concrete.(*pg_query.CaseExpr)}}, nil
	case "CaseWhen":
		return &pg_query.Node{Node: &pg_query.Node_CaseWhen{CaseWhen: concrete.(*pg_query.CaseWhen)}}, nil
	case "CoalesceExpr":
		return &pg_query.Node{Node: &pg_query.Node_CoalesceExpr{CoalesceExpr: concrete.(*pg_query.CoalesceExpr)}}, nil
	case "ColumnRef":
		return &pg_query.Node{Node: &pg_query.Node_ColumnRef{ColumnRef: concrete.(*pg_query.ColumnRef)}}, nil
	case "CommonTableExpr":
		return &pg_query.Node{Node: &pg_query.Node_CommonTableExpr{CommonTableExpr: concrete.(*pg_query.CommonTableExpr)}}, nil
	case "FuncCall":
		return &pg_query.Node{Node: &pg_query.Node_FuncCall{FuncCall: concrete.(*pg_query.FuncCall)}}, nil
	case "JoinExpr":
		return &pg_query.Node{Node: &pg_query.Node_JoinExpr{JoinExpr: concrete.(*pg_query.JoinExpr)}}, nil
	case "List":
		return &pg_query.Node{Node: &pg_query.Node_List{List: concrete.(*pg_query.List)}}, nil
	case "NullTest":
		return &pg_query.Node{Node: &pg_query.Node_NullTest{NullTest: concrete.(*pg_query.NullTest)}}, nil
	case "RangeFunction":
		return &pg_query.Node{Node: &pg_query.Node_RangeFunction{RangeFunction: concrete.(*pg_query.RangeFunction)}}, nil
	case "RangeSubselect":
		return &pg_query.Node{Node: &pg_query.Node_RangeSubselect{RangeSubselect: concrete.(*pg_query.RangeSubselect)}}, nil
	case "RangeTableSample":
		return &pg_query.Node{Node: &pg_query.Node_RangeTableSample{RangeTableSample: concrete.(*pg_query.RangeTableSample)}}, nil
	case "RangeVar":
		return &pg_query.Node{Node: &pg_query.Node_RangeVar{RangeVar: concrete.(*pg_query.RangeVar)}}, nil
	case "RawStmt":
		return &pg_query.Node{Node: &pg_query.Node_RawStmt{RawStmt: concrete.(*pg_query.RawStmt)}}, nil
	case "ResTarget":
		return &pg_query.Node{Node: &pg_query.Node_ResTarget{ResTarget: concrete.(*pg_query.ResTarget)}}, nil
	case "SelectStmt":
		return &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: concrete.(*pg_query.SelectStmt)}}, nil
	case "SortBy":
		return &pg_query.Node{Node: &pg_query.Node_SortBy{SortBy: concrete.(*pg_query.SortBy)}}, nil
	case "SubLink":
		return &pg_query.Node{Node: &pg_query.Node_SubLink{SubLink: concrete.(*pg_query.SubLink)}}, nil
	case "TypeCast":
		return &pg_query.Node{Node: &pg_query.Node_TypeCast{TypeCast: concrete.(*pg_query.TypeCast)}}, nil
	default:
		return nil, fmt.Errorf("ast: don't know how to wrap class %q as a node", class)
	}
}

// Classify reports the node class name for value, which may be a
// *pg_query.Node (unwrapped via its oneof case) or an already-concrete
// node pointer reached through a direct-typed field (e.g.
// SelectStmt.WithClause, InsertStmt.OnConflictClause, FuncCall.Over).
// It reports ok=false for nil or an unrecognized node.
func Classify(value any) (class string, ok bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case *pg_query.Node:
		if v == nil {
			return "", false
		}
		name, concrete := classOf(v)
		return name, concrete != nil
	case []*pg_query.Node:
		return "", false // tuples have no class; callers check AsTuple first
	default:
		rt := reflect.TypeOf(v)
		if rt == nil {
			return "", false
		}
		if rt.Kind() == reflect.Ptr {
			if reflect.ValueOf(v).IsNil() {
				return "", false
			}
			rt = rt.Elem()
		}
		return rt.Name(), true
	}
}

// concreteOf returns the struct pointer reflect can address fields on,
// unwrapping a *pg_query.Node oneof if necessary.
func concreteOf(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("ast: nil node")
	case *pg_query.Node:
		if v == nil {
			return nil, fmt.Errorf("ast: nil node")
		}
		_, concrete := classOf(v)
		if concrete == nil {
			return nil, fmt.Errorf("ast: unrecognized node variant %T", v.Node)
		}
		return concrete, nil
	case []*pg_query.Node:
		return nil, fmt.Errorf("ast: cannot access a field on a tuple")
	default:
		return v, nil
	}
}

// WrapAsNode promotes a concrete node pointer into a *pg_query.Node, the
// type every generic expression/statement slot expects. Values that are
// already a *pg_query.Node (the common case — most node-shaped fields in
// pg_query_go are already generic) pass through unchanged.
func WrapAsNode(value any) (*pg_query.Node, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *pg_query.Node:
		return v, nil
	default:
		class, ok := Classify(v)
		if !ok {
			return nil, fmt.Errorf("ast: cannot wrap %T as a node", v)
		}
		return wrap(class, v)
	}
}

// goFieldName converts a rule-table field name (the libpg_query protobuf
// field spelling, e.g. "whereClause" or the snake_case "agg_order") to the
// exported Go struct field name protoc-gen-go actually generates
// ("WhereClause", "AggOrder") — each underscore-delimited segment gets its
// first letter capitalized, matching protoc-gen-go's own field-naming rule.
func goFieldName(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	capNext := true
	for _, r := range name {
		if r == '_' {
			capNext = true
			continue
		}
		if capNext {
			b.WriteRune(unicode.ToUpper(r))
			capNext = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// classTypes maps a rule-table class name to the concrete pg_query_go
// struct type backing it, independent of whether a given node actually
// appears wrapped in a *pg_query.Node (RawStmt.Stmt, generic expression
// slots) or as a direct-typed field (SelectStmt.WithClause,
// InsertStmt.OnConflictClause, FuncCall.Over). Used only by HasField to
// validate rule-table field names at load time.
var classTypes = map[string]reflect.Type{
	"A_Const":              reflect.TypeOf(pg_query.A_Const{}),
	"A_Expr":               reflect.TypeOf(pg_query.A_Expr{}),
	"AlterDatabaseSetStmt": reflect.TypeOf(pg_query.AlterDatabaseSetStmt{}),
	"AlterRoleSetStmt":     reflect.TypeOf(pg_query.AlterRoleSetStmt{}),
	"BoolExpr":             reflect.TypeOf(pg_query.BoolExpr{}),
	"BooleanTest":          reflect.TypeOf(pg_query.BooleanTest{}),
	"CaseExpr":             reflect.TypeOf(pg_query.CaseExpr{}),
	"CaseWhen":             reflect.TypeOf(pg_query.CaseWhen{}),
	"CoalesceExpr":         reflect.TypeOf(pg_query.CoalesceExpr{}),
	"ColumnRef":            reflect.TypeOf(pg_query.ColumnRef{}),
	"CommonTableExpr":      reflect.TypeOf(pg_query.CommonTableExpr{}),
	"CreateStmt":           reflect.TypeOf(pg_query.CreateStmt{}),
	"CreateTableAsStmt":    reflect.TypeOf(pg_query.CreateTableAsStmt{}),
	"DeleteStmt":           reflect.TypeOf(pg_query.DeleteStmt{}),
	"DropStmt":             reflect.TypeOf(pg_query.DropStmt{}),
	"FuncCall":             reflect.TypeOf(pg_query.FuncCall{}),
	"InsertStmt":           reflect.TypeOf(pg_query.InsertStmt{}),
	"JoinExpr":             reflect.TypeOf(pg_query.JoinExpr{}),
	"List":                 reflect.TypeOf(pg_query.List{}),
	"NullTest":             reflect.TypeOf(pg_query.NullTest{}),
	"OnConflictClause":     reflect.TypeOf(pg_query.OnConflictClause{}),
	"RangeFunction":        reflect.TypeOf(pg_query.RangeFunction{}),
	"RangeSubselect":       reflect.TypeOf(pg_query.RangeSubselect{}),
	"RangeTableSample":     reflect.TypeOf(pg_query.RangeTableSample{}),
	"RangeVar":             reflect.TypeOf(pg_query.RangeVar{}),
	"RawStmt":              reflect.TypeOf(pg_query.RawStmt{}),
	"ResTarget":            reflect.TypeOf(pg_query.ResTarget{}),
	"SelectStmt":           reflect.TypeOf(pg_query.SelectStmt{}),
	"SortBy":               reflect.TypeOf(pg_query.SortBy{}),
	"SubLink":              reflect.TypeOf(pg_query.SubLink{}),
	"TypeCast":             reflect.TypeOf(pg_query.TypeCast{}),
	"UpdateStmt":           reflect.TypeOf(pg_query.UpdateStmt{}),
	"VariableSetStmt":      reflect.TypeOf(pg_query.VariableSetStmt{}),
	"WindowDef":            reflect.TypeOf(pg_query.WindowDef{}),
	"WithClause":           reflect.TypeOf(pg_query.WithClause{}),
}

// HasField reports whether class has a field matching the rule-table
// spelling name (e.g. "whereClause", "agg_order"), used by rules.Load to
// validate the embedded rule table against the AST types it names.
func HasField(class, name string) bool {
	t, ok := classTypes[class]
	if !ok {
		return false
	}
	_, found := t.FieldByName(goFieldName(name))
	return found
}

// AsTuple reports whether value is addressable as an ordered tuple of
// nodes — either a raw []*pg_query.Node (the common case: TargetList,
// FromClause, Args, ...) or a *pg_query.Node wrapping a List, which
// pg_query_go uses for a nested repeated field (SelectStmt.ValuesLists is
// a list of lists; pglast flattens the inner level straight to a Python
// tuple, pg_query_go keeps it boxed in a List message). Callers above
// internal/ast never need to know which case they're in: rewrap lets them
// write back an edited slice in whatever shape value originally had.
func AsTuple(value any) (items []*pg_query.Node, rewrap func([]*pg_query.Node) any, ok bool) {
	switch v := value.(type) {
	case []*pg_query.Node:
		return v, func(items []*pg_query.Node) any { return items }, true
	case *pg_query.Node:
		if v == nil {
			return nil, nil, false
		}
		if l, isList := v.Node.(*pg_query.Node_List); isList {
			return l.List.Items, func(items []*pg_query.Node) any {
				return &pg_query.Node{Node: &pg_query.Node_List{List: &pg_query.List{Items: items}}}
			}, true
		}
		return nil, nil, false
	default:
		return nil, nil, false
	}
}

// GetField returns the named field of value, which may be a *pg_query.Node
// (unwrapped via classOf) or an already-concrete node pointer.
func GetField(value any, field string) (any, error) {
	concrete, err := concreteOf(value)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(concrete)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("ast: %T is not a field-addressable node", concrete)
	}
	fv := rv.Elem().FieldByName(goFieldName(field))
	if !fv.IsValid() {
		return nil, fmt.Errorf("ast: %T has no field %q", concrete, field)
	}
	return fv.Interface(), nil
}

// setField returns a shallow copy of value with its named field replaced by
// newValue, leaving the original untouched — the one place this package
// mutates, and it mutates only a freshly allocated clone.
func setField(value any, field string, newValue any) (any, error) {
	concrete, err := concreteOf(value)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(concrete)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("ast: %T is not a field-addressable node", concrete)
	}
	clone := reflect.New(rv.Elem().Type())
	clone.Elem().Set(rv.Elem())
	fv := clone.Elem().FieldByName(goFieldName(field))
	if !fv.IsValid() {
		return nil, fmt.Errorf("ast: %T has no field %q", concrete, field)
	}
	nv := reflect.ValueOf(newValue)
	if !nv.IsValid() {
		nv = reflect.Zero(fv.Type())
	}
	if nv.Type() != fv.Type() {
		if nv.Type().ConvertibleTo(fv.Type()) {
			nv = nv.Convert(fv.Type())
		} else {
			return nil, fmt.Errorf("ast: cannot set %T field %q to %T", concrete, field, newValue)
		}
	}
	fv.Set(nv)
	result := clone.Interface()

	// re-wrap if the caller handed us a *pg_query.Node rather than an
	// already-unwrapped concrete pointer, so the clone is addressable the
	// same way the original was.
	if _, wasNode := value.(*pg_query.Node); wasNode {
		return WrapAsNode(result)
	}
	return result, nil
}
