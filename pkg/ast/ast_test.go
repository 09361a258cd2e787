package ast_test

import (
	"testing"

	"github.com/thomasrohde/golox/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.NumberLiteral{Value: 42},
		&ast.StringLiteral{Value: "hello"},
		&ast.BoolLiteral{Value: true},
		&ast.NilLiteral{},
		&ast.VariableExpr{Name: "x"},
		&ast.CallExpr{},
		&ast.SuperExpr{Method: "m"},
		&ast.ClassStmt{Name: "A"},
		&ast.WhileStmt{},
	}

	expected := []string{
		"NumberLiteral", "StringLiteral", "BoolLiteral", "NilLiteral",
		"VariableExpr", "CallExpr", "SuperExpr", "ClassStmt", "WhileStmt",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}

func TestExprIdentityKeys(t *testing.T) {
	a := &ast.VariableExpr{Name: "x"}
	b := &ast.VariableExpr{Name: "x"}

	table := map[ast.Expr]int{a: 0, b: 2}
	if table[a] != 0 || table[b] != 2 {
		t.Errorf("structurally equal nodes must be distinct keys, got %v", table)
	}
}
