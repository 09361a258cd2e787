package parser_test

import (
	"testing"

	"github.com/thomasrohde/golox/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; invalid input produces diagnostics.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`print 1;`,
		`var a = 1; a = a + 2;`,
		`{ var a; { var b = a; } }`,
		`if (true) print 1; else print 2;`,
		`while (false) print 1;`,
		`for (var i = 0; i < 10; i = i + 1) print i;`,
		`for (;;) {}`,
		`fun f(a, b) { return a * b; } print f(1, 2);`,
		`class A { init(x) { this.x = x; } get() { return this.x; } }`,
		`class B < A { get() { return super.get() + 1; } }`,
		`print a.b.c = 1;`,
		// Error recovery
		`var = ;`,
		`print (1 + ;`,
		`class { }`,
		`fun (`,
		`a + b = c;`,
		`super`,
		`}}}{{{`,
		`return return return`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		prog, _ := parser.Parse(input, "fuzz.lox")
		if prog == nil {
			t.Fatalf("Parse returned nil program for %q", input)
		}
	})
}
