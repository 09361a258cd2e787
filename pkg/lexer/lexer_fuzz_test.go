package lexer

import (
	"testing"

	"github.com/thomasrohde/golox/pkg/diagnostics"
)

// FuzzTokenize checks that the scanner never panics and always terminates
// its token stream with EOF.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		``,
		`var x = 1;`,
		`print "hello";`,
		`"unterminated`,
		`"multi
line"`,
		`// only a comment`,
		`1.2.3 .5 5.`,
		`@#$^&`,
		"\x00",
		`class A < B { init() { this.x = super.y; } }`,
		`fun f(a, b) { return a != b and !a or b <= 3; }`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		var c diagnostics.Collector
		tokens := Tokenize(input, "fuzz.lox", &c)
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokEOF {
			t.Fatalf("token stream for %q does not end in EOF", input)
		}
	})
}
