package formatter_test

import (
	"testing"

	"github.com/thomasrohde/golox/pkg/formatter"
	"github.com/thomasrohde/golox/pkg/parser"
)

func format(t *testing.T, src string) string {
	t.Helper()
	prog, diags := parser.Parse(src, "test.lox")
	if len(diags) > 0 {
		t.Fatalf("parse error in %q: %s", src, diags[0].Message)
	}
	return formatter.Format(prog)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", ""},
		{"print", "print   1+2 ;", "print 1 + 2;\n"},
		{"var", "var a;var b=(1+2)*3;", "var a;\nvar b = (1 + 2) * 3;\n"},
		{"logic and unary", "print !a and -b or c;", "print !a and -b or c;\n"},
		{"strings and numbers", `print "hi" + "x"; print 1.50;`, "print \"hi\" + \"x\";\nprint 1.5;\n"},
		{"calls and properties", "a.b(c, d).e = f;", "a.b(c, d).e = f;\n"},
		{"block", "{var a=1;{print a;}}", "{\n  var a = 1;\n  {\n    print a;\n  }\n}\n"},
		{"if else blocks", "if (a) { print 1; } else { print 2; }",
			"if (a) {\n  print 1;\n} else {\n  print 2;\n}\n"},
		{"if else statements", "if (a) print 1; else print 2;", "if (a) print 1;\nelse print 2;\n"},
		{"while", "while (i < 3) i = i + 1;", "while (i < 3) i = i + 1;\n"},
		{"function", "fun add(a,b){return a+b;}", "fun add(a, b) {\n  return a + b;\n}\n"},
		{"bare return", "fun f(){return;}", "fun f() {\n  return;\n}\n"},
		{"empty class", "class A{}", "class A {}\n"},
		{"class", "class B<A{init(x){this.x=x;} get(){return super.get();}}",
			"class B < A {\n  init(x) {\n    this.x = x;\n  }\n\n  get() {\n    return super.get();\n  }\n}\n"},
		{"for desugars", "for (var i = 0; i < 2; i = i + 1) print i;",
			"{\n  var i = 0;\n  while (i < 2) {\n    print i;\n    i = i + 1;\n  }\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := format(t, tt.src); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	src := `
class Counter < Base {
  init(n) { this.n = n; }
  inc() { this.n = this.n + 1; return this; }
}
fun make() { var c = Counter(0); if (c) return c.inc(); else return nil; }
for (;;) { print make().n; }
`
	once := format(t, src)
	twice := format(t, once)
	if once != twice {
		t.Errorf("not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestHasComments(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"print 1; // note", true},
		{"// header\nprint 1;", true},
		{`print "http://example.com";`, false},
		{"print \"a\nb // not a comment\";", false},
		{"print 4 / 2;", false},
	}
	for _, tt := range tests {
		if got := formatter.HasComments(tt.src); got != tt.want {
			t.Errorf("HasComments(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}
