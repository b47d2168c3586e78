package diagnostics

import (
	"strings"
	"testing"
)

func TestLineCol(t *testing.T) {
	source := "let x = 1;\nlet y = 2;\r\nlet z = 3;"

	tests := []struct {
		name   string
		offset int
		line   int
		col    int
	}{
		{name: "start", offset: 0, line: 1, col: 1},
		{name: "mid first line", offset: 4, line: 1, col: 5},
		{name: "start of second line", offset: 11, line: 2, col: 1},
		{name: "after crlf", offset: 23, line: 3, col: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, col := LineCol(source, tt.offset)
			if line != tt.line || col != tt.col {
				t.Errorf("LineCol(%d) = %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.col)
			}
		})
	}
}

func TestRender(t *testing.T) {
	source := "fun main() -> Int {\n    foo\n}\n"
	start := strings.Index(source, "foo")
	d := Diagnostic{
		Severity: SeverityError,
		Kind:     KindName,
		Message:  "undefined identifier 'foo'",
		Span:     Span{Start: start, End: start + 3},
	}

	out := Render("main.rue", source, d)
	if !strings.Contains(out, "main.rue:2:5: error: undefined identifier 'foo'") {
		t.Errorf("header missing or wrong:\n%s", out)
	}
	if !strings.Contains(out, "    foo") {
		t.Errorf("source line missing:\n%s", out)
	}
	if !strings.Contains(out, "    ^^^") {
		t.Errorf("caret line missing:\n%s", out)
	}
}

func TestBag(t *testing.T) {
	var bag Bag
	if bag.HasErrors() {
		t.Error("fresh bag has errors")
	}

	bag.Warning(KindType, Span{Start: 0, End: 1}, "suspicious")
	if bag.HasErrors() {
		t.Error("warnings are not errors")
	}

	bag.Error(KindName, Span{Start: 2, End: 3}, "undefined '%s'", "x")
	if !bag.HasErrors() {
		t.Error("error not registered")
	}
	if bag.Len() != 2 {
		t.Errorf("len = %d, want 2", bag.Len())
	}
	if got := bag.All()[1].Message; got != "undefined 'x'" {
		t.Errorf("message = %q", got)
	}
}
