// Package diagnostics - Collected compiler errors and warnings with source spans
// Design: Diagnostics accumulate, they never abort the pipeline
package diagnostics

import (
	"fmt"
	"strings"
)

// Span is a half-open byte interval [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Kind is the diagnostic taxonomy.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindName
	KindType
	KindCoercion
	KindExhaustiveness
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex"
	case KindParse:
		return "parse"
	case KindName:
		return "name"
	case KindType:
		return "type"
	case KindCoercion:
		return "coercion"
	case KindExhaustiveness:
		return "exhaustiveness"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Span     Span
}

// Bag collects diagnostics across pipeline stages.
type Bag struct {
	diags []Diagnostic
}

func (b *Bag) Error(kind Kind, span Span, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{
		Severity: SeverityError,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

func (b *Bag) Warning(kind Kind, span Span, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{
		Severity: SeverityWarning,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// Extend appends all diagnostics from another bag.
func (b *Bag) Extend(other *Bag) {
	b.diags = append(b.diags, other.diags...)
}

// All returns the collected diagnostics in report order.
func (b *Bag) All() []Diagnostic {
	return b.diags
}

func (b *Bag) Len() int {
	return len(b.diags)
}

// HasErrors reports whether any diagnostic has error severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// LineCol converts a byte offset into 1-based line and column numbers.
func LineCol(source string, offset int) (line, col int) {
	line, col = 1, 1
	for i, r := range source {
		if i >= offset {
			break
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Render formats a diagnostic with file, line, column, the offending source
// line, and a caret span beneath it.
func Render(file, source string, d Diagnostic) string {
	line, col := LineCol(source, d.Span.Start)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n", file, line, col, d.Severity, d.Message)

	lineStart := d.Span.Start
	for lineStart > 0 && lineStart <= len(source) && source[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := d.Span.Start
	for lineEnd < len(source) && source[lineEnd] != '\n' {
		lineEnd++
	}
	if lineStart > lineEnd {
		lineStart = lineEnd
	}
	text := source[lineStart:lineEnd]
	sb.WriteString(text)
	sb.WriteByte('\n')

	for i := lineStart; i < d.Span.Start; i++ {
		if source[i] == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	carets := d.Span.Len()
	if d.Span.End > lineEnd {
		carets = lineEnd - d.Span.Start
	}
	if carets < 1 {
		carets = 1
	}
	sb.WriteString(strings.Repeat("^", carets))
	return sb.String()
}
