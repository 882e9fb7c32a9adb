package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/semrec/fact"
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema#"

// ParseError reports a malformed N-Triples line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("n-triples line %d: %s", e.Line, e.Msg)
}

// ParseNTriples reads N-Triples as written by the exporter. IRI objects come
// back as strings and literal objects as fact.Literal with their XSD datatype.
// Blank nodes are not supported; language tags are dropped.
func ParseNTriples(r io.Reader) ([]Triple, error) {
	var out []Triple
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := parseStatement(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Msg: err.Error()}
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read n-triples: %w", err)
	}
	return out, nil
}

func parseStatement(line string) (Triple, error) {
	var t Triple
	rest := line

	subject, rest, err := parseIRI(rest)
	if err != nil {
		return t, fmt.Errorf("subject: %w", err)
	}
	predicate, rest, err := parseIRI(strings.TrimLeft(rest, " \t"))
	if err != nil {
		return t, fmt.Errorf("predicate: %w", err)
	}

	rest = strings.TrimLeft(rest, " \t")
	var object any
	switch {
	case strings.HasPrefix(rest, "<"):
		object, rest, err = parseIRI(rest)
	case strings.HasPrefix(rest, "\""):
		object, rest, err = parseLiteral(rest)
	default:
		err = fmt.Errorf("unsupported term %q", truncate(rest))
	}
	if err != nil {
		return t, fmt.Errorf("object: %w", err)
	}

	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, ".") {
		return t, fmt.Errorf("missing terminating '.'")
	}
	rest = strings.TrimSpace(rest[1:])
	if rest != "" && !strings.HasPrefix(rest, "#") {
		return t, fmt.Errorf("trailing content %q", truncate(rest))
	}

	t.Subject = subject
	t.Predicate = predicate
	t.Object = object
	return t, nil
}

func parseIRI(s string) (string, string, error) {
	if !strings.HasPrefix(s, "<") {
		return "", s, fmt.Errorf("expected IRI, got %q", truncate(s))
	}
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return "", s, fmt.Errorf("unterminated IRI")
	}
	iri, err := unescape(s[1:end])
	if err != nil {
		return "", s, err
	}
	return iri, s[end+1:], nil
}

func parseLiteral(s string) (fact.Literal, string, error) {
	end := closingQuote(s)
	if end < 0 {
		return fact.Literal{}, s, fmt.Errorf("unterminated literal")
	}
	lexical, err := unescape(s[1:end])
	if err != nil {
		return fact.Literal{}, s, err
	}
	rest := s[end+1:]

	switch {
	case strings.HasPrefix(rest, "^^"):
		dt, after, err := parseIRI(rest[2:])
		if err != nil {
			return fact.Literal{}, s, fmt.Errorf("datatype: %w", err)
		}
		datatype, err := datatypeFor(dt)
		if err != nil {
			return fact.Literal{}, s, err
		}
		return fact.Literal{Lexical: lexical, Datatype: datatype}, after, nil
	case strings.HasPrefix(rest, "@"):
		i := 1
		for i < len(rest) && rest[i] != ' ' && rest[i] != '\t' && rest[i] != '.' {
			i++
		}
		return fact.String(lexical), rest[i:], nil
	default:
		return fact.String(lexical), rest, nil
	}
}

// closingQuote returns the index of the unescaped quote closing the literal
// that opens at s[0].
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func datatypeFor(iri string) (fact.Datatype, error) {
	name, ok := strings.CutPrefix(iri, xsdNamespace)
	if !ok {
		return "", fmt.Errorf("unsupported datatype <%s>", iri)
	}
	switch d := fact.Datatype(name); d {
	case "string":
		return fact.Plain, nil
	case fact.DateTime, fact.Date, fact.Duration, fact.Integer, fact.Decimal, fact.Boolean:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported datatype <%s>", iri)
	}
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape")
		}
		switch s[i] {
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\'', '\\':
			sb.WriteByte(s[i])
		case 'u', 'U':
			width := 4
			if s[i] == 'U' {
				width = 8
			}
			if i+width >= len(s) {
				return "", fmt.Errorf("short \\%c escape", s[i])
			}
			code, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", fmt.Errorf("invalid \\%c escape", s[i])
			}
			sb.WriteRune(rune(code))
			i += width
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return sb.String(), nil
}

func truncate(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}
