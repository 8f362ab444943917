package sql

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/dialect"
)

// Template is a parsed statement with :name placeholders.
//
// A placeholder is a colon followed by an identifier, where dots address
// bean properties (":p.firstName"). Colons inside quoted strings, quoted
// identifiers and comments, and "::" casts are left alone. Quotes are
// escaped by doubling them; on mysql a backslash also escapes the next
// character inside '...' and "..." (see ParseTemplateFor).
type Template struct {
	raw   string
	parts []string // len(parts) == len(names)+1
	names []string
}

// ParseTemplate parses raw with standard SQL quoting, where a backslash
// inside a string is an ordinary character.
func ParseTemplate(raw string) (*Template, error) {
	return parseTemplate(raw, false)
}

// ParseTemplateFor parses raw with the string escaping rules of dialect d.
func ParseTemplateFor(d, raw string) (*Template, error) {
	return parseTemplate(raw, dialect.Normalize(d) == dialect.MySQL)
}

func parseTemplate(raw string, backslash bool) (*Template, error) {
	t := &Template{raw: raw}
	var (
		b strings.Builder
		n = len(raw)
	)
	for i := 0; i < n; {
		c := raw[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := quoteEnd(raw, i, backslash && c != '`')
			if end < 0 {
				return nil, fmt.Errorf("dialect/sql: unterminated quote at offset %d in %q", i, raw)
			}
			// Doubled quotes are escapes and fall out of this loop as two
			// adjacent quoted runs.
			b.WriteString(raw[i:end])
			i = end
		case c == '-' && i+1 < n && raw[i+1] == '-':
			end := strings.IndexByte(raw[i:], '\n')
			if end < 0 {
				end = n - i
			}
			b.WriteString(raw[i : i+end])
			i += end
		case c == '/' && i+1 < n && raw[i+1] == '*':
			end := strings.Index(raw[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("dialect/sql: unterminated comment at offset %d in %q", i, raw)
			}
			b.WriteString(raw[i : i+end+4])
			i += end + 4
		case c == ':' && i+1 < n && raw[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == ':' && i+1 < n && isIdentStart(raw[i+1]):
			j := i + 1
			for j < n && (isIdentPart(raw[j]) || raw[j] == '.' && j+1 < n && isIdentStart(raw[j+1])) {
				j++
			}
			t.parts = append(t.parts, b.String())
			t.names = append(t.names, raw[i+1:j])
			b.Reset()
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	t.parts = append(t.parts, b.String())
	return t, nil
}

// quoteEnd returns the offset just past the quoted run opening at raw[i],
// or -1 if it is not closed.
func quoteEnd(raw string, i int, backslash bool) int {
	q := raw[i]
	for j := i + 1; j < len(raw); j++ {
		switch {
		case backslash && raw[j] == '\\':
			j++
		case raw[j] == q:
			return j + 1
		}
	}
	return -1
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// Raw returns the template text.
func (t *Template) Raw() string { return t.raw }

// Names returns the placeholder names in order of appearance. A name used
// twice appears twice.
func (t *Template) Names() []string { return t.names }

// Render returns the statement with positional placeholders for dialect d.
func (t *Template) Render(d string) string {
	var b strings.Builder
	b.Grow(len(t.raw))
	for i := range t.names {
		b.WriteString(t.parts[i])
		b.WriteString(dialect.Placeholder(d, i+1))
	}
	b.WriteString(t.parts[len(t.parts)-1])
	return b.String()
}

// Args returns the positional arguments for the placeholders, looked up in b.
func (t *Template) Args(b *stmthook.Binding) ([]any, error) {
	args := make([]any, len(t.names))
	for i, name := range t.names {
		v, ok := b.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: no binding for :%s", stmthook.ErrMissingParameter, name)
		}
		args[i] = v
	}
	return args, nil
}

type templateKey struct{ dialect, raw string }

// templateCache caches parsed templates by dialect and raw text.
type templateCache struct {
	cache *lru.Cache[templateKey, *Template]
}

func newTemplateCache(size int) (*templateCache, error) {
	c, err := lru.New[templateKey, *Template](size)
	if err != nil {
		return nil, err
	}
	return &templateCache{cache: c}, nil
}

func (c *templateCache) get(d, raw string) (*Template, error) {
	k := templateKey{dialect.Normalize(d), raw}
	if t, ok := c.cache.Get(k); ok {
		return t, nil
	}
	t, err := ParseTemplateFor(k.dialect, raw)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, t)
	return t, nil
}
