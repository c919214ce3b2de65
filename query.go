package epub3

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Namespace URIs used by EPUB package documents. Prefixes in query paths,
// attribute names and Metadata.Add tags resolve against this table first and
// against the document's own xmlns declarations second.
var namespaces = map[string]string{
	"xml":         "http://www.w3.org/XML/1998/namespace",
	"epub":        "http://www.idpf.org/2007/ops",
	"opf":         "http://www.idpf.org/2007/opf",
	"dc":          "http://purl.org/dc/elements/1.1/",
	"dcterms":     "http://purl.org/dc/terms/",
	"daisy":       "http://www.daisy.org/z3986/2005/ncx/",
	"containerns": "urn:oasis:names:tc:opendocument:xmlns:container",
	"xhtml":       "http://www.w3.org/1999/xhtml",
}

// splitQName splits "dc:title" into ("dc", "title"); a bare name has an
// empty prefix.
func splitQName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// namespaceURI resolves the namespace of el from the xmlns declarations in
// scope, walking toward the document root.
func namespaceURI(el *etree.Element) string {
	prefix := el.Space
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	if prefix != "" {
		return namespaces[prefix]
	}
	return ""
}

// prefixURI resolves a query prefix: the standard EPUB table wins, then any
// declaration in scope at el.
func prefixURI(prefix string, el *etree.Element) string {
	if uri, ok := namespaces[prefix]; ok {
		return uri
	}
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// matchName reports whether el matches a step name. A bare name matches by
// local name in any namespace; "*" matches every element; a prefixed name
// must match both the resolved namespace URI and the local name.
func matchName(el *etree.Element, name string) bool {
	if name == "*" {
		return true
	}
	prefix, local := splitQName(name)
	if el.Tag != local {
		return false
	}
	if prefix == "" {
		return true
	}
	uri := prefixURI(prefix, el)
	if uri == "" {
		// Unknown prefix: fall back to literal prefix comparison.
		return el.Space == prefix
	}
	return namespaceURI(el) == uri
}

// attrLookup returns the value of the named attribute. A prefixed name is
// matched by resolved namespace when the literal key is absent.
func attrLookup(el *etree.Element, name string) (string, bool) {
	prefix, local := splitQName(name)
	for _, a := range el.Attr {
		if a.Space == prefix && a.Key == local {
			return a.Value, true
		}
	}
	if prefix == "" {
		return "", false
	}
	uri := prefixURI(prefix, el)
	if uri == "" {
		return "", false
	}
	for _, a := range el.Attr {
		if a.Space == "" || a.Key != local {
			continue
		}
		if prefixURI(a.Space, el) == uri {
			return a.Value, true
		}
	}
	return "", false
}

// A pathStep is one "/"-separated component of an element path: a name,
// optional attribute predicates and an optional positional index.
type pathStep struct {
	name       string
	descendant bool // preceded by "//"
	preds      []pathPred
	index      int // one-based, negative from the end; valid when hasIndex
	hasIndex   bool
}

type pathPred struct {
	attr     string
	value    string
	hasValue bool // [@attr] vs [@attr="value"]
}

// parsePath parses the restricted element-path language: steps separated by
// "/" (or "//" for descendants), each a tag name (optionally prefixed, "*"
// wildcard) followed by any number of [@attr], [@attr="value"] or [n]
// predicates. Positions are one-based within each parent's matches, as in
// ElementPath ("dc:title[1]" is the first title); a negative position is an
// extension counting from the end ("[-1]" is the last). A leading "./" is
// ignored.
func parsePath(path string) ([]pathStep, error) {
	path = strings.TrimPrefix(path, "./")
	if path == "" || path == "." {
		return nil, nil
	}
	var steps []pathStep
	descendant := false
	for len(path) > 0 {
		if strings.HasPrefix(path, "//") {
			descendant = true
			path = path[2:]
			continue
		}
		if strings.HasPrefix(path, "/") {
			path = path[1:]
			continue
		}
		raw, rest, err := cutStep(path)
		if err != nil {
			return nil, err
		}
		step, err := parseStep(raw)
		if err != nil {
			return nil, err
		}
		step.descendant = descendant
		descendant = false
		steps = append(steps, step)
		path = rest
	}
	return steps, nil
}

// cutStep cuts the leading step off path, respecting quotes inside
// predicates.
func cutStep(path string) (step, rest string, err error) {
	depth := 0
	var quote byte
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth < 0 {
				return "", "", fmt.Errorf("epub3: unbalanced ']' in path %q", path)
			}
		case c == '/' && depth == 0:
			return path[:i], path[i:], nil
		}
	}
	if depth != 0 || quote != 0 {
		return "", "", fmt.Errorf("epub3: unterminated predicate in path %q", path)
	}
	return path, "", nil
}

func parseStep(raw string) (pathStep, error) {
	var step pathStep
	i := strings.IndexByte(raw, '[')
	if i < 0 {
		step.name = raw
	} else {
		step.name = raw[:i]
		raw = raw[i:]
		for len(raw) > 0 {
			if raw[0] != '[' {
				return step, fmt.Errorf("epub3: malformed predicate %q", raw)
			}
			end := matchingBracket(raw)
			if end < 0 {
				return step, fmt.Errorf("epub3: unterminated predicate %q", raw)
			}
			if err := parsePred(&step, raw[1:end]); err != nil {
				return step, err
			}
			raw = raw[end+1:]
		}
	}
	if step.name == "" {
		return step, fmt.Errorf("epub3: empty step name")
	}
	return step, nil
}

func matchingBracket(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

func parsePred(step *pathStep, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Errorf("epub3: empty predicate")
	}
	if body[0] != '@' {
		n, err := strconv.Atoi(body)
		if err != nil {
			return fmt.Errorf("epub3: unsupported predicate [%s]", body)
		}
		if n == 0 {
			return fmt.Errorf("epub3: positions are one-based, [0] matches nothing")
		}
		step.index = n
		step.hasIndex = true
		return nil
	}
	body = body[1:]
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		step.preds = append(step.preds, pathPred{attr: strings.TrimSpace(body)})
		return nil
	}
	attr := strings.TrimSpace(body[:eq])
	val := strings.TrimSpace(body[eq+1:])
	if len(val) < 2 || (val[0] != '\'' && val[0] != '"') || val[len(val)-1] != val[0] {
		return fmt.Errorf("epub3: unquoted predicate value in [@%s]", body)
	}
	step.preds = append(step.preds, pathPred{attr: attr, value: val[1 : len(val)-1], hasValue: true})
	return nil
}

func (s *pathStep) matches(el *etree.Element) bool {
	if !matchName(el, s.name) {
		return false
	}
	for _, p := range s.preds {
		v, ok := attrLookup(el, p.attr)
		if !ok {
			return false
		}
		if p.hasValue && v != p.value {
			return false
		}
	}
	return true
}

// findAll evaluates a parsed path against root and returns all matching
// elements in document order. The result is a snapshot: later tree mutation
// does not affect it.
func findAll(root *etree.Element, steps []pathStep) []*etree.Element {
	current := []*etree.Element{root}
	for i := range steps {
		step := &steps[i]
		var next []*etree.Element
		for _, el := range current {
			var pool []*etree.Element
			if step.descendant {
				pool = descendants(el)
			} else {
				pool = el.ChildElements()
			}
			var matched []*etree.Element
			for _, c := range pool {
				if step.matches(c) {
					matched = append(matched, c)
				}
			}
			// A position selects within this parent's matches, one-based;
			// a negative position counts from that parent's last match.
			if step.hasIndex {
				n := step.index
				if n > 0 {
					n--
				} else {
					n += len(matched)
				}
				if n < 0 || n >= len(matched) {
					continue
				}
				matched = matched[n : n+1]
			}
			next = append(next, matched...)
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}

func descendants(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			out = append(out, c)
			walk(c)
		}
	}
	walk(el)
	return out
}
