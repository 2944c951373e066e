package flowtree

import (
	"fmt"
	"strings"
)

// Matcher decides whether a node is selected.
type Matcher interface {
	Match(n *Node) bool
}

// MatchFunc adapts a predicate to a Matcher.
type MatchFunc func(*Node) bool

func (f MatchFunc) Match(n *Node) bool { return f(n) }

// Class matches elements carrying a class name.
func Class(name string) Matcher {
	return MatchFunc(func(n *Node) bool { return n.HasClass(name) })
}

// HasAttribute matches elements carrying an attribute.
func HasAttribute(key string) Matcher {
	return MatchFunc(func(n *Node) bool { return n.Kind == ElementNode && n.HasAttr(key) })
}

type attrTest struct {
	key, val string
	hasVal   bool
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrTest
}

func (c compound) Match(n *Node) bool {
	if n == nil || n.Kind != ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Tag != c.tag {
		return false
	}
	if c.id != "" {
		if v, _ := n.Attr("id"); v != c.id {
			return false
		}
	}
	for _, cl := range c.classes {
		if !n.HasClass(cl) {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := n.Attr(a.key)
		if !ok || (a.hasVal && v != a.val) {
			return false
		}
	}
	return true
}

// Selector is a compiled list of compound selectors, any of which may match.
type Selector struct {
	src   string
	parts []compound
}

func (s *Selector) Match(n *Node) bool {
	for _, p := range s.parts {
		if p.Match(n) {
			return true
		}
	}
	return false
}

func (s *Selector) String() string { return s.src }

// Compile parses a comma separated list of simple selectors such as
// "div.box", "#main", ".page[data-side=left]". Combinators are not supported.
func Compile(src string) (*Selector, error) {
	s := &Selector{src: src}
	for _, group := range strings.Split(src, ",") {
		group = strings.TrimSpace(group)
		if group == "" {
			return nil, fmt.Errorf("selector %q: empty group", src)
		}
		if strings.ContainsAny(group, " >+~") {
			return nil, fmt.Errorf("selector %q: combinators are not supported", src)
		}
		c, err := parseCompound(group)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", src, err)
		}
		s.parts = append(s.parts, c)
	}
	return s, nil
}

// MustCompile is Compile for selectors known at build time.
func MustCompile(src string) *Selector {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	name := func() string {
		start := i
		for i < len(s) && isNameByte(s[i]) {
			i++
		}
		return s[start:i]
	}
	c.tag = strings.ToLower(name())
	if c.tag == "" && i < len(s) && s[i] == '*' {
		c.tag = "*"
		i++
	}
	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			n := name()
			if n == "" {
				return c, fmt.Errorf("missing class name at %d", i)
			}
			c.classes = append(c.classes, n)
		case '#':
			i++
			n := name()
			if n == "" {
				return c, fmt.Errorf("missing id at %d", i)
			}
			c.id = n
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute test")
			}
			body := s[i+1 : i+end]
			i += end + 1
			key, val, hasVal := strings.Cut(body, "=")
			key = strings.TrimSpace(key)
			if key == "" {
				return c, fmt.Errorf("empty attribute name")
			}
			val = strings.Trim(strings.TrimSpace(val), `"'`)
			c.attrs = append(c.attrs, attrTest{key: key, val: val, hasVal: hasVal})
		default:
			return c, fmt.Errorf("unexpected %q at %d", s[i], i)
		}
	}
	if c.tag == "" && c.id == "" && len(c.classes) == 0 && len(c.attrs) == 0 {
		return c, fmt.Errorf("empty selector")
	}
	return c, nil
}

func isNameByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
