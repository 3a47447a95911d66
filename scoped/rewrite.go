package scoped

import (
	"iter"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"dicetable/css"
)

// NameMap maps original names to mangled ones keeping first-seen order.
type NameMap struct {
	order   []string
	mangled map[string]string
}

func newNameMap() *NameMap {
	return &NameMap{mangled: make(map[string]string)}
}

// Get returns mangled form of name.
func (m *NameMap) Get(name string) (string, bool) {
	v, ok := m.mangled[name]
	return v, ok
}

// Names returns original names in the order they were first seen.
func (m *NameMap) Names() []string {
	return append([]string(nil), m.order...)
}

// Len returns number of mapped names.
func (m *NameMap) Len() int {
	return len(m.order)
}

// All iterates over (original, mangled) pairs in first-seen order.
func (m *NameMap) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, name := range m.order {
			if !yield(name, m.mangled[name]) {
				return
			}
		}
	}
}

// record stores the mapping unless name was seen already and returns the
// mangled form which is in effect.
func (m *NameMap) record(name, mangled string) string {
	if v, ok := m.mangled[name]; ok {
		return v
	}
	m.order = append(m.order, name)
	m.mangled[name] = mangled
	return mangled
}

// Session is a single mangling run over one stylesheet. Every name it mints
// carries the same suffix.
type Session struct {
	ID        string
	Classes   *NameMap
	Keyframes *NameMap

	log *zap.Logger
}

// NewSession creates session which mangles names with id.
func NewSession(id string, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		ID:        id,
		Classes:   newNameMap(),
		Keyframes: newNameMap(),
		log:       log,
	}
}

// Rewrite mangles every rule of the sequence in place and returns
// accumulated class map.
func (s *Session) Rewrite(rules iter.Seq[*css.Rule]) *NameMap {
	for r := range rules {
		s.rewriteRule(r)
	}
	return s.Classes
}

func (s *Session) rewriteRule(r *css.Rule) {
	if r.Kind == css.KeyframesRule && r.Name != "" {
		mangled := Mangle(r.Name, s.ID)
		if mangled != r.Name {
			s.Keyframes.record(r.Name, mangled)
		}
		r.Name = mangled
	}

	for i := range r.Declarations {
		d := &r.Declarations[i]
		switch d.Property {
		case "animation-name", "-webkit-animation-name":
			d.Value = s.rewriteAnimationName(d.Value)
		case "animation", "-webkit-animation":
			d.Value = s.rewriteAnimation(d.Value)
		}
	}

	if r.HasSelector() {
		r.Selector = s.rewriteSelector(r.Selector)
	}
}

// rewriteAnimationName mangles every comma separated name of animation-name
// value.
func (s *Session) rewriteAnimationName(value string) string {
	names := strings.Split(value, ",")
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || isAnimationKeyword(n) {
			names[i] = n
			continue
		}
		names[i] = Mangle(n, s.ID)
	}
	return strings.Join(names, ",")
}

var commaSpace = regexp.MustCompile(`,\s+`)

// rewriteAnimation mangles keyframes references in animation shorthand.
// Durations, delays, iteration counts, functions and known keywords stay
// as is, every other token is taken for a keyframes name.
func (s *Session) rewriteAnimation(value string) string {
	parts := strings.Fields(commaSpace.ReplaceAllString(value, ","))
	for i, part := range parts {
		tokens := strings.Split(part, ",")
		for j, tok := range tokens {
			if isAnimationLiteral(tok) {
				continue
			}
			tokens[j] = Mangle(tok, s.ID)
		}
		parts[i] = strings.Join(tokens, ",")
	}
	return strings.Join(parts, " ")
}

// Values of animation shorthand which never name keyframes.
var animationKeywords = map[string]bool{
	// iteration count, fill modes, play states, directions
	"infinite":          true,
	"none":              true,
	"forwards":          true,
	"backwards":         true,
	"both":              true,
	"paused":            true,
	"running":           true,
	"normal":            true,
	"reverse":           true,
	"alternate":         true,
	"alternate-normal":  true,
	"alternate-reverse": true,
	// timing functions
	"linear":      true,
	"ease":        true,
	"ease-in":     true,
	"ease-out":    true,
	"ease-in-out": true,
	"step-start":  true,
	"step-end":    true,
	// css-wide
	"initial": true,
	"inherit": true,
	"unset":   true,
	"revert":  true,
}

func isAnimationKeyword(tok string) bool {
	return animationKeywords[strings.ToLower(tok)]
}

// isAnimationLiteral returns true for shorthand tokens which are not
// keyframes references.
func isAnimationLiteral(tok string) bool {
	if tok == "" || isAnimationKeyword(tok) {
		return true
	}
	// pieces of functional notation: cubic-bezier(0.1, steps(4, end)
	if strings.ContainsAny(tok, "()") {
		return true
	}
	c := tok[0]
	if (c == '-' || c == '+') && len(tok) > 1 {
		c = tok[1]
	}
	// time values and iteration counts
	return c == '.' || (c >= '0' && c <= '9')
}

// rewriteSelector replaces every class token of the selector with its
// mangled form, recording the mapping on first sight. Attribute selectors
// and quoted strings are left alone.
func (s *Session) rewriteSelector(selector string) string {
	var (
		sb      strings.Builder
		bracket int
		quote   byte
	)
	sb.Grow(len(selector) + 16)

	for i := 0; i < len(selector); i++ {
		c := selector[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(selector) {
				sb.WriteByte(c)
				i++
				c = selector[i]
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			bracket++
		case c == ']' && bracket > 0:
			bracket--
		case c == '.' && bracket == 0:
			end := i + 1
			for end < len(selector) && !isClassTerminator(selector[end]) {
				if selector[end] == '\\' && end+1 < len(selector) {
					end++
				}
				end++
			}
			if end == i+1 {
				break
			}
			name := selector[i+1 : end]
			mangled := s.Classes.record(name, Mangle(name, s.ID))
			sb.WriteByte('.')
			sb.WriteString(mangled)
			i = end - 1
			continue
		}
		sb.WriteByte(c)
	}
	out := sb.String()
	if out != selector {
		s.log.Debug("Rewrote selector", zap.String("from", selector), zap.String("to", out))
	}
	return out
}

// isClassTerminator reports characters which end a class name token.
func isClassTerminator(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '.', '[', ':', '>', ',', '+', '~', '(', ')', '#', '*':
		return true
	}
	return false
}
