package scoped

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"dicetable/classes"
	"dicetable/css"
)

var (
	ErrNoParser   = errors.New("no css parser provided")
	ErrNoRegistry = errors.New("no stylesheet registry provided")
)

// Engine turns stylesheets into scoped ones: every class and keyframes name
// gets a per-call unique suffix, rewritten rules go to the shared registry.
type Engine struct {
	parser   css.RuleParser
	registry Registry
	newID    func() string
	log      *zap.Logger
}

// Option customizes Engine.
type Option func(*Engine)

// WithSessionIDs replaces random session id generator, mostly for tests.
func WithSessionIDs(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New creates engine. Both parser and registry are required, there is no
// usable fallback for either of them.
func New(parser css.RuleParser, registry Registry, log *zap.Logger, options ...Option) (*Engine, error) {
	if parser == nil {
		return nil, ErrNoParser
	}
	if registry == nil {
		return nil, ErrNoRegistry
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		parser:   parser,
		registry: registry,
		newID:    NewSessionID,
		log:      log.Named("scoped"),
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Create parses text, mangles it in a fresh session, inserts resulting rules
// into the registry and returns the names. Calling it twice with the same
// text produces two independent sets of names and rules.
//
// Insertion goes on after a failed insert. Rules which made it into the
// registry stay there, so names are returned together with the combined
// insert error and remain valid for those rules. A parse error returns no
// names.
func (e *Engine) Create(text string) (*Names, error) {
	rules, err := e.parser.ParseRules(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse stylesheet: %w", err)
	}

	s := NewSession(e.newID(), e.log)
	for _, top := range rules {
		s.Rewrite(Walk(top))
		ruleText := top.CSSText()
		if er := e.registry.Insert(ruleText); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to insert rule '%s': %w", ruleText, er))
		}
	}
	if err != nil {
		e.log.Warn("Scoped stylesheet is incomplete", zap.String("session", s.ID), zap.Error(err))
		return newNames(s), err
	}

	e.log.Debug("Created scoped stylesheet",
		zap.String("session", s.ID),
		zap.Int("rules", len(rules)),
		zap.Strings("classes", s.Classes.Names()),
		zap.Strings("keyframes", s.Keyframes.Names()))
	return newNames(s), nil
}

// Createf is Create over Raw(parts, values...).
func (e *Engine) Createf(parts []string, values ...any) (*Names, error) {
	return e.Create(Raw(parts, values...))
}

// Raw interleaves literal parts with values the way template literals are
// assembled: parts[0] values[0] parts[1] ... Values beyond len(parts)-1 are
// dropped.
func Raw(parts []string, values ...any) string {
	var sb strings.Builder
	for i, p := range parts {
		sb.WriteString(p)
		if i < len(values) && i < len(parts)-1 {
			fmt.Fprint(&sb, values[i])
		}
	}
	return sb.String()
}

// Names is the result of Create: original class names mapped to class lists
// holding mangled names.
type Names struct {
	Session string

	order     []string
	classes   map[string]classes.List
	keyframes *NameMap
}

func newNames(s *Session) *Names {
	n := &Names{
		Session:   s.ID,
		classes:   make(map[string]classes.List, s.Classes.Len()),
		keyframes: s.Keyframes,
	}
	for name, mangled := range s.Classes.All() {
		n.order = append(n.order, name)
		n.classes[name] = classes.New(mangled)
	}
	return n
}

// Lookup returns class list for the original class name.
func (n *Names) Lookup(name string) (classes.List, bool) {
	l, ok := n.classes[name]
	return l, ok
}

// Class returns class list for the original class name, unknown names
// produce empty list.
func (n *Names) Class(name string) classes.List {
	return n.classes[name]
}

// Classes returns original class names in the order they appear in the
// stylesheet.
func (n *Names) Classes() []string {
	return append([]string(nil), n.order...)
}

// Animation returns mangled name of keyframes declared in the stylesheet.
func (n *Names) Animation(name string) (string, bool) {
	return n.keyframes.Get(name)
}

// Animations returns original to mangled mapping of keyframes names.
func (n *Names) Animations() map[string]string {
	m := make(map[string]string, n.keyframes.Len())
	for k, v := range n.keyframes.All() {
		m[k] = v
	}
	return m
}

// Map returns plain original to mangled mapping of class names.
func (n *Names) Map() map[string]string {
	m := make(map[string]string, len(n.classes))
	for k, v := range n.classes {
		m[k] = v.String()
	}
	return m
}
