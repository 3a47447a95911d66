package css

import (
	"fmt"
	"io"
	"strings"
)

// RuleKind identifies what a Rule node represents.
type RuleKind int

const (
	StyleRule      RuleKind = iota // selector { declarations }
	KeyframesRule                  // @keyframes name { keyframe blocks }
	KeyframeRule                   // single block inside @keyframes (from, to, 50%)
	GroupRule                      // @media, @supports and other at-rules holding nested rules
	DescriptorRule                 // at-rule with a declaration block (@font-face, @page)
	StatementRule                  // at-rule without a block (@import, @charset, @namespace)
)

// String returns a short name of the kind for logging.
func (k RuleKind) String() string {
	switch k {
	case StyleRule:
		return "style"
	case KeyframesRule:
		return "keyframes"
	case KeyframeRule:
		return "keyframe"
	case GroupRule:
		return "group"
	case DescriptorRule:
		return "descriptor"
	case StatementRule:
		return "statement"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Declaration is a single "property: value" pair of a rule.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// String returns declaration text without the trailing semicolon.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Rule is a node of the parsed rule tree. Which fields are meaningful
// depends on Kind:
//
//	StyleRule      Selector, Declarations
//	KeyframesRule  AtKeyword, Name, Rules (KeyframeRule children)
//	KeyframeRule   Selector (key text), Declarations
//	GroupRule      AtKeyword, Prelude, Rules (or Raw for blocks we do not understand)
//	DescriptorRule AtKeyword, Prelude, Declarations
//	StatementRule  AtKeyword, Prelude
type Rule struct {
	Kind         RuleKind
	AtKeyword    string // "@media", "@keyframes", "@-webkit-keyframes", "@import"...
	Prelude      string // media query, supports condition, import target
	Name         string // keyframes name
	Selector     string // selector text for style rules, key text for keyframe rules
	Declarations []Declaration
	Rules        []*Rule
	Raw          string // unparsed block content of unknown at-rules
}

// HasSelector returns true for rules which carry selector text subject to
// class rewriting.
func (r *Rule) HasSelector() bool {
	return r.Kind == StyleRule && r.Selector != ""
}

// IsContainer returns true for rules which hold nested rules.
func (r *Rule) IsContainer() bool {
	return r.Kind == GroupRule || r.Kind == KeyframesRule
}

// Get returns the value of the last declaration for property.
func (r *Rule) Get(property string) (string, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == property {
			return r.Declarations[i].Value, true
		}
	}
	return "", false
}

// Set replaces value of every declaration for property or appends a new
// declaration when there is none.
func (r *Rule) Set(property, value string) {
	found := false
	for i := range r.Declarations {
		if r.Declarations[i].Property == property {
			r.Declarations[i].Value = value
			found = true
		}
	}
	if !found {
		r.Declarations = append(r.Declarations, Declaration{Property: property, Value: value})
	}
}

// CSSText returns the rule serialized on a single line, suitable for
// insertion into a stylesheet.
func (r *Rule) CSSText() string {
	var sb strings.Builder
	writeCompact(&sb, r)
	return sb.String()
}

func (r *Rule) header() string {
	switch r.Kind {
	case StyleRule, KeyframeRule:
		return r.Selector
	case KeyframesRule:
		return r.AtKeyword + " " + r.Name
	default:
		if r.Prelude == "" {
			return r.AtKeyword
		}
		return r.AtKeyword + " " + r.Prelude
	}
}

func writeCompact(sb *strings.Builder, r *Rule) {
	if r.Kind == StatementRule {
		sb.WriteString(r.header())
		sb.WriteByte(';')
		return
	}
	sb.WriteString(r.header())
	sb.WriteString(" {")
	for _, d := range r.Declarations {
		sb.WriteByte(' ')
		sb.WriteString(d.String())
		sb.WriteByte(';')
	}
	for _, child := range r.Rules {
		sb.WriteByte(' ')
		writeCompact(sb, child)
	}
	if r.Raw != "" {
		sb.WriteByte(' ')
		sb.WriteString(r.Raw)
	}
	sb.WriteString(" }")
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules    []*Rule  // All top-level rules in source order
	Warnings []string // Problems encountered while parsing
}

// RulesBySelector returns all top-level style rules with the given selector text.
func (s *Stylesheet) RulesBySelector(selector string) []*Rule {
	var matches []*Rule
	for _, r := range s.Rules {
		if r.Kind == StyleRule && r.Selector == selector {
			matches = append(matches, r)
		}
	}
	return matches
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, r := range s.Rules {
		n, err := writeRule(w, r, "")
		total += int64(n)
		if err != nil {
			return total, err
		}

		// Add blank line between rules (except after last)
		if i < len(s.Rules)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeRule writes a single rule to w, nested rules are indented.
func writeRule(w io.Writer, r *Rule, indent string) (int, error) {
	var total int
	if r.Kind == StatementRule {
		return fmt.Fprintf(w, "%s%s;\n", indent, r.header())
	}
	n, err := fmt.Fprintf(w, "%s%s {\n", indent, r.header())
	total += n
	if err != nil {
		return total, err
	}
	for _, d := range r.Declarations {
		n, err = fmt.Fprintf(w, "%s  %s;\n", indent, d.String())
		total += n
		if err != nil {
			return total, err
		}
	}
	for _, child := range r.Rules {
		n, err = writeRule(w, child, indent+"  ")
		total += n
		if err != nil {
			return total, err
		}
	}
	if r.Raw != "" {
		n, err = fmt.Fprintf(w, "%s  %s\n", indent, r.Raw)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += n
	return total, err
}

// RuleParser turns CSS text into a rule tree. Implementations return
// whatever partial tree they managed to build for malformed input.
type RuleParser interface {
	ParseRules(text string) ([]*Rule, error)
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
