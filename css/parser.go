package css

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into rule trees using tdewolff grammar.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

var _ RuleParser = (*Parser)(nil)

// ParseRules implements RuleParser. Grammar errors never fail the call,
// whatever was parsed before the error is returned.
func (p *Parser) ParseRules(text string) ([]*Rule, error) {
	return p.Parse([]byte(text)).Rules, nil
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]*Rule, 0),
		Warnings: make([]string, 0),
	}

	// Log parsing start with source identifier if provided
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	sheet.Rules = p.parseRuleList(parser, sheet, nil)
	return sheet
}

// parseRuleList consumes grammar until the end of the enclosing block (or
// input). Declarations and raw tokens met on the way belong to parent.
func (p *Parser) parseRuleList(parser *css.Parser, sheet *Stylesheet, parent *Rule) []*Rule {
	var (
		rules   []*Rule
		pending []string // selector list parts seen before the block starts
	)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				sheet.Warnings = append(sheet.Warnings, "parse error: "+err.Error())
				p.log.Debug("CSS parse error", zap.Error(err))
			}
			return rules

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			return rules

		case css.QualifiedRuleGrammar:
			pending = append(pending, joinTokens(data, parser.Values()))

		case css.BeginRulesetGrammar:
			pending = append(pending, joinTokens(data, parser.Values()))
			rule := &Rule{Kind: StyleRule, Selector: normalizeSelector(strings.Join(pending, ", "))}
			if parent != nil && parent.Kind == KeyframesRule {
				rule.Kind = KeyframeRule
			}
			pending = nil
			rule.Rules = p.parseRuleList(parser, sheet, rule)
			rules = append(rules, rule)

		case css.BeginAtRuleGrammar:
			rules = append(rules, p.parseAtRule(parser, sheet, string(data), parser.Values()))

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import)
			rule := &Rule{
				Kind:      StatementRule,
				AtKeyword: strings.ToLower(string(data)),
				Prelude:   joinTokens(nil, parser.Values()),
			}
			p.log.Debug("Parsed @-rule statement", zap.String("rule", rule.AtKeyword), zap.String("prelude", rule.Prelude))
			rules = append(rules, rule)

		case css.DeclarationGrammar:
			if parent == nil {
				sheet.Warnings = append(sheet.Warnings, "declaration outside of rule: "+string(data))
				continue
			}
			value, important := declarationValue(parser.Values())
			parent.Declarations = append(parent.Declarations, Declaration{
				Property:  strings.ToLower(string(data)),
				Value:     value,
				Important: important,
			})

		case css.CustomPropertyGrammar:
			if parent == nil {
				continue
			}
			// custom property names are case sensitive, value is kept verbatim
			parent.Declarations = append(parent.Declarations, Declaration{
				Property: string(data),
				Value:    strings.TrimSpace(rawTokens(parser.Values())),
			})

		case css.TokenGrammar:
			if parent != nil {
				parent.Raw += string(data)
			}
		}
	}
}

// Known at-rules which hold a block of declarations rather than rules.
var descriptorAtRules = map[string]bool{
	"@font-face":     true,
	"@page":          true,
	"@counter-style": true,
	"@property":      true,
	"@viewport":      true,
}

// parseAtRule parses a block @-rule and everything nested in it.
func (p *Parser) parseAtRule(parser *css.Parser, sheet *Stylesheet, keyword string, prelude []css.Token) *Rule {
	rule := &Rule{
		AtKeyword: strings.ToLower(keyword),
		Prelude:   joinTokens(nil, prelude),
	}
	if strings.HasSuffix(rule.AtKeyword, "keyframes") {
		rule.Kind = KeyframesRule
		rule.Name = unquote(rule.Prelude)
		rule.Prelude = ""
	} else {
		rule.Kind = GroupRule
	}

	rule.Rules = p.parseRuleList(parser, sheet, rule)
	rule.Raw = strings.TrimSpace(rule.Raw)

	if rule.Kind == GroupRule && len(rule.Rules) == 0 &&
		(len(rule.Declarations) > 0 || descriptorAtRules[rule.AtKeyword]) {
		rule.Kind = DescriptorRule
	}

	p.log.Debug("Parsed @-rule block",
		zap.String("rule", rule.AtKeyword),
		zap.Stringer("kind", rule.Kind),
		zap.Int("rules", len(rule.Rules)),
		zap.Int("declarations", len(rule.Declarations)))
	return rule
}

// joinTokens builds text from token data, collapsing every whitespace run
// into a single space and trimming it at both ends.
func joinTokens(data []byte, values []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	space := false
	for _, t := range values {
		if t.TokenType == css.WhitespaceToken || t.TokenType == css.CommentToken {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.Write(t.Data)
	}
	return sb.String()
}

// rawTokens concatenates token data as is.
func rawTokens(values []css.Token) string {
	var sb strings.Builder
	for _, t := range values {
		sb.Write(t.Data)
	}
	return sb.String()
}

// declarationValue converts value tokens into text, splitting off a
// trailing "!important".
func declarationValue(values []css.Token) (string, bool) {
	end := len(values)
	skipWS := func(i int) int {
		for i > 0 && values[i-1].TokenType == css.WhitespaceToken {
			i--
		}
		return i
	}

	important := false
	if i := skipWS(end); i > 0 && values[i-1].TokenType == css.IdentToken &&
		strings.EqualFold(string(values[i-1].Data), "important") {
		if j := skipWS(i - 1); j > 0 && values[j-1].TokenType == css.DelimToken && string(values[j-1].Data) == "!" {
			important = true
			end = j - 1
		}
	}
	return joinTokens(nil, values[:end]), important
}

var selectorListSep = regexp.MustCompile(`\s*,\s*`)

// normalizeSelector puts selector list into canonical "a, b" form.
func normalizeSelector(s string) string {
	return selectorListSep.ReplaceAllString(strings.TrimSpace(s), ", ")
}
