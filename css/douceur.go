package css

import (
	"fmt"
	"strings"

	dcss "github.com/aymerick/douceur/css"
	dparser "github.com/aymerick/douceur/parser"
	"go.uber.org/zap"
)

// At-rules douceur parses with nested rule blocks.
var groupAtRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@document":  true,
	"@container": true,
	"@layer":     true,
}

// DouceurParser is an alternative RuleParser backed by aymerick/douceur.
// Unlike Parser it refuses input douceur cannot tokenize.
type DouceurParser struct {
	log *zap.Logger
}

// NewDouceurParser creates parser using douceur backend.
func NewDouceurParser(log *zap.Logger) *DouceurParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &DouceurParser{log: log.Named("css-douceur")}
}

var _ RuleParser = (*DouceurParser)(nil)

// ParseRules implements RuleParser.
func (p *DouceurParser) ParseRules(text string) ([]*Rule, error) {
	sheet, err := dparser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse stylesheet: %w", err)
	}
	rules := make([]*Rule, 0, len(sheet.Rules))
	for _, r := range sheet.Rules {
		rules = append(rules, p.convert(r, nil))
	}
	p.log.Debug("Parsed stylesheet", zap.Int("rules", len(rules)))
	return rules, nil
}

func (p *DouceurParser) convert(src *dcss.Rule, parent *Rule) *Rule {
	rule := &Rule{}

	switch {
	case src.Kind == dcss.QualifiedRule:
		rule.Kind = StyleRule
		if parent != nil && parent.Kind == KeyframesRule {
			rule.Kind = KeyframeRule
		}
		if len(src.Selectors) > 0 {
			rule.Selector = strings.Join(src.Selectors, ", ")
		} else {
			rule.Selector = normalizeSelector(src.Prelude)
		}

	case strings.HasSuffix(strings.ToLower(src.Name), "keyframes"):
		rule.Kind = KeyframesRule
		rule.AtKeyword = strings.ToLower(src.Name)
		rule.Name = unquote(src.Prelude)

	default:
		rule.AtKeyword = strings.ToLower(src.Name)
		rule.Prelude = strings.TrimSpace(src.Prelude)
		switch {
		case groupAtRules[rule.AtKeyword] || len(src.Rules) > 0:
			rule.Kind = GroupRule
		case descriptorAtRules[rule.AtKeyword] || len(src.Declarations) > 0:
			rule.Kind = DescriptorRule
		default:
			rule.Kind = StatementRule
		}
	}

	for _, d := range src.Declarations {
		prop := strings.TrimSpace(d.Property)
		if !strings.HasPrefix(prop, "--") {
			prop = strings.ToLower(prop)
		}
		rule.Declarations = append(rule.Declarations, Declaration{
			Property:  prop,
			Value:     strings.TrimSpace(d.Value),
			Important: d.Important,
		})
	}
	for _, child := range src.Rules {
		rule.Rules = append(rule.Rules, p.convert(child, rule))
	}
	return rule
}
