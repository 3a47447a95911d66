package dom

import (
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dicetable/css"
)

// Style wraps a <style> element.
type Style struct {
	el *etree.Element
}

// SetText replaces content of the style element.
func (s *Style) SetText(text string) {
	s.el.SetText(text)
}

// Text returns content of the style element.
func (s *Style) Text() string {
	return s.el.Text()
}

// Element returns underlying element.
func (s *Style) Element() *etree.Element {
	return s.el
}

// StyleSheet is the page wide stylesheet scoped rules are appended to. It
// owns a single style element marked with data-scoped attribute, number of
// inserted rules is kept in data-rules attribute of the same element.
type StyleSheet struct {
	style *Style
	rules int
}

// StyleSheet returns the page stylesheet creating its element on first use.
func (d *Document) StyleSheet() *StyleSheet {
	for _, el := range d.Head.SelectElements("style") {
		if el.SelectAttr("data-scoped") != nil {
			n, _ := strconv.Atoi(el.SelectAttrValue("data-rules", "0"))
			return &StyleSheet{style: &Style{el: el}, rules: max(n, 0)}
		}
	}
	s := d.AppendStyle()
	s.el.CreateAttr("data-scoped", "")
	return &StyleSheet{style: s}
}

// Insert appends a rule at the end of the sheet.
func (ss *StyleSheet) Insert(rule string) error {
	ss.style.SetText(ss.style.Text() + rule + "\n")
	ss.rules++
	ss.style.el.CreateAttr("data-rules", strconv.Itoa(ss.rules))
	return nil
}

// Len returns number of inserted rules.
func (ss *StyleSheet) Len() int {
	return ss.rules
}

// Text returns content of the sheet.
func (ss *StyleSheet) Text() string {
	return ss.style.Text()
}

// StyleParser parses CSS text by temporarily placing it into a style
// element of the document head. The element is removed again before
// returning, the head ends up exactly as it was.
type StyleParser struct {
	doc    *Document
	parser css.RuleParser
	log    *zap.Logger
}

// NewStyleParser creates parser bound to doc. Actual parsing is delegated
// to parser.
func NewStyleParser(doc *Document, parser css.RuleParser, log *zap.Logger) *StyleParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &StyleParser{doc: doc, parser: parser, log: log.Named("style-parser")}
}

var _ css.RuleParser = (*StyleParser)(nil)

// ParseRules implements css.RuleParser.
func (p *StyleParser) ParseRules(text string) ([]*css.Rule, error) {
	s := p.doc.AppendStyle()
	s.SetText(text)
	defer p.doc.Head.RemoveChild(s.el)

	rules, err := p.parser.ParseRules(s.Text())
	if err != nil {
		return nil, err
	}
	p.log.Debug("Parsed transient style", zap.Int("rules", len(rules)))
	return rules, nil
}
