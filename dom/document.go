// Package dom keeps a small HTML page model on top of etree: a document with
// head and body, style elements usable as scoped stylesheet targets and a
// trivial event target. Pages are rendered as HTML5 with golang.org/x/net/html.
package dom

import (
	"bytes"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is an HTML page under construction. It is not safe for
// concurrent use.
type Document struct {
	doc  *etree.Document
	Head *etree.Element
	Body *etree.Element

	log *zap.Logger
}

// NewDocument creates page skeleton with title.
func NewDocument(title string, log *zap.Logger) *Document {
	if log == nil {
		log = zap.NewNop()
	}

	doc := etree.NewDocument()
	root := doc.CreateElement("html")
	root.CreateAttr("lang", "en")

	head := root.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")
	meta = head.CreateElement("meta")
	meta.CreateAttr("name", "viewport")
	meta.CreateAttr("content", "width=device-width, initial-scale=1")
	head.CreateElement("title").SetText(title)

	return &Document{
		doc:  doc,
		Head: head,
		Body: root.CreateElement("body"),
		log:  log.Named("dom"),
	}
}

// Root returns the html element.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// ElementByID returns first element with matching id attribute.
func (d *Document) ElementByID(id string) *etree.Element {
	return d.doc.FindElement(fmt.Sprintf("//*[@id='%s']", id))
}

// AppendStyle adds an empty style element to the end of head.
func (d *Document) AppendStyle() *Style {
	return &Style{el: d.Head.CreateElement("style")}
}

// WriteTo renders document as HTML5, implementing io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.node()); err != nil {
		return 0, fmt.Errorf("unable to render document: %w", err)
	}
	return buf.WriteTo(w)
}

// String returns rendered document.
func (d *Document) String() string {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		d.log.Warn("Unable to render document", zap.Error(err))
	}
	return buf.String()
}

// node converts etree content into x/net/html tree. Style text is kept as
// is, html.Render does not escape raw text elements.
func (d *Document) node() *html.Node {
	n := &html.Node{Type: html.DocumentNode}
	n.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	if root := d.doc.Root(); root != nil {
		n.AppendChild(elementNode(root))
	}
	return n
}

func elementNode(e *etree.Element) *html.Node {
	tag := e.FullTag()
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for _, a := range e.Attr {
		n.Attr = append(n.Attr, html.Attribute{Key: a.FullKey(), Val: a.Value})
	}
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.AppendChild(elementNode(t))
		case *etree.CharData:
			n.AppendChild(&html.Node{Type: html.TextNode, Data: t.Data})
		case *etree.Comment:
			n.AppendChild(&html.Node{Type: html.CommentNode, Data: t.Data})
		}
	}
	return n
}
