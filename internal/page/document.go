package page

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrMissingRoot = errors.New("page: app root not found")

// ContentClass marks the element a view mounts under the app root.
const ContentClass = "content"

// Document is a server-held host page. The app root and body handles are
// resolved once; nothing looks them up again later.
type Document struct {
	node *html.Node
	body *html.Node
	root *html.Node
}

// New builds an empty host page with a <div id="app"> inside <body>.
func New(title string) *Document {
	doc := &html.Node{Type: html.DocumentNode}
	htmlEl := Element(atom.Html)
	head := Element(atom.Head)
	titleEl := Element(atom.Title)
	titleEl.AppendChild(Text(title))
	head.AppendChild(titleEl)
	body := Element(atom.Body)
	root := Element(atom.Div, "id", "app")

	body.AppendChild(root)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	doc.AppendChild(htmlEl)
	return &Document{node: doc, body: body, root: root}
}

// Parse reads a host page. A page without a #app element still parses;
// mounting into it fails with ErrMissingRoot.
func Parse(r io.Reader) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{node: node}
	walk(node, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if d.body == nil && n.DataAtom == atom.Body {
			d.body = n
		}
		if d.root == nil && Attr(n, "id") == "app" {
			d.root = n
		}
		return d.body == nil || d.root == nil
	})
	return d, nil
}

func (d *Document) Root() *html.Node { return d.root }

func (d *Document) Body() *html.Node { return d.body }

// Mount replaces the content currently attached under the app root with el
// and drops any canvas surface a previous view left directly on <body>.
func (d *Document) Mount(el *html.Node) error {
	if d.root == nil {
		return ErrMissingRoot
	}
	for c := d.root.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && HasClass(c, ContentClass) {
			d.root.RemoveChild(c)
		}
		c = next
	}
	if el.Parent != nil {
		el.Parent.RemoveChild(el)
	}
	d.root.AppendChild(el)

	if d.body != nil {
		for c := d.body.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode && c.DataAtom == atom.Canvas {
				d.body.RemoveChild(c)
			}
			c = next
		}
	}
	return nil
}

// Render writes the whole page.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.node)
}

// RootHTML renders only the children of the app root, which is what the
// live host pushes to the browser.
func (d *Document) RootHTML() (string, error) {
	if d.root == nil {
		return "", ErrMissingRoot
	}
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func Element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// SetText replaces every child of n with a single text node.
func SetText(n *html.Node, s string) {
	Clear(n)
	n.AppendChild(Text(s))
}

func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// TextContent concatenates every text node below n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// FindAll returns the elements below n, n included, that match.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && match(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
