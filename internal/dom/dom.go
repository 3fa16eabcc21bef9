// Package dom keeps a page as a mutable HTML tree on the server. Handlers
// look elements up by id, change classes, text, markup and field values, and
// the tree is rendered back to the browser after every event.
package dom

import (
	"context"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Listener handles an event dispatched to an element or one of its
// descendants.
type Listener func(ctx context.Context, ev Event)

// Event is a user interaction delivered to the document.
type Event struct {
	Type   string
	Target *Element
	// Key is set for keypress events.
	Key string
}

const (
	EventClick    = "click"
	EventSubmit   = "submit"
	EventKeypress = "keypress"
)

type Document struct {
	root      *html.Node
	listeners map[*html.Node]map[string][]Listener
	defaults  map[*html.Node]fieldDefault
}

type fieldDefault struct {
	value   string
	checked bool
}

// Parse builds a document from a full HTML page. Field values present in the
// page become the defaults restored by Element.Reset.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{
		root:      root,
		listeners: make(map[*html.Node]map[string][]Listener),
		defaults:  make(map[*html.Node]fieldDefault),
	}
	walk(root, func(n *html.Node) bool {
		if isField(n) {
			el := d.wrap(n)
			d.defaults[n] = fieldDefault{value: el.Value(), checked: el.Checked()}
		}
		return true
	})
	return d, nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// GetElementByID returns the element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

// ElementsByClass returns all elements carrying class, in document order.
func (d *Document) ElementsByClass(class string) []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, class) {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

// Dispatch delivers ev to the listeners of its target and then of each
// ancestor, mirroring event bubbling.
func (d *Document) Dispatch(ctx context.Context, ev Event) {
	if ev.Target == nil {
		return
	}
	for n := ev.Target.node; n != nil; n = n.Parent {
		byType := d.listeners[n]
		if len(byType) == 0 {
			continue
		}
		fns := append([]Listener(nil), byType[ev.Type]...)
		for _, fn := range fns {
			fn(ctx, ev)
		}
	}
}

// SyncForm copies posted values into the fields of form, as if the user had
// typed them. Checkboxes missing from values become unchecked. Hidden inputs
// and buttons are owned by the server and left alone.
func (d *Document) SyncForm(form *Element, values url.Values) {
	if form == nil {
		return
	}
	walk(form.node, func(n *html.Node) bool {
		if !isField(n) {
			return true
		}
		name := attr(n, "name")
		if name == "" {
			name = attr(n, "id")
		}
		if name == "" {
			return true
		}
		el := d.wrap(n)
		switch inputType(n) {
		case "hidden", "submit", "button", "reset":
		case "checkbox":
			el.SetChecked(values.Has(name))
		default:
			if values.Has(name) {
				el.SetValue(values.Get(name))
			}
		}
		return true
	})
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

// Element is a handle on one element node. Handles are cheap; two handles on
// the same node compare equal with Is.
type Element struct {
	doc  *Document
	node *html.Node
}

func (e *Element) ID() string  { return attr(e.node, "id") }
func (e *Element) Tag() string { return e.node.Data }

// Is reports whether e and o refer to the same node.
func (e *Element) Is(o *Element) bool {
	return e != nil && o != nil && e.node == o.node
}

// Contains reports whether o is e or one of its descendants.
func (e *Element) Contains(o *Element) bool {
	if e == nil || o == nil {
		return false
	}
	for n := o.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) SetAttr(key, val string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			e.node.Attr[i].Val = val
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: val})
}

func (e *Element) RemoveAttr(key string) {
	kept := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	e.node.Attr = kept
}

// Data returns the value of the data-<name> attribute.
func (e *Element) Data(name string) string {
	v, _ := e.Attr("data-" + name)
	return v
}

func (e *Element) HasClass(class string) bool { return hasClass(e.node, class) }

func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	classes := strings.Fields(attr(e.node, "class"))
	e.SetAttr("class", strings.Join(append(classes, class), " "))
}

func (e *Element) RemoveClass(class string) {
	classes := strings.Fields(attr(e.node, "class"))
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds class when on is true and removes it otherwise.
func (e *Element) ToggleClass(class string, on bool) {
	if on {
		e.AddClass(class)
		return
	}
	e.RemoveClass(class)
}

// SetInnerHTML replaces the element's children with the parsed fragment.
func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return err
	}
	e.removeChildren()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	var b strings.Builder
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// Text returns the concatenated text of all descendants.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// SetText replaces the element's children with a single text node.
func (e *Element) SetText(s string) {
	e.removeChildren()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// Value returns the current value of an input, textarea or select.
func (e *Element) Value() string {
	switch e.node.DataAtom {
	case atom.Textarea:
		return e.Text()
	case atom.Select:
		var first *html.Node
		for _, opt := range e.options() {
			if first == nil {
				first = opt
			}
			if _, ok := attrOK(opt, "selected"); ok {
				return optionValue(opt)
			}
		}
		if first != nil {
			return optionValue(first)
		}
		return ""
	default:
		return attr(e.node, "value")
	}
}

// SetValue sets the value of an input, textarea or select. For a select the
// matching option becomes selected; an unknown value clears the selection.
func (e *Element) SetValue(v string) {
	switch e.node.DataAtom {
	case atom.Textarea:
		e.SetText(v)
	case atom.Select:
		for _, opt := range e.options() {
			optEl := e.doc.wrap(opt)
			if optionValue(opt) == v {
				optEl.SetAttr("selected", "")
			} else {
				optEl.RemoveAttr("selected")
			}
		}
	default:
		e.SetAttr("value", v)
	}
}

func (e *Element) Checked() bool {
	_, ok := e.Attr("checked")
	return ok
}

func (e *Element) SetChecked(on bool) {
	if on {
		e.SetAttr("checked", "")
		return
	}
	e.RemoveAttr("checked")
}

// Reset restores every field inside e to the value it had when the page was
// parsed. Hidden inputs keep their current value.
func (e *Element) Reset() {
	walk(e.node, func(n *html.Node) bool {
		if !isField(n) || inputType(n) == "hidden" {
			return true
		}
		def := e.doc.defaults[n]
		el := e.doc.wrap(n)
		if inputType(n) == "checkbox" {
			el.SetChecked(def.checked)
			return true
		}
		el.SetValue(def.value)
		return true
	})
}

// Option is one entry of a select element.
type Option struct {
	Value string
	Label string
}

// Options lists the options of a select element.
func (e *Element) Options() []Option {
	var out []Option
	for _, n := range e.options() {
		out = append(out, Option{Value: optionValue(n), Label: e.doc.wrap(n).Text()})
	}
	return out
}

// TruncateOptions removes every option after the first keep.
func (e *Element) TruncateOptions(keep int) {
	for i, n := range e.options() {
		if i >= keep {
			n.Parent.RemoveChild(n)
		}
	}
}

// AppendOption adds an option to a select element.
func (e *Element) AppendOption(value, label string) {
	opt := &html.Node{
		Type:     html.ElementNode,
		Data:     "option",
		DataAtom: atom.Option,
		Attr:     []html.Attribute{{Key: "value", Val: value}},
	}
	opt.AppendChild(&html.Node{Type: html.TextNode, Data: label})
	e.node.AppendChild(opt)
}

// AddEventListener registers fn for events of type typ dispatched to e or to
// any of its descendants.
func (e *Element) AddEventListener(typ string, fn Listener) {
	byType := e.doc.listeners[e.node]
	if byType == nil {
		byType = make(map[string][]Listener)
		e.doc.listeners[e.node] = byType
	}
	byType[typ] = append(byType[typ], fn)
}

func (e *Element) removeChildren() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

func (e *Element) options() []*html.Node {
	var out []*html.Node
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Option {
			out = append(out, n)
		}
		return true
	})
	return out
}

// walk visits n and its descendants depth first. Returning false from fn
// stops the walk.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func isField(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return true
	}
	return false
}

func inputType(n *html.Node) string {
	if n.DataAtom != atom.Input {
		return ""
	}
	t := strings.ToLower(attr(n, "type"))
	if t == "" {
		return "text"
	}
	return t
}

func optionValue(n *html.Node) string {
	if v, ok := attrOK(n, "value"); ok {
		return v
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
