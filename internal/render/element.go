// Package render builds the visual element tree of the storefront and
// serializes it to HTML.
package render

// Element is a visual node. Elements carrying an Action are interaction
// triggers and serialize as a form wrapping a submit button.
type Element struct {
	Tag      string
	Class    string
	Text     string
	Attrs    []Attr
	Action   *Action
	Children []*Element
}

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// Action is the request an interaction trigger issues.
type Action struct {
	Method string
	Path   string
	Fields []Attr
}

// Attr returns the value of attribute name, or "" when it is absent.
func (e *Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Find returns the first element in the subtree rooted at e, e included,
// whose class is class.
func (e *Element) Find(class string) *Element {
	if e == nil {
		return nil
	}
	if e.Class == class {
		return e
	}
	for _, c := range e.Children {
		if f := c.Find(class); f != nil {
			return f
		}
	}
	return nil
}

// FindAll returns every element in the subtree whose class is class, in
// document order.
func (e *Element) FindAll(class string) []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(el *Element) {
		if el == nil {
			return
		}
		if el.Class == class {
			out = append(out, el)
		}
		for _, c := range el.Children {
			walk(c)
		}
	}
	walk(e)
	return out
}

func el(tag, class, text string, children ...*Element) *Element {
	return &Element{Tag: tag, Class: class, Text: text, Children: children}
}

func button(class, label string, a *Action) *Element {
	return &Element{Tag: "button", Class: class, Text: label, Action: a}
}

func post(path string, fields ...Attr) *Action {
	return &Action{Method: "post", Path: path, Fields: fields}
}
