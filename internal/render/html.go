package render

import (
	"bufio"
	"html"
	"html/template"
	"io"
	"strings"
)

var voidTags = map[string]bool{"img": true, "input": true, "br": true}

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// WriteDocument writes a complete HTML document around the page body.
func WriteDocument(w io.Writer, title string, body *Element) error {
	var b strings.Builder
	if err := WriteHTML(&b, body); err != nil {
		return err
	}
	return documentTmpl.Execute(w, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(b.String()),
	})
}

// WriteHTML serializes the element tree. Text and attribute values are
// escaped; tags and attribute names come from this package only.
func WriteHTML(w io.Writer, e *Element) error {
	bw := bufio.NewWriter(w)
	writeElement(bw, e)
	return bw.Flush()
}

func writeElement(w *bufio.Writer, e *Element) {
	if e == nil {
		return
	}
	if e.Action != nil {
		writeAction(w, e)
		return
	}

	w.WriteString("<" + e.Tag)
	writeAttr(w, "class", e.Class)
	for _, a := range e.Attrs {
		writeAttr(w, a.Name, a.Value)
	}
	w.WriteString(">")
	if voidTags[e.Tag] {
		return
	}
	w.WriteString(html.EscapeString(e.Text))
	for _, c := range e.Children {
		writeElement(w, c)
	}
	w.WriteString("</" + e.Tag + ">")
}

// writeAction renders a trigger as a form posting to the action path. The
// element's own children, if any, precede the form so a row keeps its layout.
func writeAction(w *bufio.Writer, e *Element) {
	a := e.Action
	method := a.Method
	if method == "" {
		method = "post"
	}
	w.WriteString("<form")
	writeAttr(w, "method", method)
	writeAttr(w, "action", a.Path)
	w.WriteString(">")
	for _, f := range a.Fields {
		w.WriteString(`<input type="hidden"`)
		writeAttr(w, "name", f.Name)
		writeAttr(w, "value", f.Value)
		w.WriteString(">")
	}
	w.WriteString(`<button type="submit"`)
	writeAttr(w, "class", e.Class)
	w.WriteString(">")
	w.WriteString(html.EscapeString(e.Text))
	w.WriteString("</button></form>")
}

func writeAttr(w *bufio.Writer, name, value string) {
	if value == "" && name == "class" {
		return
	}
	w.WriteString(" " + name + `="` + html.EscapeString(value) + `"`)
}
