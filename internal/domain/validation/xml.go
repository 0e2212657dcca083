package validation

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/matcher"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// XMLValidator compares XML payloads as element trees: names and
// namespaces, attributes (namespace declarations excluded), child element
// order and count, and trimmed text of leaf elements. Control values may be
// matcher expressions; nodes selected by ignore expressions are skipped.
type XMLValidator struct{}

var _ Validator = XMLValidator{}

func (XMLValidator) SupportsMessageType(t message.Type, msg message.Message) bool {
	return (t.Is(message.XML) || t.Is(message.XHTML)) && hasPayloadOf(msg, message.XML)
}

func (XMLValidator) ValidateMessage(received, control message.Message, tctx *testcontext.Context, contexts []Context) error {
	if control == nil {
		return nil
	}
	controlText := strings.TrimSpace(message.PayloadString(control, tctx.Converter()))
	if controlText == "" {
		return nil
	}

	controlDoc, err := xmlquery.Parse(strings.NewReader(controlText))
	if err != nil {
		return failure.Wrap(failure.ErrInvalidExpression, err, "control message is not valid XML")
	}
	receivedDoc, err := xmlquery.Parse(strings.NewReader(message.PayloadString(received, tctx.Converter())))
	if err != nil {
		return &failure.ValidationError{Path: "/", Message: "received message is not valid XML", Err: err}
	}

	w := &xmlWalker{
		tctx:         tctx,
		ignoredNodes: make(map[*xmlquery.Node]bool),
		ignoredAttrs: make(map[*xmlquery.Node]map[string]bool),
	}
	if xctx, ok := Find[XMLContext](contexts); ok {
		for _, expr := range xctx.IgnoreExpressions() {
			nodes, err := xmlquery.QueryAll(controlDoc, expr)
			if err != nil {
				return failure.Wrap(failure.ErrInvalidExpression, err, "invalid ignore expression '%s'", expr)
			}
			for _, n := range nodes {
				w.ignoreNode(n)
			}
		}
	}

	ce, re := rootElement(controlDoc), rootElement(receivedDoc)
	if re == nil {
		return failure.Validation("/", "received message has no root element")
	}
	return w.compare("", ce, re)
}

type xmlWalker struct {
	tctx         *testcontext.Context
	ignoredNodes map[*xmlquery.Node]bool
	ignoredAttrs map[*xmlquery.Node]map[string]bool
}

func (w *xmlWalker) ignoreNode(n *xmlquery.Node) {
	if n.Type != xmlquery.AttributeNode {
		w.ignoredNodes[n] = true
		return
	}
	if w.ignoredAttrs[n.Parent] == nil {
		w.ignoredAttrs[n.Parent] = make(map[string]bool)
	}
	w.ignoredAttrs[n.Parent][n.Data] = true
}

func (w *xmlWalker) compare(parent string, control, received *xmlquery.Node) error {
	path := parent + "/" + qualifiedName(control)
	if w.ignoredNodes[control] {
		return nil
	}

	if control.Data != received.Data {
		return &failure.ValidationError{
			Path:     path,
			Expected: control.Data,
			Actual:   received.Data,
			Message:  "element names not equal",
		}
	}
	if control.NamespaceURI != received.NamespaceURI {
		return &failure.ValidationError{
			Path:     path,
			Expected: control.NamespaceURI,
			Actual:   received.NamespaceURI,
			Message:  "element namespaces not equal for element '" + path + "'",
		}
	}

	if err := w.compareAttributes(path, control, received); err != nil {
		return err
	}

	controlChildren, receivedChildren := elements(control), elements(received)
	if len(controlChildren) == 0 {
		return w.compareText(path, control, received)
	}
	if len(controlChildren) != len(receivedChildren) {
		return &failure.ValidationError{
			Path:     path,
			Expected: len(controlChildren),
			Actual:   len(receivedChildren),
			Message:  "number of child elements not equal for element '" + path + "'",
		}
	}
	for i := range controlChildren {
		if err := w.compare(path, controlChildren[i], receivedChildren[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *xmlWalker) compareAttributes(path string, control, received *xmlquery.Node) error {
	controlAttrs, receivedAttrs := attributes(control), attributes(received)
	ignored := w.ignoredAttrs[control]

	if len(ignored) == 0 && len(controlAttrs) != len(receivedAttrs) {
		return &failure.ValidationError{
			Path:     path,
			Expected: len(controlAttrs),
			Actual:   len(receivedAttrs),
			Message:  "number of attributes not equal for element '" + path + "'",
		}
	}

	for _, ca := range controlAttrs {
		if ignored[ca.Name.Local] {
			continue
		}
		attrPath := path + "/@" + ca.Name.Local
		ra, ok := findAttr(receivedAttrs, ca)
		if !ok {
			return failure.Validation(attrPath, "attribute '%s' is missing for element '%s'", ca.Name.Local, path)
		}
		if matcher.IsExpression(ca.Value) {
			if err := matcher.Resolve(w.tctx, attrPath, ra.Value, ca.Value); err != nil {
				return err
			}
			continue
		}
		if ca.Value != ra.Value {
			return failure.Mismatch(attrPath, ca.Value, ra.Value)
		}
	}
	return nil
}

func (w *xmlWalker) compareText(path string, control, received *xmlquery.Node) error {
	expected := strings.TrimSpace(control.InnerText())
	actual := strings.TrimSpace(received.InnerText())
	if matcher.IsExpression(expected) {
		return matcher.Resolve(w.tctx, path, actual, expected)
	}
	if len(elements(received)) > 0 {
		return &failure.ValidationError{
			Path:     path,
			Expected: 0,
			Actual:   len(elements(received)),
			Message:  "number of child elements not equal for element '" + path + "'",
		}
	}
	if expected != actual {
		return failure.Mismatch(path, expected, actual)
	}
	return nil
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

func elements(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func attributes(n *xmlquery.Node) []xmlquery.Attr {
	var out []xmlquery.Attr
	for _, a := range n.Attr {
		if a.Name.Space == "xmlns" || a.NamespaceURI == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func findAttr(attrs []xmlquery.Attr, want xmlquery.Attr) (xmlquery.Attr, bool) {
	for _, a := range attrs {
		if a.Name.Local == want.Name.Local && a.NamespaceURI == want.NamespaceURI {
			return a, true
		}
	}
	return xmlquery.Attr{}, false
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}
