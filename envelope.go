package soap

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/m29h/xml"
)

const (
	soapEnvNS   = "http://schemas.xmlsoap.org/soap/envelope/"
	soap12EnvNS = "http://www.w3.org/2003/05/soap-envelope"
)

var (
	// ErrEnvelopeMisconfigured is returned if we attempt to deserialize a SOAP envelope without a type to deserialize the body into.
	ErrEnvelopeMisconfigured = errors.New("envelope content pointer empty")
	// ErrNotEnvelope is returned if the document root is not a SOAP 1.1 or 1.2 Envelope.
	ErrNotEnvelope = errors.New("document root is not a SOAP envelope")
	// ErrBodyNotSingleElement is returned when the body subtree is requested but Body does not hold exactly one element.
	ErrBodyNotSingleElement = errors.New("soap body does not contain exactly one element")
)

func isEnvelopeNS(ns string) bool {
	return ns == soapEnvNS || ns == soap12EnvNS
}

// Envelope is a SOAP envelope of either version, used for typed decoding of a response.
type Envelope struct {
	XMLName xml.Name `xml:"Envelope"`

	Header *Header
	Body   *Body
}

// NewEnvelope creates an Envelope whose body decodes into content.
// A []any decodes successive body elements into successive values.
func NewEnvelope(content any) *Envelope {
	switch v := content.(type) {
	case []any:
		return &Envelope{Body: &Body{Content: v}}
	}
	return &Envelope{Body: &Body{Content: []any{content}}}
}

// Header is a SOAP envelope header; its entries are kept as raw XML.
type Header struct {
	XMLName xml.Name `xml:"Header"`
	Content []byte   `xml:",innerxml"`
}

// Body is a SOAP envelope body.
type Body struct {
	XMLName xml.Name `xml:"Body"`

	// Fault is set if the body carried a SOAP fault.
	Fault *Fault `xml:"-"`
	// Content receives the body elements in order.
	Content []any `xml:"-"`
}

// UnmarshalXML decodes the body elements into b.Content, or a fault into b.Fault.
func (b *Body) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if b.Content == nil {
		return ErrEnvelopeMisconfigured
	}
	for _, c := range b.Content {
		if c == nil {
			return ErrEnvelopeMisconfigured
		}
	}

	elementDone := make([]bool, len(b.Content))
tokens:
	for {
		token, err := d.Token()
		if err != nil {
			return err
		} else if token == nil {
			return nil
		}

		switch elem := token.(type) {
		case xml.StartElement:
			if isEnvelopeNS(elem.Name.Space) && elem.Name.Local == "Fault" {
				f, err := decodeFault(d, &elem)
				if err != nil {
					return err
				}
				b.Fault = f
				b.Content = nil
				continue
			}
			for i := range b.Content {
				if elementDone[i] {
					continue
				}
				err = d.DecodeElement(b.Content[i], &elem)
				if err != nil {
					continue
				}
				elementDone[i] = true
				continue tokens
			}
			if err != nil {
				return err
			}
			return fmt.Errorf("received token %s %s in body but have no content field to unmarshal to", elem.Name.Space, elem.Name.Local)
		case xml.EndElement:
			return nil
		}
	}
}

// envelopeParts locates Envelope, Header and Body in a parsed response.
type envelopeParts struct {
	ns       string
	envelope *etree.Element
	body     *etree.Element
}

func splitEnvelope(doc *etree.Document) (*envelopeParts, error) {
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" || !isEnvelopeNS(root.NamespaceURI()) {
		return nil, ErrNotEnvelope
	}
	parts := &envelopeParts{ns: root.NamespaceURI(), envelope: root}
	for _, child := range root.ChildElements() {
		if child.Tag == "Body" && child.NamespaceURI() == parts.ns {
			parts.body = child
			break
		}
	}
	if parts.body == nil {
		return nil, fmt.Errorf("%w: missing Body", ErrNotEnvelope)
	}
	return parts, nil
}

// fault returns the Fault element of the body, if any.
func (p *envelopeParts) fault() *etree.Element {
	for _, child := range p.body.ChildElements() {
		if child.Tag == "Fault" && child.NamespaceURI() == p.ns {
			return child
		}
	}
	return nil
}

// bodyContent returns the single payload element of the body.
func (p *envelopeParts) bodyContent() (*etree.Element, error) {
	children := p.body.ChildElements()
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: found %d", ErrBodyNotSingleElement, len(children))
	}
	return children[0], nil
}

// detach copies el into a document of its own, carrying over the namespace
// declarations it inherits from its ancestors.
func detach(el *etree.Element) *etree.Document {
	cp := el.Copy()
	declared := make(map[string]bool)
	for _, a := range cp.Attr {
		if isNamespaceDecl(a) {
			declared[a.FullKey()] = true
		}
	}
	for parent := el.Parent(); parent != nil; parent = parent.Parent() {
		for _, a := range parent.Attr {
			if !isNamespaceDecl(a) || declared[a.FullKey()] {
				continue
			}
			declared[a.FullKey()] = true
			cp.CreateAttr(a.FullKey(), a.Value)
		}
	}
	doc := etree.NewDocument()
	doc.SetRoot(cp)
	return doc
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}
