package soap

import (
	"bytes"
	"io"
	"sync"

	"github.com/beevik/etree"
	"github.com/m29h/xml"
)

// Document is an immutable XML document returned by an invocation. The raw
// bytes are kept as received; the tree is only built when asked for.
type Document struct {
	data []byte

	once sync.Once
	tree *etree.Document
	err  error
}

func newDocument(data []byte) *Document {
	return &Document{data: data}
}

func documentFromTree(tree *etree.Document) (*Document, error) {
	data, err := tree.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return newDocument(data), nil
}

// Bytes returns a copy of the serialized document.
func (d *Document) Bytes() []byte {
	return bytes.Clone(d.data)
}

func (d *Document) String() string {
	return string(d.data)
}

// Reader streams the serialized document.
func (d *Document) Reader() io.Reader {
	return bytes.NewReader(d.data)
}

// Tree parses the document on first use and returns a copy the caller may modify.
func (d *Document) Tree() (*etree.Document, error) {
	d.once.Do(func() {
		tree := etree.NewDocument()
		if err := tree.ReadFromBytes(d.data); err != nil {
			d.err = err
			return
		}
		d.tree = tree
	})
	if d.err != nil {
		return nil, d.err
	}
	return d.tree.Copy(), nil
}

// Decode unmarshals the whole document into v.
func (d *Document) Decode(v any) error {
	return xml.Unmarshal(d.data, v)
}

// DecodeBody decodes the body elements of an envelope document into contents,
// in order. A fault in the body is returned as a *Fault error.
func (d *Document) DecodeBody(contents ...any) error {
	envelope := NewEnvelope(contents)
	if err := xml.Unmarshal(d.data, envelope); err != nil {
		return err
	}
	if envelope.Body == nil {
		return ErrNotEnvelope
	}
	if envelope.Body.Fault != nil {
		return envelope.Body.Fault
	}
	return nil
}
