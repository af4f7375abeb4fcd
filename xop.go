package soap

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

// Implements an XOP decoder.
// This is used for any MIME multi-part SOAP responses we receive.

const (
	xopNS = "http://www.w3.org/2004/08/xop/include"
)

var (
	// ErrMultipartBodyEmpty is returned if a multi-part body that is empty is discovered
	ErrMultipartBodyEmpty = errors.New("multi-part body is empty")
	// ErrMissingXopPart is returned if an xop:Include references a part that was not sent
	ErrMissingXopPart = errors.New("xop include references a missing part")
)

type xopDecoder struct {
	reader      io.Reader
	mediaParams map[string]string
}

func newXopDecoder(r io.Reader, mediaParams map[string]string) *xopDecoder {
	return &xopDecoder{
		reader:      r,
		mediaParams: mediaParams,
	}
}

// decode reads every part, takes the root part (the "start" parameter, or the
// first part) as the envelope and replaces each xop:Include with the base64
// text of the part it references.
func (d *xopDecoder) decode() (*etree.Document, error) {
	boundary := d.mediaParams["boundary"]
	if boundary == "" {
		return nil, errors.New("multipart response without boundary")
	}
	parts := multipart.NewReader(d.reader, boundary)
	start := trimContentID(d.mediaParams["start"])

	var root []byte
	attachments := make(map[string][]byte)
	for {
		part, err := parts.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		id := trimContentID(part.Header.Get("Content-ID"))
		switch {
		case root == nil && (start == "" || id == start):
			root = data
		default:
			attachments[id] = data
		}
	}
	if root == nil {
		return nil, ErrMultipartBodyEmpty
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(root); err != nil {
		return nil, err
	}
	if err := inlineIncludes(doc.Root(), attachments); err != nil {
		return nil, err
	}
	return doc, nil
}

func inlineIncludes(element *etree.Element, attachments map[string][]byte) error {
	if element == nil {
		return nil
	}
	for _, child := range element.ChildElements() {
		if child.Tag == "Include" && child.NamespaceURI() == xopNS {
			id, err := url.PathUnescape(strings.TrimPrefix(child.SelectAttrValue("href", ""), "cid:"))
			if err != nil {
				return err
			}
			data, ok := attachments[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingXopPart, id)
			}
			element.RemoveChild(child)
			element.SetText(base64.StdEncoding.EncodeToString(data))
			continue
		}
		if err := inlineIncludes(child, attachments); err != nil {
			return err
		}
	}
	return nil
}

func trimContentID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
}
