package soap

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/m29h/xml"
)

var (
	// ErrSoapFault indicates a fault body element was received
	ErrSoapFault = errors.New("soap fault")
)

type details struct {
	Content []byte `xml:",innerxml"`
}

// Fault is a SOAP fault, normalised across SOAP 1.1 and 1.2.
type Fault struct {
	Code   string
	String string
	// Actor is faultactor in SOAP 1.1 and Role in SOAP 1.2.
	Actor  string
	Detail []byte
}

type fault11 struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Fault"`

	Code   string  `xml:"faultcode,omitempty"`
	String string  `xml:"faultstring,omitempty"`
	Actor  string  `xml:"faultactor,omitempty"`
	Detail details `xml:"detail"`
}

type fault12 struct {
	XMLName xml.Name `xml:"http://www.w3.org/2003/05/soap-envelope Fault"`

	Code struct {
		Value   string `xml:"http://www.w3.org/2003/05/soap-envelope Value"`
		Subcode struct {
			Value string `xml:"http://www.w3.org/2003/05/soap-envelope Value"`
		} `xml:"http://www.w3.org/2003/05/soap-envelope Subcode"`
	} `xml:"http://www.w3.org/2003/05/soap-envelope Code"`
	Reason struct {
		Text []string `xml:"http://www.w3.org/2003/05/soap-envelope Text"`
	} `xml:"http://www.w3.org/2003/05/soap-envelope Reason"`
	Role   string  `xml:"http://www.w3.org/2003/05/soap-envelope Role"`
	Detail details `xml:"http://www.w3.org/2003/05/soap-envelope Detail"`
}

// Error satisfies the Error() interface allowing us to return a fault as an error.
func (f *Fault) Error() string {
	if f.Actor != "" {
		return fmt.Sprintf("soap fault: actor=%s, code=%s, string=%s", f.Actor, f.Code, f.String)
	}
	return fmt.Sprintf("soap fault: code=%s, string=%s", f.Code, f.String)
}

func (f *Fault) Unwrap() error {
	return ErrSoapFault
}

// DecodeDetail unmarshals the first element of the fault detail into v.
func (f *Fault) DecodeDetail(v any) error {
	if len(bytes.TrimSpace(f.Detail)) == 0 {
		return nil
	}
	return xml.Unmarshal(f.Detail, v)
}

// decodeFault decodes the Fault element at start, whichever SOAP version it belongs to.
func decodeFault(d *xml.Decoder, start *xml.StartElement) (*Fault, error) {
	if start.Name.Space == soap12EnvNS {
		var raw fault12
		if err := d.DecodeElement(&raw, start); err != nil {
			return nil, err
		}
		f := &Fault{
			Code:   raw.Code.Value,
			Actor:  raw.Role,
			Detail: raw.Detail.Content,
		}
		if raw.Code.Subcode.Value != "" {
			f.Code += "/" + raw.Code.Subcode.Value
		}
		if len(raw.Reason.Text) > 0 {
			f.String = raw.Reason.Text[0]
		}
		return f, nil
	}

	var raw fault11
	if err := d.DecodeElement(&raw, start); err != nil {
		return nil, err
	}
	return &Fault{
		Code:   raw.Code,
		String: raw.String,
		Actor:  raw.Actor,
		Detail: raw.Detail.Content,
	}, nil
}

// parseFault decodes a standalone serialized Fault element.
func parseFault(data []byte) (*Fault, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := d.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no fault element", ErrDecode)
		} else if err != nil {
			return nil, err
		}
		if start, ok := token.(xml.StartElement); ok {
			return decodeFault(d, &start)
		}
	}
}
