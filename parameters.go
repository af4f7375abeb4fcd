package soap

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Parameter keys understood by ParametersFromMap.
const (
	ParamEnvelope                      = "envelope"
	ParamEndpointAddress               = "endpointAddress"
	ParamServiceName                   = "serviceName"
	ParamPortName                      = "portName"
	ParamBinding                       = "binding"
	ParamServiceNS                     = "serviceNS"
	ParamSOAPAction                    = "soapAction"
	ParamUserName                      = "userName"
	ParamPassword                      = "password"
	ParamHTTPHeaders                   = "httpHeaders"
	ParamBuildResponseDocumentEnvelope = "buildResponseDocumentEnvelope"
	ParamBuildResponseDocumentBody     = "buildResponseDocumentBody"
	ParamPrintRequestAndResponse       = "printRequestAndResponse"
)

// Binding identifies the SOAP version and HTTP profile used for a call.
type Binding string

const (
	SOAP11HTTP     Binding = "http://schemas.xmlsoap.org/wsdl/soap/http"
	SOAP11HTTPMTOM Binding = "http://schemas.xmlsoap.org/wsdl/soap/http?mtom=true"
	SOAP12HTTP     Binding = "http://www.w3.org/2003/05/soap/bindings/HTTP/"
	SOAP12HTTPMTOM Binding = "http://www.w3.org/2003/05/soap/bindings/HTTP/?mtom=true"
)

var bindingAliases = map[string]Binding{
	"soap11":      SOAP11HTTP,
	"soap11-mtom": SOAP11HTTPMTOM,
	"soap12":      SOAP12HTTP,
	"soap12-mtom": SOAP12HTTPMTOM,
}

// ParseBinding accepts a binding URI or one of its short aliases.
func ParseBinding(s string) (Binding, error) {
	s = strings.TrimSpace(s)
	switch b := Binding(s); b {
	case SOAP11HTTP, SOAP11HTTPMTOM, SOAP12HTTP, SOAP12HTTPMTOM:
		return b, nil
	}
	if b, ok := bindingAliases[strings.ToLower(s)]; ok {
		return b, nil
	}
	return "", fmt.Errorf("unsupported binding %q", s)
}

// SOAP12 reports whether the binding uses SOAP 1.2 framing.
func (b Binding) SOAP12() bool {
	return b == SOAP12HTTP || b == SOAP12HTTPMTOM
}

// MTOM reports whether multipart/related XOP responses are expected.
func (b Binding) MTOM() bool {
	return b == SOAP11HTTPMTOM || b == SOAP12HTTPMTOM
}

// HTTPHeader is one custom transport header with all of its values.
type HTTPHeader struct {
	Name   string
	Values []string
}

// Parameters is the typed form of the connector's input mapping.
type Parameters struct {
	Envelope        string
	EndpointAddress string
	ServiceName     string
	PortName        string
	Binding         Binding
	ServiceNS       string
	SOAPAction      string

	// UserName and Password enable HTTP basic authentication. Both or neither.
	UserName string
	Password string

	HTTPHeaders []HTTPHeader

	BuildResponseDocumentEnvelope bool
	BuildResponseDocumentBody     bool
	PrintRequestAndResponse       bool
}

// Validate checks required fields and cross-field rules. It reports the first
// offending field.
func (p *Parameters) Validate() error {
	required := []struct {
		field, value string
	}{
		{ParamEnvelope, p.Envelope},
		{ParamEndpointAddress, p.EndpointAddress},
		{ParamServiceName, p.ServiceName},
		{ParamPortName, p.PortName},
		{ParamBinding, string(p.Binding)},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return configErr(r.field, "is required")
		}
	}

	u, err := url.Parse(p.EndpointAddress)
	if err != nil {
		return configErr(ParamEndpointAddress, "%v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return configErr(ParamEndpointAddress, "must be an absolute http or https URL, got %q", p.EndpointAddress)
	}

	if _, err := ParseBinding(string(p.Binding)); err != nil {
		return configErr(ParamBinding, "%v", err)
	}

	if (p.UserName == "") != (p.Password == "") {
		if p.UserName == "" {
			return configErr(ParamUserName, "must be set when %s is set", ParamPassword)
		}
		return configErr(ParamPassword, "must be set when %s is set", ParamUserName)
	}

	return validateHeaders(p.HTTPHeaders)
}

func validateHeaders(headers []HTTPHeader) error {
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		if h.Name == "" {
			return configErr(ParamHTTPHeaders, "entry %d has an empty name", i)
		}
		if !httpguts.ValidHeaderFieldName(h.Name) {
			return configErr(ParamHTTPHeaders, "entry %d: invalid header name %q", i, h.Name)
		}
		key := http.CanonicalHeaderKey(h.Name)
		if prev, ok := seen[key]; ok {
			return configErr(ParamHTTPHeaders, "entry %d: duplicate header %q (first at entry %d)", i, h.Name, prev)
		}
		seen[key] = i
		if len(h.Values) == 0 {
			return configErr(ParamHTTPHeaders, "header %q has no values", h.Name)
		}
		for _, v := range h.Values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return configErr(ParamHTTPHeaders, "header %q has an invalid value %q", h.Name, v)
			}
		}
	}
	return nil
}

// ParametersFromMap converts the engine's loosely typed mapping into
// Parameters. Only shape errors are reported here; call Validate for the
// content rules.
func ParametersFromMap(in map[string]any) (*Parameters, error) {
	p := &Parameters{}
	strs := []struct {
		key string
		dst *string
	}{
		{ParamEnvelope, &p.Envelope},
		{ParamEndpointAddress, &p.EndpointAddress},
		{ParamServiceName, &p.ServiceName},
		{ParamPortName, &p.PortName},
		{ParamServiceNS, &p.ServiceNS},
		{ParamSOAPAction, &p.SOAPAction},
		{ParamUserName, &p.UserName},
		{ParamPassword, &p.Password},
	}
	for _, s := range strs {
		v, err := stringParam(in, s.key)
		if err != nil {
			return nil, err
		}
		*s.dst = v
	}

	binding, err := stringParam(in, ParamBinding)
	if err != nil {
		return nil, err
	}
	if b, err := ParseBinding(binding); err == nil {
		p.Binding = b
	} else {
		// Left as given so Validate reports it.
		p.Binding = Binding(binding)
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{ParamBuildResponseDocumentEnvelope, &p.BuildResponseDocumentEnvelope},
		{ParamBuildResponseDocumentBody, &p.BuildResponseDocumentBody},
		{ParamPrintRequestAndResponse, &p.PrintRequestAndResponse},
	}
	for _, b := range bools {
		v, err := boolParam(in, b.key)
		if err != nil {
			return nil, err
		}
		*b.dst = v
	}

	p.HTTPHeaders, err = headersParam(in[ParamHTTPHeaders])
	if err != nil {
		return nil, err
	}
	return p, nil
}

func stringParam(in map[string]any, key string) (string, error) {
	switch v := in[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", configErr(key, "expected a string, got %T", v)
	}
}

func boolParam(in map[string]any, key string) (bool, error) {
	switch v := in[key].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, configErr(key, "expected a boolean, got %q", v)
		}
		return b, nil
	default:
		return false, configErr(key, "expected a boolean, got %T", v)
	}
}

func headersParam(raw any) ([]HTTPHeader, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []HTTPHeader:
		return v, nil
	case []any:
		headers := make([]HTTPHeader, 0, len(v))
		for i, row := range v {
			h, err := headerRow(i, row)
			if err != nil {
				return nil, err
			}
			headers = append(headers, h)
		}
		return headers, nil
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		headers := make([]HTTPHeader, 0, len(v))
		for _, name := range names {
			values, err := headerValues(name, v[name])
			if err != nil {
				return nil, err
			}
			headers = append(headers, HTTPHeader{Name: name, Values: values})
		}
		return headers, nil
	case map[string][]string:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		headers := make([]HTTPHeader, 0, len(v))
		for _, name := range names {
			headers = append(headers, HTTPHeader{Name: name, Values: v[name]})
		}
		return headers, nil
	default:
		return nil, configErr(ParamHTTPHeaders, "expected a list of [name, values] rows, got %T", v)
	}
}

func headerRow(i int, row any) (HTTPHeader, error) {
	var cells []any
	switch r := row.(type) {
	case []any:
		cells = r
	case []string:
		for _, c := range r {
			cells = append(cells, c)
		}
	default:
		return HTTPHeader{}, configErr(ParamHTTPHeaders, "entry %d: expected a [name, values] row, got %T", i, row)
	}
	if len(cells) != 2 {
		return HTTPHeader{}, configErr(ParamHTTPHeaders, "entry %d: expected 2 cells, got %d", i, len(cells))
	}
	name, ok := cells[0].(string)
	if !ok {
		return HTTPHeader{}, configErr(ParamHTTPHeaders, "entry %d: header name must be a string, got %T", i, cells[0])
	}
	values, err := headerValues(name, cells[1])
	if err != nil {
		return HTTPHeader{}, err
	}
	return HTTPHeader{Name: name, Values: values}, nil
}

func headerValues(name string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := scalarString(item)
			if !ok {
				return nil, configErr(ParamHTTPHeaders, "header %q: value must be a string, got %T", name, item)
			}
			values = append(values, s)
		}
		return values, nil
	default:
		if s, ok := scalarString(raw); ok {
			return []string{s}, nil
		}
		return nil, configErr(ParamHTTPHeaders, "header %q: values must be a list of strings, got %T", name, raw)
	}
}

// scalarString renders a string, number or boolean header value. Numbers are
// written in plain decimal so JSON-decoded float64 millis stay parseable.
func scalarString(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, true
	case bool:
		return strconv.FormatBool(n), true
	case int:
		return strconv.Itoa(n), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}
