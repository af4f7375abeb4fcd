package soap

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// invocation is everything needed for one call, resolved from Parameters.
// It lives for the duration of Invoke only.
type invocation struct {
	id       string
	service  string
	endpoint string
	params   *Parameters
	binding  Binding

	headers     []HTTPHeader
	readTimeout time.Duration
	// connectTimeout is nil unless a reserved header set it; zero disables the dial timeout.
	connectTimeout *time.Duration
}

func (c *Client) newInvocation(p *Parameters) (*invocation, error) {
	binding, err := ParseBinding(string(p.Binding))
	if err != nil {
		return nil, configErr(ParamBinding, "%v", err)
	}
	inv := &invocation{
		binding:     binding,
		id:          uuid.New().String(),
		service:     serviceIdentity(p),
		endpoint:    p.EndpointAddress,
		params:      p,
		readTimeout: c.opts.readTimeout,
	}
	if u, err := url.Parse(p.EndpointAddress); err == nil {
		inv.endpoint = u.Redacted()
	}

	for _, h := range p.HTTPHeaders {
		switch {
		case c.opts.readTimeoutHeader != "" && strings.EqualFold(h.Name, c.opts.readTimeoutHeader):
			t, err := headerMillis(h)
			if err != nil {
				return nil, err
			}
			inv.readTimeout = t
		case c.opts.connectTimeoutHeader != "" && strings.EqualFold(h.Name, c.opts.connectTimeoutHeader):
			t, err := headerMillis(h)
			if err != nil {
				return nil, err
			}
			inv.connectTimeout = &t
		default:
			inv.headers = append(inv.headers, h)
		}
	}
	return inv, nil
}

func headerMillis(h HTTPHeader) (time.Duration, error) {
	if len(h.Values) != 1 {
		return 0, configErr(ParamHTTPHeaders, "header %q expects exactly one value, got %d", h.Name, len(h.Values))
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(h.Values[0]), 10, 64)
	if err != nil || ms < 0 {
		return 0, configErr(ParamHTTPHeaders, "header %q expects a non-negative number of milliseconds, got %q", h.Name, h.Values[0])
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// serviceIdentity renders the target as {namespace}service/port.
func serviceIdentity(p *Parameters) string {
	id := p.ServiceName + "/" + p.PortName
	if p.ServiceNS != "" {
		id = "{" + p.ServiceNS + "}" + id
	}
	return id
}

func (inv *invocation) httpRequest(ctx context.Context, userAgent string) (*http.Request, error) {
	p := inv.params
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.EndpointAddress, strings.NewReader(p.Envelope))
	if err != nil {
		return nil, err
	}

	if inv.binding.SOAP12() {
		ct := "application/soap+xml; charset=utf-8"
		if p.SOAPAction != "" {
			ct += "; action=" + strconv.Quote(p.SOAPAction)
		}
		req.Header.Set("Content-Type", ct)
	} else {
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", strconv.Quote(p.SOAPAction))
	}
	accept := "text/xml, application/soap+xml, application/xml"
	if inv.binding.MTOM() {
		accept += ", multipart/related"
	}
	req.Header.Set("Accept", accept)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	// Custom headers replace the defaults above.
	for _, h := range inv.headers {
		req.Header.Del(h.Name)
		for _, v := range h.Values {
			req.Header.Add(h.Name, v)
		}
	}

	if p.UserName != "" {
		req.SetBasicAuth(p.UserName, p.Password)
	}
	return req, nil
}

func logRequest(log *slog.Logger, req *http.Request, payload string) {
	header := req.Header.Clone()
	if header.Get("Authorization") != "" {
		header.Set("Authorization", "[REDACTED]")
	}
	log.Info("soap request", "method", req.Method, "url", req.URL.Redacted(), "header", header, "payload", payload)
}

func logResponse(log *slog.Logger, resp *http.Response, payload []byte) {
	log.Info("soap response", "status", resp.Status, "header", resp.Header, "payload", string(payload))
}
