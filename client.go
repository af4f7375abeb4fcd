// Package soap implements a SOAP web-service connector: it validates a set of
// connector parameters, posts the caller's envelope to the endpoint with the
// configured binding, credentials, HTTP headers and timeouts, and returns the
// response envelope (or its body) as an XML document.
package soap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

var (
	// ErrUnsupportedContentType is returned if we encounter a non-supported content type while querying
	ErrUnsupportedContentType = errors.New("unsupported content-type in response")
)

const (
	// DefaultReadTimeoutHeader is the reserved header key that sets the read timeout in milliseconds.
	DefaultReadTimeoutHeader = "com.sun.xml.ws.request.timeout"
	// DefaultConnectTimeoutHeader is the reserved header key that sets the connect timeout in milliseconds.
	DefaultConnectTimeoutHeader = "com.sun.xml.ws.connect.timeout"
)

// HTTPClient is a client which can make HTTP requests
// An example implementation is net/http.Client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type options struct {
	client               HTTPClient
	logger               *slog.Logger
	userAgent            string
	readTimeoutHeader    string
	connectTimeoutHeader string
	readTimeout          time.Duration
	connectTimeout       time.Duration
	tlsHandshakeTimeout  time.Duration
}

var defaultOptions = options{
	userAgent:            "soapconnector/1.0",
	readTimeoutHeader:    DefaultReadTimeoutHeader,
	connectTimeoutHeader: DefaultConnectTimeoutHeader,
	connectTimeout:       30 * time.Second,
	tlsHandshakeTimeout:  15 * time.Second,
}

// A Option sets options such as the HTTP client, logger or reserved header keys.
type Option func(*options)

// WithHTTPClient is an Option to set the HTTP client to use.
// The connect timeout header only takes effect with the default client.
func WithHTTPClient(c HTTPClient) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithLogger is an Option to set the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithUserAgent is an Option to set User-Agent header value
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

// WithReadTimeoutHeader changes the reserved header key read as the read timeout.
func WithReadTimeoutHeader(key string) Option {
	return func(o *options) {
		o.readTimeoutHeader = key
	}
}

// WithConnectTimeoutHeader changes the reserved header key read as the connect timeout.
func WithConnectTimeoutHeader(key string) Option {
	return func(o *options) {
		o.connectTimeoutHeader = key
	}
}

// WithReadTimeout sets the read timeout used when no reserved header overrides it.
// Zero means no limit beyond the caller's context.
func WithReadTimeout(t time.Duration) Option {
	return func(o *options) {
		o.readTimeout = t
	}
}

// WithConnectTimeout sets the dial timeout used when no reserved header overrides it.
func WithConnectTimeout(t time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = t
	}
}

type connectTimeoutKey struct{}

// dialTimeout returns the connect timeout carried by ctx, or def when the call
// did not set one. Zero means no dial timeout.
func dialTimeout(ctx context.Context, def time.Duration) time.Duration {
	if t, ok := ctx.Value(connectTimeoutKey{}).(time.Duration); ok {
		return t
	}
	return def
}

func makeDefaultClient(opts *options) HTTPClient {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout(ctx, opts.connectTimeout)}
			return d.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout:   opts.tlsHandshakeTimeout,
		ExpectContinueTimeout: time.Second * 2,
	}
	return &http.Client{Transport: tr}
}

// Client invokes SOAP endpoints. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	opts *options
	http HTTPClient
}

// NewClient creates a new Client.
func NewClient(opt ...Option) *Client {
	opts := defaultOptions
	for _, o := range opt {
		o(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	client := opts.client
	if client == nil {
		client = makeDefaultClient(&opts)
	}
	return &Client{
		opts: &opts,
		http: client,
	}
}

// Validate runs every check Invoke performs before touching the network,
// including the reserved timeout headers.
func (c *Client) Validate(params *Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	_, err := c.newInvocation(params)
	return err
}

// Invoke performs one SOAP call. It returns either a Result or an error, never
// both: a *ConfigurationError if the parameters are rejected (nothing is sent),
// otherwise an *InvocationError. There are no retries.
func (c *Client) Invoke(ctx context.Context, params *Parameters) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	inv, err := c.newInvocation(params)
	if err != nil {
		return nil, err
	}
	log := c.opts.logger.With("invocation", inv.id, "service", inv.service, "endpoint", inv.endpoint)
	if params.BuildResponseDocumentEnvelope && params.BuildResponseDocumentBody {
		log.Warn("both response document flags set, sourceResponse will hold the envelope")
	}

	if inv.connectTimeout != nil {
		ctx = context.WithValue(ctx, connectTimeoutKey{}, *inv.connectTimeout)
	}
	if inv.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.readTimeout)
		defer cancel()
	}

	req, err := inv.httpRequest(ctx, c.opts.userAgent)
	if err != nil {
		return nil, newInvocationError(KindTransport, inv.endpoint, "building request: %v", err)
	}
	if params.PrintRequestAndResponse {
		logRequest(log, req, params.Envelope)
	}

	log.Debug("invoking", "binding", string(inv.binding), "action", params.SOAPAction, "read_timeout", inv.readTimeout)
	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, c.failed(ctx, log, transportError(inv.endpoint, err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		ie := transportError(inv.endpoint, err)
		ie.StatusCode = httpResp.StatusCode
		return nil, c.failed(ctx, log, ie)
	}
	if params.PrintRequestAndResponse {
		logResponse(log, httpResp, payload)
	}

	result, ie := inv.decodeResponse(httpResp, payload)
	if ie != nil {
		return nil, c.failed(ctx, log, ie)
	}
	result.Duration = time.Since(start)
	log.Debug("invocation complete", "status", httpResp.StatusCode, "duration", result.Duration)
	return result, nil
}

func (c *Client) failed(ctx context.Context, log *slog.Logger, ie *InvocationError) error {
	if ie.Kind == KindTransport && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ie.Kind = KindTimeout
	}
	log.Debug("invocation failed", "kind", ie.Kind.String(), "status", ie.StatusCode, "error", ie.msg)
	return ie
}
