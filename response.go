package soap

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Output keys of the connector result mapping.
const (
	OutputSourceResponse           = "sourceResponse"
	OutputResponseDocumentEnvelope = "responseDocumentEnvelope"
	OutputResponseDocumentBody     = "responseDocumentBody"
)

// Result contains the outcome of a successful invocation.
type Result struct {
	// SourceResponse is the full envelope, or only the body payload when
	// BuildResponseDocumentBody is set without BuildResponseDocumentEnvelope.
	SourceResponse *Document
	// ResponseEnvelope is set when BuildResponseDocumentEnvelope is set.
	ResponseEnvelope *Document
	// ResponseBody is set when BuildResponseDocumentBody is set.
	ResponseBody *Document

	InvocationID string
	StatusCode   int
	Duration     time.Duration
}

// Outputs returns the result as the connector's output mapping.
func (r *Result) Outputs() map[string]any {
	out := map[string]any{
		OutputSourceResponse: r.SourceResponse,
	}
	if r.ResponseEnvelope != nil {
		out[OutputResponseDocumentEnvelope] = r.ResponseEnvelope
	}
	if r.ResponseBody != nil {
		out[OutputResponseDocumentBody] = r.ResponseBody
	}
	return out
}

const maxErrorSnippet = 512

func snippet(payload []byte) string {
	s := string(bytes.TrimSpace(payload))
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet] + "..."
	}
	return s
}

func isXMLMediaType(mediaType string) bool {
	switch mediaType {
	case "text/xml", "application/xml", "application/soap+xml":
		return true
	}
	return strings.HasSuffix(mediaType, "+xml")
}

// decodeResponse maps an HTTP response onto a Result or an InvocationError.
func (inv *invocation) decodeResponse(resp *http.Response, payload []byte) (*Result, *InvocationError) {
	failed := resp.StatusCode >= http.StatusBadRequest
	fail := func(kind Kind, format string, args ...any) *InvocationError {
		ie := newInvocationError(kind, inv.endpoint, format, args...)
		ie.StatusCode = resp.StatusCode
		return ie
	}
	statusErr := func() *InvocationError {
		return fail(KindHTTPStatus, "%s: %s", resp.Status, snippet(payload))
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		if failed {
			return nil, statusErr()
		}
		return nil, fail(KindDecode, "empty response (status %s)", resp.Status)
	}

	mediaType, mediaParams := "text/xml", map[string]string(nil)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		var err error
		mediaType, mediaParams, err = mime.ParseMediaType(ct)
		if err != nil {
			if failed {
				return nil, statusErr()
			}
			return nil, fail(KindDecode, "content-type %q: %v", ct, err)
		}
	}

	var (
		tree *etree.Document
		data = payload
	)
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		// Here we handle any SOAP responses embedded in a MIME multipart response.
		var err error
		tree, err = newXopDecoder(bytes.NewReader(payload), mediaParams).decode()
		if err != nil {
			if failed {
				return nil, statusErr()
			}
			return nil, fail(KindDecode, "multipart response: %v", err)
		}
		if data, err = tree.WriteToBytes(); err != nil {
			return nil, fail(KindDecode, "%v", err)
		}
	case isXMLMediaType(mediaType):
		tree = etree.NewDocument()
		if err := tree.ReadFromBytes(payload); err != nil {
			if failed {
				return nil, statusErr()
			}
			return nil, fail(KindDecode, "malformed XML: %v", err)
		}
	default:
		if failed {
			return nil, statusErr()
		}
		return nil, fail(KindDecode, "%v: %s", ErrUnsupportedContentType, mediaType)
	}

	parts, err := splitEnvelope(tree)
	if err != nil {
		if failed {
			return nil, statusErr()
		}
		return nil, fail(KindDecode, "%v", err)
	}

	if faultElem := parts.fault(); faultElem != nil {
		raw, err := detach(faultElem).WriteToBytes()
		if err != nil {
			return nil, fail(KindDecode, "%v", err)
		}
		f, err := parseFault(raw)
		if err != nil {
			return nil, fail(KindDecode, "malformed fault: %v", err)
		}
		ie := fail(KindFault, "%s", f.Error())
		ie.Fault = f
		return nil, ie
	}
	if failed {
		return nil, statusErr()
	}

	p := inv.params
	result := &Result{
		InvocationID: inv.id,
		StatusCode:   resp.StatusCode,
	}
	envelope := newDocument(data)
	bodyAsSource := p.BuildResponseDocumentBody && !p.BuildResponseDocumentEnvelope

	result.SourceResponse = envelope
	if p.BuildResponseDocumentEnvelope {
		result.ResponseEnvelope = envelope
	}
	if p.BuildResponseDocumentBody {
		content, err := parts.bodyContent()
		if err != nil {
			return nil, fail(KindDecode, "%v", err)
		}
		body, err := documentFromTree(detach(content))
		if err != nil {
			return nil, fail(KindDecode, "%v", err)
		}
		result.ResponseBody = body
		if bodyAsSource {
			result.SourceResponse = body
		}
	}
	return result, nil
}
