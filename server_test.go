package soap

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beevik/etree"
)

const helloNS = "http://hello.cxf.ws.connectors.bonitasoft.org/"

func sayHiEnvelope(arg string) string {
	return `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:spr="` + helloNS + `">` +
		` <soapenv:Header/>` +
		` <soapenv:Body>` +
		`    <spr:sayHi>` +
		`       <arg0>` + arg + `</arg0>` +
		`    </spr:sayHi>` +
		` </soapenv:Body>` +
		`</soapenv:Envelope>`
}

func sayHiResponse(text string) string {
	return `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Body><ns2:sayHiResponse xmlns:ns2="` + helloNS + `"><return>Hello ` + text + `</return></ns2:sayHiResponse></soap:Body>` +
		`</soap:Envelope>`
}

func sayHi12Response(text string) string {
	return `<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope">` +
		`<env:Body><ns2:sayHiResponse xmlns:ns2="` + helloNS + `"><return>Hello ` + text + `</return></ns2:sayHiResponse></env:Body>` +
		`</env:Envelope>`
}

func faultResponse(code, msg string) string {
	return `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		`<soap:Fault><faultcode>` + code + `</faultcode><faultstring>` + msg + `</faultstring></soap:Fault>` +
		`</soap:Body></soap:Envelope>`
}

func fault12Response(code, msg string) string {
	return `<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope"><env:Body>` +
		`<env:Fault><env:Code><env:Value>` + code + `</env:Value></env:Code>` +
		`<env:Reason><env:Text xml:lang="en">` + msg + `</env:Text></env:Reason></env:Fault>` +
		`</env:Body></env:Envelope>`
}

// readArg0 returns the text of the arg0 element of a sayHi request.
func readArg0(r *http.Request) (string, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", err
	}
	arg := doc.FindElement("//arg0")
	if arg == nil {
		return "", fmt.Errorf("no arg0 in request")
	}
	return arg.Text(), nil
}

func writeXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// helloServer mimics the endpoints the connector is exercised against.
type helloServer struct {
	*httptest.Server
	hits atomic.Int64
	last atomic.Pointer[http.Request]
}

func newHelloServer(t *testing.T) *helloServer {
	t.Helper()
	s := &helloServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/HelloWorld", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "guest" || pass != "guest" {
			w.Header().Set("WWW-Authenticate", `Basic realm="hello"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		arg, err := readArg0(r)
		if err != nil {
			writeXML(w, http.StatusInternalServerError, faultResponse("soap:Client", err.Error()))
			return
		}
		writeXML(w, http.StatusOK, sayHiResponse(arg))
	})

	mux.HandleFunc("/HelloHeader", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("testName") != "testValue" {
			writeXML(w, http.StatusInternalServerError, faultResponse("soap:Client", "missing or wrong testName header"))
			return
		}
		arg, _ := readArg0(r)
		writeXML(w, http.StatusOK, sayHiResponse(arg))
	})

	mux.HandleFunc("/HelloTimeout", func(w http.ResponseWriter, r *http.Request) {
		arg, _ := readArg0(r)
		ms, _ := strconv.Atoi(arg)
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		writeXML(w, http.StatusOK, sayHiResponse(arg))
	})

	mux.HandleFunc("/Hello12", func(w http.ResponseWriter, r *http.Request) {
		arg, _ := readArg0(r)
		w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
		_, _ = io.WriteString(w, sayHi12Response(arg))
	})

	mux.HandleFunc("/Fault", func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, http.StatusInternalServerError, faultResponse("soap:Server", "boom"))
	})

	mux.HandleFunc("/Fault12", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, fault12Response("env:Receiver", "boom"))
	})

	mux.HandleFunc("/Html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><body>hello</body></html>")
	})

	mux.HandleFunc("/NotEnvelope", func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, http.StatusOK, "<hello>world</hello>")
	})

	mux.HandleFunc("/Empty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.last.Store(r)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// params returns guest credentials and both response documents enabled for path.
func (s *helloServer) params(path, arg string) *Parameters {
	return &Parameters{
		Envelope:                      sayHiEnvelope(arg),
		EndpointAddress:               s.URL + path,
		ServiceName:                   "HelloWorldImplService",
		PortName:                      "HelloWorldImplPort",
		ServiceNS:                     helloNS,
		Binding:                       SOAP11HTTP,
		UserName:                      "guest",
		Password:                      "guest",
		BuildResponseDocumentEnvelope: true,
		BuildResponseDocumentBody:     true,
	}
}
