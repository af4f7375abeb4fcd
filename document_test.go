package soap

import (
	"io"
	"testing"

	"github.com/beevik/etree"
	"github.com/m29h/xml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentAccessors(t *testing.T) {
	raw := sayHiResponse("Rodrigue")
	doc := newDocument([]byte(raw))

	assert.Equal(t, raw, doc.String())

	b := doc.Bytes()
	assert.Equal(t, raw, string(b))
	b[0] = 'X'
	assert.Equal(t, raw, doc.String(), "Bytes must return a copy")

	streamed, err := io.ReadAll(doc.Reader())
	require.NoError(t, err)
	assert.Equal(t, raw, string(streamed))
}

func TestDocumentTree(t *testing.T) {
	doc := newDocument([]byte(sayHiResponse("Rodrigue")))

	tree, err := doc.Tree()
	require.NoError(t, err)
	ret := tree.FindElement("//return")
	require.NotNil(t, ret)
	assert.Equal(t, "Hello Rodrigue", ret.Text())

	// Changes to a returned tree do not leak into later calls.
	ret.SetText("changed")
	again, err := doc.Tree()
	require.NoError(t, err)
	assert.Equal(t, "Hello Rodrigue", again.FindElement("//return").Text())
}

func TestDocumentTreeMalformed(t *testing.T) {
	doc := newDocument([]byte("<open attr=></open>"))
	_, err := doc.Tree()
	assert.Error(t, err)

	// The parse error is sticky.
	_, err = doc.Tree()
	assert.Error(t, err)
}

func TestDocumentDecode(t *testing.T) {
	type helloReply struct {
		XMLName xml.Name `xml:"http://hello.cxf.ws.connectors.bonitasoft.org/ sayHiResponse"`
		Return  string   `xml:"return"`
	}

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromString(`<ns2:sayHiResponse xmlns:ns2="`+helloNS+`"><return>Hello you</return></ns2:sayHiResponse>`))
	doc, err := documentFromTree(tree)
	require.NoError(t, err)

	var v helloReply
	require.NoError(t, doc.Decode(&v))
	assert.Equal(t, "Hello you", v.Return)
}
