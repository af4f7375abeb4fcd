package soap

import (
	"testing"

	"github.com/m29h/xml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type faultDetailExampleField struct {
	XMLName xml.Name `xml:"DetailField"`
	Attr1   string   `xml:"attr1,attr"`
	Attr2   int32    `xml:"attr2,attr"`
	Value   string   `xml:",chardata"`
}

type faultDetailExample struct {
	XMLName xml.Name                `xml:"DetailExample"`
	Attr1   int32                   `xml:"attr1,attr"`
	Field1  faultDetailExampleField `xml:"DetailField"`
}

type faultDecodeTest struct {
	name        string
	in          string
	out         Fault
	faultErrStr string
	wantErr     bool
}

var faultDecodeTests = []faultDecodeTest{
	{
		name: "soap 1.1",
		in: `<?xml version="1.0" encoding="UTF-8"?>
		<Fault xmlns="http://schemas.xmlsoap.org/soap/envelope/">
			<faultcode>FaultCodeValue</faultcode>
			<faultstring>FaultStringValue</faultstring>
			<faultactor>FaultActorValue</faultactor>
		</Fault>`,
		out: Fault{
			Code:   "FaultCodeValue",
			String: "FaultStringValue",
			Actor:  "FaultActorValue",
		},
		faultErrStr: "soap fault: actor=FaultActorValue, code=FaultCodeValue, string=FaultStringValue",
	},
	{
		name: "soap 1.1 without actor",
		in: `<soap:Fault xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
			<faultcode>soap:Client</faultcode>
			<faultstring>bad request</faultstring>
		</soap:Fault>`,
		out: Fault{
			Code:   "soap:Client",
			String: "bad request",
		},
		faultErrStr: "soap fault: code=soap:Client, string=bad request",
	},
	{
		name: "soap 1.2",
		in: `<env:Fault xmlns:env="http://www.w3.org/2003/05/soap-envelope">
			<env:Code>
				<env:Value>env:Sender</env:Value>
				<env:Subcode><env:Value>m:MessageTimeout</env:Value></env:Subcode>
			</env:Code>
			<env:Reason><env:Text xml:lang="en">Sender Timeout</env:Text></env:Reason>
			<env:Role>http://example.org/role</env:Role>
		</env:Fault>`,
		out: Fault{
			Code:   "env:Sender/m:MessageTimeout",
			String: "Sender Timeout",
			Actor:  "http://example.org/role",
		},
		faultErrStr: "soap fault: actor=http://example.org/role, code=env:Sender/m:MessageTimeout, string=Sender Timeout",
	},
	{
		name: "malformed detail",
		in: `<?xml version="1.0" encoding="UTF-8"?>
		<Fault xmlns="http://schemas.xmlsoap.org/soap/envelope/">
			<faultcode>FaultCodeValue</faultcode>
			<detail>
				<DetailExample attr1="10
					<DetailField attr1="test" attr2="11">This is a test string</DetailField>
				</DetailExample>
			</detail>
		</Fault>`,
		wantErr: true,
	},
}

func TestFaultDecode(t *testing.T) {
	for _, tt := range faultDecodeTests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFault([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			f.Detail = nil
			assert.Equal(t, tt.out, *f)
			assert.Equal(t, tt.faultErrStr, f.Error())
			assert.ErrorIs(t, f, ErrSoapFault)
		})
	}
}

func TestFaultDecodeDetail(t *testing.T) {
	in := `<Fault xmlns="http://schemas.xmlsoap.org/soap/envelope/">
			<faultcode>FaultCodeValue</faultcode>
			<faultstring>FaultStringValue</faultstring>
			<detail>
				<DetailExample attr1="10">
					<DetailField attr1="test" attr2="11">This is a test string</DetailField>
				</DetailExample>
			</detail>
		</Fault>`

	f, err := parseFault([]byte(in))
	require.NoError(t, err)

	var detail faultDetailExample
	require.NoError(t, f.DecodeDetail(&detail))
	assert.Equal(t, int32(10), detail.Attr1)
	assert.Equal(t, "test", detail.Field1.Attr1)
	assert.Equal(t, int32(11), detail.Field1.Attr2)
	assert.Equal(t, "This is a test string", detail.Field1.Value)
}

func TestFaultDecodeEmptyDetail(t *testing.T) {
	f := &Fault{Detail: []byte("\n\t\t\t")}
	var detail faultDetailExample
	assert.NoError(t, f.DecodeDetail(&detail))
	assert.Zero(t, detail.Attr1)
}

func TestParseFaultWithoutElement(t *testing.T) {
	_, err := parseFault([]byte("   "))
	assert.ErrorIs(t, err, ErrDecode)
}
