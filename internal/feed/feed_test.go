package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParser(t *testing.T) {
	tests := []struct {
		name       string
		parserType string
		want       any
		wantErr    bool
	}{
		{name: "adamhome", parserType: "adamhome", want: &AdamHomeParser{}},
		{name: "homeline", parserType: "homeline", want: &HomelineParser{}},
		{name: "case insensitive", parserType: "AdamHome", want: &AdamHomeParser{}},
		{name: "uppercase", parserType: "HOMELINE", want: &HomelineParser{}},
		{name: "unknown", parserType: "megastore", wantErr: true},
		{name: "empty", parserType: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewParser(tt.parserType)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownParserType)
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestCleanCDATA(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "whitespace trimmed", in: "  hello \n", want: "hello"},
		{name: "cdata wrapper", in: "<![CDATA[hello]]>", want: "hello"},
		{name: "cdata with padding", in: "  <![CDATA[  hello  ]]>  ", want: "hello"},
		{name: "multiline cdata", in: "<![CDATA[line1\nline2]]>", want: "line1\nline2"},
		{name: "empty", in: "", want: ""},
		{name: "cdata empty", in: "<![CDATA[]]>", want: ""},
		{name: "inner markup kept", in: "<![CDATA[<b>bold</b>]]>", want: "<b>bold</b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanCDATA(tt.in)
			assert.Equal(t, tt.want, got)

			// Stripping is idempotent: a clean string comes back unchanged.
			assert.Equal(t, got, cleanCDATA(got))
		})
	}
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, "12.3", parsePrice("12.30").String())
	assert.Equal(t, "18.36", parsePrice("<![CDATA[18.36]]>").String())
	assert.True(t, parsePrice("").IsZero())
	assert.True(t, parsePrice("n/a").IsZero())
	assert.True(t, parsePrice("-5").Equal(parsePrice(" -5 ")))
}

func TestValidateXML(t *testing.T) {
	require.NoError(t, validateXML([]byte(`<a><b>text</b></a>`)))

	err := validateXML([]byte("<a>\n<b></c>\n</a>"))
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, 2, valErr.Line)
}
