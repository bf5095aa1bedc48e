package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adamHomeSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Adam Home Feed</title>
    <item>
      <title><![CDATA[ Bath Towel ]]></title>
      <link>https://vendor.example/p/towel</link>
      <description><![CDATA[ <p>Soft towel</p> ]]></description>
      <image_link>https://vendor.example/img/towel.jpg</image_link>
      <model_number>TW-100</model_number>
      <price_with_vat>12.30</price_with_vat>
      <price_without_vat>9.92</price_without_vat>
      <size>70x140</size>
      <category><![CDATA[ Bathroom ]]></category>
      <availability><![CDATA[ In Stock ]]></availability>
      <option>
        <option_name>ΧΡΩΜΑ</option_name>
        <option_value><option_value_name>Red</option_value_name></option_value>
        <option_value><option_value_name>Blue</option_value_name></option_value>
      </option>
    </item>
    <item>
      <title>Sold Out Rug</title>
      <link>https://vendor.example/p/rug</link>
      <description>A rug</description>
      <image_link>https://vendor.example/img/rug.jpg</image_link>
      <model_number>RG-200</model_number>
      <price_with_vat>80.00</price_with_vat>
      <price_without_vat>64.52</price_without_vat>
      <size></size>
      <category>Rugs</category>
      <availability>Out of stock</availability>
    </item>
    <item>
      <title>Curtain</title>
      <link>https://vendor.example/p/curtain</link>
      <description>Plain curtain</description>
      <image_link>https://vendor.example/img/curtain.jpg</image_link>
      <model_number>CU-300</model_number>
      <price_with_vat>25.50</price_with_vat>
      <price_without_vat>20.56</price_without_vat>
      <size>140x260</size>
      <category>Curtains</category>
      <availability>Available soon</availability>
    </item>
  </channel>
</rss>`

func serveXML(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestAdamHomeParser_FetchAndParse(t *testing.T) {
	srv := serveXML(t, adamHomeSample, http.StatusOK)

	products, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.NoError(t, err)

	// The out-of-stock rug is dropped; "Available soon" passes the
	// substring filter.
	require.Len(t, products, 2)

	towel := products[0]
	assert.Equal(t, "Bath Towel", towel.Title)
	assert.Equal(t, "<p>Soft towel</p>", towel.Description)
	assert.Equal(t, "TW-100", towel.Model)
	assert.Equal(t, "https://vendor.example/img/towel.jpg", towel.Image)
	assert.Equal(t, "Red, Blue", towel.Colors)
	assert.Equal(t, "70x140", towel.Size)
	assert.Equal(t, "In Stock", towel.Stock)
	assert.Equal(t, "Bathroom", towel.Category)
	assert.True(t, towel.PriceWithVAT.Equal(decimal.RequireFromString("12.30")))
	assert.True(t, towel.PriceWithoutVAT.Equal(decimal.RequireFromString("9.92")))

	curtain := products[1]
	assert.Equal(t, "CU-300", curtain.Model)
	assert.Equal(t, "N/A", curtain.Colors, "no color option defaults to N/A")
}

func TestAdamHomeParser_SingleItemFeed(t *testing.T) {
	const single = `<rss><channel><item>
		<title>Only One</title>
		<model_number>ONE-1</model_number>
		<availability>in stock</availability>
		<price_with_vat>5.00</price_with_vat>
		<price_without_vat>4.03</price_without_vat>
	</item></channel></rss>`

	srv := serveXML(t, single, http.StatusOK)

	products, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "ONE-1", products[0].Model)
}

func TestAdamHomeParser_EscapedCDATAWrapper(t *testing.T) {
	// Some vendors escape the CDATA markers into the text itself.
	const escaped = `<rss><channel><item>
		<title>&lt;![CDATA[ Wrapped Title ]]&gt;</title>
		<model_number>WR-1</model_number>
		<availability>available</availability>
	</item></channel></rss>`

	srv := serveXML(t, escaped, http.StatusOK)

	products, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Wrapped Title", products[0].Title)
}

func TestAdamHomeParser_FetchError(t *testing.T) {
	srv := serveXML(t, "nope", http.StatusServiceUnavailable)

	_, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
}

func TestAdamHomeParser_MalformedXML(t *testing.T) {
	const broken = `<rss>
<channel>
<item></wrong>
</channel>
</rss>`

	srv := serveXML(t, broken, http.StatusOK)

	_, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, 3, valErr.Line)
}

func TestAdamHomeParser_UnexpectedRoot(t *testing.T) {
	srv := serveXML(t, `<catalog><item/></catalog>`, http.StatusOK)

	_, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestAdamHomeParser_MissingChannel(t *testing.T) {
	srv := serveXML(t, `<rss version="2.0"></rss>`, http.StatusOK)

	_, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorContains(t, err, "channel element missing")
}

func TestAdamHomeParser_EmptyChannel(t *testing.T) {
	srv := serveXML(t, `<rss><channel><title>empty</title></channel></rss>`, http.StatusOK)

	products, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestAdamHomeParser_NetworkError(t *testing.T) {
	srv := serveXML(t, "", http.StatusOK)
	srv.Close()

	_, err := NewAdamHome().FetchAndParse(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	assert.False(t, errors.As(err, &fetchErr), "transport errors are not FetchError")
}
