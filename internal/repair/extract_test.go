package repair

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestPriceChainPrefersNextData(t *testing.T) {
	doc := docFrom(t, `<html><head>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"advert":{"price":{"value":19900}}}}}</script>
<script id="listing-json-ld" type="application/ld+json">{"offers":{"price":"11111"}}</script>
</head></html>`)

	assert.Equal(t, "19900", runExtractors(doc, priceExtractors))
}

func TestPriceChainFallsBackToJSONLD(t *testing.T) {
	doc := docFrom(t, `<html><head>
<script id="listing-json-ld" type="application/ld+json">{"offers":{"price":"17250","priceCurrency":"EUR"}}</script>
</head></html>`)

	assert.Equal(t, "17250", runExtractors(doc, priceExtractors))
}

func TestPriceChainHandlesNestedDataAdvert(t *testing.T) {
	doc := docFrom(t, `<html><head>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"data":{"advert":{"price":{"value":"21 400"}}}}}}</script>
</head></html>`)

	assert.Equal(t, "21 400", runExtractors(doc, priceExtractors))
}

func TestImageChainOrder(t *testing.T) {
	// og:image beats ld+json and gallery when next data has no photos.
	doc := docFrom(t, `<html><head>
<meta property="og:image" content="https://img/og.jpg">
<script id="listing-json-ld" type="application/ld+json">{"image":["https://img/ld.jpg"]}</script>
</head><body><img class="css-1bmvjcs" src="https://img/gallery.jpg"></body></html>`)
	assert.Equal(t, "https://img/og.jpg", runExtractors(doc, imageExtractors))

	// Without og:image the ld+json array is next.
	doc = docFrom(t, `<html><head>
<script id="listing-json-ld" type="application/ld+json">{"image":["https://img/ld.jpg"]}</script>
</head><body><img class="css-1bmvjcs" src="https://img/gallery.jpg"></body></html>`)
	assert.Equal(t, "https://img/ld.jpg", runExtractors(doc, imageExtractors))

	// Gallery markup is the last resort.
	doc = docFrom(t, `<html><body><img class="css-1bmvjcs" src="https://img/gallery.jpg"></body></html>`)
	assert.Equal(t, "https://img/gallery.jpg", runExtractors(doc, imageExtractors))
}

func TestImageChainEmpty(t *testing.T) {
	doc := docFrom(t, `<html><body><p>no images here</p></body></html>`)
	assert.Empty(t, runExtractors(doc, imageExtractors))
}
