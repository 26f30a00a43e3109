package repair

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// An Extractor pulls one field out of a fetched detail page. Extractors
// run in order; the first non-empty result wins.
type Extractor func(doc *goquery.Document) string

// nextDataJSON returns the __NEXT_DATA__ payload of a page, or "".
func nextDataJSON(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
}

// listingJSONLD returns the listing's ld+json blob, or "". Autovit tags
// it with a dedicated id; other blobs on the page describe the site, not
// the ad.
func listingJSONLD(doc *goquery.Document) string {
	if s := strings.TrimSpace(doc.Find("script#listing-json-ld").First().Text()); s != "" {
		return s
	}
	return strings.TrimSpace(doc.Find(`script[type="application/ld+json"]`).First().Text())
}

// priceFromNextData reads the advert price out of the embedded Next.js
// state. Both page generations are tried.
func priceFromNextData(doc *goquery.Document) string {
	data := nextDataJSON(doc)
	if data == "" {
		return ""
	}
	for _, path := range []string{
		"props.pageProps.advert.price.value",
		"props.pageProps.data.advert.price.value",
	} {
		if v := gjson.Get(data, path); v.Exists() && v.String() != "" && v.String() != "0" {
			return v.String()
		}
	}
	return ""
}

// priceFromJSONLD reads offers.price from the listing's ld+json blob.
func priceFromJSONLD(doc *goquery.Document) string {
	data := listingJSONLD(doc)
	if data == "" {
		return ""
	}
	if v := gjson.Get(data, "offers.price"); v.Exists() && v.String() != "" && v.String() != "0" {
		return v.String()
	}
	return ""
}

// imageFromNextData reads the first gallery photo from the embedded
// Next.js state, preferring the larger renditions.
func imageFromNextData(doc *goquery.Document) string {
	data := nextDataJSON(doc)
	if data == "" {
		return ""
	}
	for _, root := range []string{
		"props.pageProps.advert.photos.0",
		"props.pageProps.data.advert.photos.0",
	} {
		photo := gjson.Get(data, root)
		if !photo.Exists() {
			continue
		}
		for _, key := range []string{"large", "medium", "src"} {
			if v := photo.Get(key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	return ""
}

// imageFromOGMeta reads the og:image meta tag.
func imageFromOGMeta(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// imageFromJSONLD reads the image field of the listing's ld+json blob.
func imageFromJSONLD(doc *goquery.Document) string {
	data := listingJSONLD(doc)
	if data == "" {
		return ""
	}
	v := gjson.Get(data, "image")
	if v.IsArray() {
		arr := v.Array()
		if len(arr) == 0 {
			return ""
		}
		return arr[0].String()
	}
	return v.String()
}

// imageFromGallery falls back to the detail-page gallery markup.
func imageFromGallery(doc *goquery.Document) string {
	for _, sel := range []string{"img.css-1bmvjcs", "div.swiper-zoom-container img", "div[data-testid=\"photo-gallery\"] img"} {
		img := doc.Find(sel).First()
		if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
			return strings.TrimSpace(src)
		}
		if srcset, ok := img.Attr("srcset"); ok && strings.TrimSpace(srcset) != "" {
			fields := strings.Fields(strings.Split(srcset, ",")[0])
			if len(fields) > 0 {
				return fields[0]
			}
		}
	}
	return ""
}

// priceExtractors and imageExtractors are ordered: embedded state first,
// structured metadata next, markup scraping last.
var (
	priceExtractors = []Extractor{priceFromNextData, priceFromJSONLD}
	imageExtractors = []Extractor{imageFromNextData, imageFromOGMeta, imageFromJSONLD, imageFromGallery}
)

func runExtractors(doc *goquery.Document, chain []Extractor) string {
	for _, ex := range chain {
		if v := ex(doc); v != "" {
			return v
		}
	}
	return ""
}
