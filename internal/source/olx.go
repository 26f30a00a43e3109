package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/catalog"
	"github.com/RobertM05/car-sniper/internal/model"
)

// OLX serves car ads under a generic free-text search; the query is a
// path segment and the numeric filters are bracketed query parameters.
type OLX struct {
	baseURL string
	client  *Client
}

// NewOLX creates the OLX adapter.
func NewOLX(baseURL string, client *Client) *OLX {
	return &OLX{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Name implements Source.
func (o *OLX) Name() string { return model.SourceOLX }

// searchURL builds the result-page URL for one page of a query.
func (o *OLX) searchURL(q model.SearchQuery, page int) string {
	token := catalog.NormalizeQueryToken(q.Make, q.Model)
	term := strings.ToLower(strings.TrimSpace(q.Make))
	if token != "" {
		term += "-" + token
	}

	params := url.Values{}
	if page > 1 {
		params.Set("page", fmt.Sprintf("%d", page))
	}
	if q.MinPrice > 0 {
		params.Set("search[filter_float_price:from]", fmt.Sprintf("%d", q.MinPrice))
	}
	if q.MaxPrice > 0 {
		params.Set("search[filter_float_price:to]", fmt.Sprintf("%d", q.MaxPrice))
	}
	if q.MinYear > 0 {
		params.Set("search[filter_float_year:from]", fmt.Sprintf("%d", q.MinYear))
	}
	if q.MaxYear > 0 {
		params.Set("search[filter_float_year:to]", fmt.Sprintf("%d", q.MaxYear))
	}

	u := fmt.Sprintf("%s/auto-masini-moto-ambarcatiuni/autoturisme/q-%s/", o.baseURL, url.PathEscape(term))
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// Fetch walks result pages until maxPages or an empty page.
func (o *OLX) Fetch(ctx context.Context, q model.SearchQuery, maxPages int) ([]model.RawListing, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	var out []model.RawListing
	for page := 1; page <= maxPages; page++ {
		pageURL := o.searchURL(q, page)
		body, err := o.client.GetPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, eris.Wrap(err, "olx: fetch first page")
			}
			zap.L().Warn("olx: page fetch failed, stopping pagination",
				zap.Int("page", page), zap.Error(err))
			break
		}

		listings, err := o.parseResults(body)
		if err != nil {
			return nil, err
		}
		if len(listings) == 0 {
			break
		}
		out = append(out, listings...)
	}
	return out, nil
}

// FetchDetail implements Source.
func (o *OLX) FetchDetail(ctx context.Context, link string) (*model.Detail, error) {
	return o.client.GetDetail(ctx, link)
}

func (o *OLX) parseResults(body string) ([]model.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "olx: parse results page")
	}

	var out []model.RawListing
	doc.Find(`div[data-cy="l-card"]`).Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h4").First().Text())
		if title == "" {
			title = strings.TrimSpace(card.Find("h6").First().Text())
		}
		price := strings.TrimSpace(card.Find(`p[data-testid="ad-price"]`).First().Text())
		if title == "" || isMonthlyRate(price) {
			return
		}

		href, _ := card.Find("a").First().Attr("href")
		link := o.absoluteURL(href)
		if link == "" {
			return
		}

		out = append(out, model.RawListing{
			Title:  title,
			Price:  price,
			Link:   link,
			Image:  cardImage(card),
			Source: model.SourceOLX,
		})
	})
	return out, nil
}

func (o *OLX) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return o.baseURL + href
}

// isMonthlyRate rejects financing offers priced per month; they are not
// purchase prices.
func isMonthlyRate(price string) bool {
	lower := strings.ToLower(price)
	return strings.Contains(lower, "rata") ||
		strings.Contains(lower, "/luna") ||
		strings.Contains(lower, "/lună")
}

// cardImage prefers the widest srcset candidate over the plain src,
// which on OLX cards is usually a low-resolution placeholder.
func cardImage(card *goquery.Selection) string {
	img := card.Find("img").First()
	if srcset, ok := img.Attr("srcset"); ok {
		if best := bestSrcsetCandidate(srcset); best != "" {
			return best
		}
	}
	src, _ := img.Attr("src")
	return strings.TrimSpace(src)
}
