package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/catalog"
	"github.com/RobertM05/car-sniper/internal/model"
)

// Autovit serves car ads under /autoturisme/{make}/{model} paths and
// embeds the result list as JSON-LD. The embedded data is parsed first;
// the HTML cards are only a fallback, because Autovit reshuffles its
// CSS classes far more often than its structured data.
type Autovit struct {
	baseURL string
	client  *Client
}

// NewAutovit creates the Autovit adapter.
func NewAutovit(baseURL string, client *Client) *Autovit {
	return &Autovit{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Name implements Source.
func (a *Autovit) Name() string { return model.SourceAutovit }

func (a *Autovit) searchURL(q model.SearchQuery, page int) string {
	path := a.baseURL + "/autoturisme"
	makeName := strings.ToLower(strings.TrimSpace(q.Make))
	if makeName != "" {
		path += "/" + url.PathEscape(makeName)
		if token := catalog.NormalizeQueryToken(q.Make, q.Model); token != "" && q.Model != "" {
			path += "/" + url.PathEscape(token)
		}
	}

	params := url.Values{}
	if page > 1 {
		params.Set("page", fmt.Sprintf("%d", page))
	}
	if q.MaxPrice > 0 {
		params.Set("search[filter_float_price:to]", fmt.Sprintf("%d", q.MaxPrice))
	}
	if q.MinYear > 0 {
		params.Set("search[filter_float_year:from]", fmt.Sprintf("%d", q.MinYear))
	}
	if q.MaxKM > 0 {
		params.Set("search[filter_float_mileage:to]", fmt.Sprintf("%d", q.MaxKM))
	}

	if encoded := params.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

// Fetch walks result pages until maxPages or an empty page.
func (a *Autovit) Fetch(ctx context.Context, q model.SearchQuery, maxPages int) ([]model.RawListing, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	var out []model.RawListing
	for page := 1; page <= maxPages; page++ {
		pageURL := a.searchURL(q, page)
		body, err := a.client.GetPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, eris.Wrap(err, "autovit: fetch first page")
			}
			zap.L().Warn("autovit: page fetch failed, stopping pagination",
				zap.Int("page", page), zap.Error(err))
			break
		}

		listings, err := a.parseResults(body)
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
func (a *Autovit) FetchDetail(ctx context.Context, link string) (*model.Detail, error) {
	return a.client.GetDetail(ctx, link)
}

func (a *Autovit) parseResults(body string) ([]model.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "autovit: parse results page")
	}

	if listings := a.parseJSONLD(doc); len(listings) > 0 {
		return listings, nil
	}
	return a.parseCards(doc), nil
}

// parseJSONLD reads the structured result list Autovit embeds in its
// ld+json script blocks.
func (a *Autovit) parseJSONLD(doc *goquery.Document) []model.RawListing {
	var out []model.RawListing
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		data := s.Text()
		items := gjson.Get(data, "mainEntity.itemListElement")
		if !items.Exists() {
			return true
		}
		items.ForEach(func(_, item gjson.Result) bool {
			offered := item.Get("itemOffered")
			title := offered.Get("name").String()
			link := offered.Get("url").String()
			if title == "" || link == "" {
				return true
			}
			price := item.Get("priceSpecification.price").String()
			if price == "" {
				price = item.Get("price").String()
			}
			if price != "" && !strings.Contains(price, "€") && !strings.Contains(strings.ToLower(price), "eur") {
				price += " €"
			}
			out = append(out, model.RawListing{
				Title:  title,
				Price:  price,
				Link:   link,
				Image:  firstString(offered.Get("image")),
				Source: model.SourceAutovit,
			})
			return true
		})
		return len(out) == 0
	})
	return out
}

// parseCards is the markup fallback for pages without usable JSON-LD.
func (a *Autovit) parseCards(doc *goquery.Document) []model.RawListing {
	var out []model.RawListing
	doc.Find("article[data-id]").Each(func(_ int, card *goquery.Selection) {
		anchor := card.Find("h1 a, h2 a").First()
		title := strings.TrimSpace(anchor.Text())
		href, _ := anchor.Attr("href")
		if title == "" || href == "" {
			return
		}

		price := strings.TrimSpace(card.Find(`[data-testid="ad-price"]`).First().Text())
		if price == "" {
			price = strings.TrimSpace(card.Find("p.price, span.price").First().Text())
		}
		if isMonthlyRate(price) {
			return
		}

		out = append(out, model.RawListing{
			Title:  title,
			Price:  price,
			Link:   href,
			Image:  cardImage(card),
			Source: model.SourceAutovit,
		})
	})
	return out
}

// firstString unwraps a JSON value that is either a string or an array
// of strings.
func firstString(v gjson.Result) string {
	if v.IsArray() {
		arr := v.Array()
		if len(arr) == 0 {
			return ""
		}
		return arr[0].String()
	}
	return v.String()
}
