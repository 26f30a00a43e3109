package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/resilience"
)

// userAgents is rotated per request. Both marketplaces throttle
// repeated hits from a single UA harder than from a browser mix.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:124.0) Gecko/20100101 Firefox/124.0",
}

const maxBodyBytes = 4 << 20

// ClientOptions configures the shared marketplace HTTP client.
type ClientOptions struct {
	Timeout      time.Duration
	MaxRetries   int
	RatePerHost  int
	PageCacheTTL time.Duration
}

type cachedPage struct {
	body    string
	fetched time.Time
}

// Client is the HTTP client shared by the marketplace adapters. It
// rate-limits per host, rotates user agents, retries transient failures
// with exponential backoff, and keeps a short-lived cache of listing
// pages so that overlapping searches do not refetch the same result
// page within seconds.
type Client struct {
	http *http.Client
	opts ClientOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	pages    map[string]cachedPage
	uaIdx    int

	now func() time.Time
}

// NewClient creates a Client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RatePerHost == 0 {
		opts.RatePerHost = 5
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
		pages:    make(map[string]cachedPage),
		now:      time.Now,
	}
}

func (c *Client) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.opts.RatePerHost), c.opts.RatePerHost)
		c.limiters[host] = lim
	}
	return lim
}

func (c *Client) nextUserAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ua := userAgents[c.uaIdx%len(userAgents)]
	c.uaIdx++
	return ua
}

func (c *Client) cachedPageFor(rawURL string) (string, bool) {
	if c.opts.PageCacheTTL <= 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[rawURL]
	if !ok {
		return "", false
	}
	if c.now().Sub(p.fetched) > c.opts.PageCacheTTL {
		delete(c.pages, rawURL)
		return "", false
	}
	return p.body, true
}

func (c *Client) storePage(rawURL, body string) {
	if c.opts.PageCacheTTL <= 0 {
		return
	}
	c.mu.Lock()
	c.pages[rawURL] = cachedPage{body: body, fetched: c.now()}
	c.mu.Unlock()
}

// GetPage fetches a listing result page, serving repeats from the
// short-lived page cache.
func (c *Client) GetPage(ctx context.Context, rawURL string) (string, error) {
	if body, ok := c.cachedPageFor(rawURL); ok {
		return body, nil
	}

	body, err := resilience.DoVal(ctx, c.retryConfig(rawURL), func(ctx context.Context) (string, error) {
		b, _, _, err := c.get(ctx, rawURL)
		return b, err
	})
	if err != nil {
		return "", markUnavailable(rawURL, err)
	}
	c.storePage(rawURL, body)
	return body, nil
}

// GetDetail fetches an ad detail page, following redirects. A 404 maps
// to ErrAdRemoved; other statuses come back in the Detail so the caller
// can judge the page.
func (c *Client) GetDetail(ctx context.Context, rawURL string) (*model.Detail, error) {
	var detail *model.Detail
	err := resilience.Do(ctx, c.retryConfig(rawURL), func(ctx context.Context) error {
		body, finalURL, status, err := c.get(ctx, rawURL)
		if err != nil {
			return err
		}
		detail = &model.Detail{
			HTML:       body,
			FinalURL:   finalURL,
			StatusCode: status,
			FetchedAt:  c.now(),
		}
		return nil
	})
	if err != nil {
		if eris.Is(err, ErrAdRemoved) {
			return nil, ErrAdRemoved
		}
		return nil, markUnavailable(rawURL, err)
	}
	return detail, nil
}

// markUnavailable folds transport failures and exhausted retries onto
// ErrUnavailable so callers can classify them. Caller-side cancellation
// passes through untouched.
func markUnavailable(rawURL string, err error) error {
	if eris.Is(err, context.Canceled) {
		return err
	}
	return eris.Wrapf(ErrUnavailable, "source: %s unreachable: %v", rawURL, err)
}

func (c *Client) get(ctx context.Context, rawURL string) (body, finalURL string, status int, err error) {
	lim := c.limiterFor(rawURL)
	if err := lim.Wait(ctx); err != nil {
		return "", "", 0, eris.Wrap(err, "source: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", 0, eris.Wrap(err, "source: create request")
	}
	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ro-RO,ro;q=0.9,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", 0, eris.Wrap(err, "source: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return "", "", resp.StatusCode, ErrAdRemoved
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return "", "", resp.StatusCode, resilience.NewTransientError(
			eris.Errorf("source: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return "", "", resp.StatusCode, eris.Errorf("source: http %d from %s", resp.StatusCode, rawURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", resp.StatusCode, eris.Wrap(err, "source: read body")
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return string(raw), final, resp.StatusCode, nil
}

func (c *Client) retryConfig(rawURL string) resilience.RetryConfig {
	cfg := resilience.RetryConfig{
		MaxAttempts: c.opts.MaxRetries,
		ShouldRetry: func(err error) bool {
			if eris.Is(err, ErrAdRemoved) {
				return false
			}
			return resilience.IsTransient(err)
		},
		OnRetry: func(attempt int, err error) {
			zap.L().Warn("source: retrying fetch",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err))
		},
	}
	return cfg
}

// bestSrcsetCandidate picks the widest candidate out of a srcset
// attribute value like "url 400w, url2 800w".
func bestSrcsetCandidate(srcset string) string {
	best := ""
	bestW := -1
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		w := 0
		if len(fields) > 1 {
			spec := fields[1]
			if strings.HasSuffix(spec, "w") {
				for _, r := range spec[:len(spec)-1] {
					if r < '0' || r > '9' {
						w = -1
						break
					}
					w = w*10 + int(r-'0')
				}
			}
		}
		if w > bestW {
			bestW = w
			best = fields[0]
		}
	}
	return best
}
