package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/extract"
	"github.com/jonesrussell/listing-crawler/internal/logger"
)

// ErrNoPage is returned by page inspection calls made before Navigate.
var ErrNoPage = errors.New("no search page loaded")

// HTMLProvider implements Provider over plain HTTP with colly and reads pages
// with goquery selectors. Every request waits on a rate limiter first.
type HTMLProvider struct {
	cfg       Config
	collector *colly.Collector
	limiter   *rate.Limiter
	logger    logger.Interface

	query   Query
	page    *goquery.Document
	pageURL *url.URL
}

// NewHTMLProvider creates an HTML provider.
func NewHTMLProvider(cfg Config, log logger.Interface) (*HTMLProvider, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(cfg.RequestTimeout)

	return &HTMLProvider{
		cfg:       cfg,
		collector: c,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:    log.WithComponent("provider"),
	}, nil
}

// SearchURL renders the URL of a search result page.
func (p *HTMLProvider) SearchURL(q Query) (string, error) {
	raw := strings.NewReplacer(
		minPlaceholder, strconv.FormatInt(q.Range.Low, 10),
		maxPlaceholder, strconv.FormatInt(q.Range.High, 10),
	).Replace(p.cfg.SearchURL)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	if q.Page > domain.FirstPage {
		suffix := strings.ReplaceAll(p.cfg.PageSuffix, pagePlaceholder, strconv.Itoa(q.Page))
		u.Path = strings.TrimRight(u.Path, "/") + suffix
	}
	return u.String(), nil
}

// Navigate implements Provider.
func (p *HTMLProvider) Navigate(ctx context.Context, q Query) error {
	target, err := p.SearchURL(q)
	if err != nil {
		return err
	}

	doc, final, err := p.fetch(ctx, target)
	if err != nil {
		return err
	}

	p.query = q
	p.page = doc
	p.pageURL = final
	p.logger.Debug("Loaded search page", "url", target, "range", q.Range.String(), "page", q.Page)
	return nil
}

// CountVisibleResults implements Provider. A single-page result without a
// count element reports the number of listings it shows. When more pages
// follow, a missing count element is an error.
func (p *HTMLProvider) CountVisibleResults(ctx context.Context) (int, error) {
	if p.page == nil {
		return 0, ErrNoPage
	}

	sel := p.page.Find(p.cfg.Selectors.ResultCount).First()
	if sel.Length() == 0 {
		more, err := p.HasNextPage(ctx)
		if err != nil {
			return 0, err
		}
		if more {
			return 0, fmt.Errorf("%w: result count %q on paginated page %s",
				domain.ErrFieldNotFound, p.cfg.Selectors.ResultCount, p.pageURL)
		}
		n := len(p.listingLinks())
		p.logger.Debug("Result count element missing", "url", p.pageURL.String(), "listings", n)
		return n, nil
	}

	n, err := extract.ParseCount(sel.Text())
	if err != nil {
		return 0, fmt.Errorf("result count: %w", err)
	}
	return n, nil
}

// ListItemIdentifiers implements Provider. Links are resolved against the
// page URL and repeated links are listed once.
func (p *HTMLProvider) ListItemIdentifiers(_ context.Context) ([]domain.Listing, error) {
	if p.page == nil {
		return nil, ErrNoPage
	}

	links := p.listingLinks()
	listings := make([]domain.Listing, 0, len(links))
	for i, id := range links {
		listings = append(listings, domain.Listing{ID: id, Position: i})
	}
	return listings, nil
}

// listingLinks returns the distinct absolute listing URLs on the loaded page.
func (p *HTMLProvider) listingLinks() []string {
	seen := make(map[string]struct{})
	var links []string
	p.page.Find(p.cfg.Selectors.ItemLink).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, err := p.pageURL.Parse(strings.TrimSpace(href))
		if err != nil {
			p.logger.Debug("Skipping malformed listing link", "href", href, "error", err)
			return
		}
		id := abs.String()
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		links = append(links, id)
	})
	return links
}

// HasNextPage implements Provider. A hidden or disabled next button means
// the current page is the last.
func (p *HTMLProvider) HasNextPage(_ context.Context) (bool, error) {
	if p.page == nil {
		return false, ErrNoPage
	}

	btn := p.page.Find(p.cfg.Selectors.NextButton).First()
	if btn.Length() == 0 || btn.HasClass(p.cfg.Selectors.NextHiddenClass) {
		return false, nil
	}
	if _, disabled := btn.Attr("disabled"); disabled {
		return false, nil
	}
	return true, nil
}

// AdvanceToNextPage implements Provider by loading the next page URL directly.
func (p *HTMLProvider) AdvanceToNextPage(ctx context.Context) error {
	if p.page == nil {
		return ErrNoPage
	}
	return p.Navigate(ctx, Query{Range: p.query.Range, Page: p.query.Page + 1})
}

// FetchDetailFields implements Provider. The loaded search page is kept.
func (p *HTMLProvider) FetchDetailFields(ctx context.Context, listing domain.Listing) (domain.Snapshot, error) {
	doc, final, err := p.fetch(ctx, listing.ID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		URL:    final.String(),
		Fields: make(map[string]string, len(p.cfg.Selectors.Fields)),
	}

	for name, selector := range p.cfg.Selectors.Fields {
		if selector == "" {
			continue
		}
		if text := collapse(doc.Find(selector).First().Text()); text != "" {
			snap.Fields[name] = text
		}
	}

	doc.Find(p.cfg.Selectors.Entries).Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			snap.Entries = append(snap.Entries, text)
		}
	})

	snap.Text = visibleText(doc)
	return snap, nil
}

// fetch loads one URL. Transport failures and non-2xx responses become
// NavigationErrors; cancellation is returned as the context error.
func (p *HTMLProvider) fetch(ctx context.Context, target string) (*goquery.Document, *url.URL, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	c := p.collector.Clone()
	c.Context = ctx

	var (
		body   []byte
		status int
		final  *url.URL
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
		final = r.Request.URL
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(target); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, &NavigationError{URL: target, Status: status, Err: err}
	}
	if final == nil {
		return nil, nil, &NavigationError{URL: target, Status: status, Err: errors.New("empty response")}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, &NavigationError{URL: target, Status: status, Err: err}
	}
	return doc, final, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
