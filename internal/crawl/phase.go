package crawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/provider"
	"github.com/jonesrussell/listing-crawler/internal/retry"
)

// crawlPhase lists every page of phase from the checkpointed page onwards.
func (o *Orchestrator) crawlPhase(ctx context.Context, phase domain.Phase) error {
	o.mu.RLock()
	page := o.crawl.CurrentPageIndex
	offset := o.crawl.ItemOffsetWithinPage
	resumed := o.resumed
	o.mu.RUnlock()

	if page < domain.FirstPage {
		page = domain.FirstPage
	}

	loaded, ok, err := o.openPage(ctx, phase, page, false)
	if err != nil || !ok {
		return err
	}
	if loaded != page {
		offset = 0
	}
	page = loaded

	for {
		o.setState(StateListingPage)
		o.metrics.SetPosition(phase.Index, page)

		listings, err := o.provider.ListItemIdentifiers(ctx)
		if err != nil {
			return fmt.Errorf("list items of page %d: %w", page, err)
		}

		start := o.startIndex(offset, len(listings), resumed)
		if start > 0 {
			o.logger.Info("Skipping already processed items", "phase", phase.Index, "page", page, "skipped", start)
		}
		offset = 0

		for i := start; i < len(listings); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.processItem(ctx, listings[i], i); err != nil {
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		hasNext, err := o.provider.HasNextPage(ctx)
		if err != nil {
			return fmt.Errorf("check next page after %d: %w", page, err)
		}
		if !hasNext {
			o.logger.Debug("Last page reached", "phase", phase.Index, "page", page)
			return nil
		}

		loaded, ok, err = o.openPage(ctx, phase, page+1, true)
		if err != nil || !ok {
			return err
		}
		page = loaded
	}
}

// startIndex is the first item to process on the first page of a phase. A
// resumed offset past the end means the page is already done; a configured
// start item past the end falls back to the first item.
func (o *Orchestrator) startIndex(offset, items int, resumed bool) int {
	switch {
	case offset <= 0:
		return 0
	case offset < items:
		return offset
	case resumed:
		return items
	default:
		o.logger.Warn("Start item beyond page, starting at item 1", "start_item", offset+1, "items", items)
		return 0
	}
}

// openPage loads page of phase, by advancing from the current page or by
// direct navigation. When retries are exhausted the page is skipped and the
// following one is tried once by direct navigation; if that fails too the
// phase ends early (ok is false).
func (o *Orchestrator) openPage(ctx context.Context, phase domain.Phase, page int, advance bool) (int, bool, error) {
	o.setState(StateListingPage)

	err := retry.Retry(ctx, o.cfg.Retry, func() error {
		if advance {
			return o.provider.AdvanceToNextPage(ctx)
		}
		return o.provider.Navigate(ctx, provider.Query{Range: phase.Range, Page: page})
	})
	if err == nil {
		return page, true, o.moveToPage(ctx, page)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, false, ctxErr
	}
	if !isNavigationError(err) {
		return 0, false, fmt.Errorf("open page %d of phase %d: %w", page, phase.Index, err)
	}

	o.skipPage(phase, page, err)

	next := page + 1
	err = retry.Retry(ctx, o.cfg.Retry, func() error {
		return o.provider.Navigate(ctx, provider.Query{Range: phase.Range, Page: next})
	})
	if err == nil {
		return next, true, o.moveToPage(ctx, next)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, false, ctxErr
	}
	if !isNavigationError(err) {
		return 0, false, fmt.Errorf("open page %d of phase %d: %w", next, phase.Index, err)
	}

	o.skipPage(phase, next, err)
	o.logger.Warn("Ending phase early after repeated page failures", "phase", phase.Index, "page", next)
	return 0, false, nil
}

func (o *Orchestrator) skipPage(phase domain.Phase, page int, err error) {
	o.update(func(st *domain.CrawlState) {
		st.PagesSkipped++
	})
	o.metrics.RecordPageSkipped()
	o.logger.Warn("Skipping page after navigation failures", "phase", phase.Index, "page", page, "error", err)
}

// moveToPage records page as the current page. The item offset is kept when
// the page is the checkpointed one so a resumed page skips its done items.
func (o *Orchestrator) moveToPage(ctx context.Context, page int) error {
	o.update(func(st *domain.CrawlState) {
		if st.CurrentPageIndex != page {
			st.CurrentPageIndex = page
			st.ItemOffsetWithinPage = 0
		}
	})
	return o.save(ctx)
}

// processItem extracts, filters and stores one listing, then advances the
// checkpoint past it. A cancelled extraction is not counted and leaves the
// offset in place; a persistence failure is returned without advancing.
func (o *Orchestrator) processItem(ctx context.Context, listing domain.Listing, index int) error {
	o.setState(StateExtractingItem)
	started := o.now()

	rec, err := retry.Do(ctx, o.cfg.Retry, func() (*domain.Record, error) {
		return o.extractor.Extract(ctx, listing)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.logger.Warn("Skipping listing", "listing", listing.ID, "error", err)
		o.update(func(st *domain.CrawlState) {
			st.TotalSeen++
			st.TotalSkipped++
			st.ItemOffsetWithinPage = index + 1
		})
		o.metrics.RecordSeen()
		o.metrics.RecordSkipped()
		return o.save(ctx)
	}

	outcome := domain.Accepted
	if rec.Accepted {
		outcome, err = o.store.Submit(ctx, rec)
		if err != nil {
			if !errors.Is(err, domain.ErrPersistence) {
				err = fmt.Errorf("%w: submit %s: %w", domain.ErrPersistence, listing.ID, err)
			}
			return err
		}
	}

	o.update(func(st *domain.CrawlState) {
		st.TotalSeen++
		if rec.Accepted {
			st.TotalAccepted++
			if outcome == domain.Duplicate {
				st.TotalDuplicates++
			}
		}
		st.ItemOffsetWithinPage = index + 1
	})

	o.metrics.RecordSeen()
	if rec.Accepted {
		o.metrics.RecordAccepted()
		if outcome == domain.Duplicate {
			o.metrics.RecordDuplicate()
		}
	}
	o.metrics.ObserveItem(o.now().Sub(started).Seconds())

	label := "rejected"
	if rec.Accepted {
		label = outcome.String()
	}
	o.logger.Debug("Listing processed",
		"listing", listing.ID,
		"accepted", rec.Accepted,
		"outcome", label,
	)
	return o.save(ctx)
}
