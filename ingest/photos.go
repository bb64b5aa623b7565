package ingest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/padraicbc/megabike/models"
	"github.com/padraicbc/megabike/pcs"
)

const photoWorkers = 5

// PhotoStore lists riders missing a photo and stores found ones.
type PhotoStore interface {
	RidersWithoutPhoto(ctx context.Context) ([]models.Rider, error)
	SetRiderPhoto(ctx context.Context, riderID int64, url string) error
}

// PageFetcher is a Fetcher that can also absolutize site paths.
type PageFetcher interface {
	Fetcher
	Absolute(path string) string
}

// PhotoSummary reports a photo run.
type PhotoSummary struct {
	Riders  int
	Updated int
	Missing int
	Failed  int
}

// PhotoRefresher finds rider photos on rider pages.
type PhotoRefresher struct {
	fetch PageFetcher
	store PhotoStore
	log   *zap.Logger
	now   func() time.Time
}

func NewPhotoRefresher(fetch PageFetcher, store PhotoStore, log *zap.Logger) *PhotoRefresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &PhotoRefresher{fetch: fetch, store: store, log: log.With(zap.String("component", "photos")), now: time.Now}
}

// photoYears prefers this year's image, then the previous two.
func photoYears(now time.Time) []string {
	y := now.Year()
	return []string{strconv.Itoa(y), strconv.Itoa(y - 1), strconv.Itoa(y - 2)}
}

// Refresh looks up a photo for every rider that has none.
func (p *PhotoRefresher) Refresh(ctx context.Context) (*PhotoSummary, error) {
	riders, err := p.store.RidersWithoutPhoto(ctx)
	if err != nil {
		return nil, err
	}
	years := photoYears(p.now())

	var updated, missing, failed atomic.Int64
	pool := pond.NewPool(photoWorkers, pond.WithContext(ctx))
	for _, rider := range riders {
		pool.Submit(func() {
			src, err := p.riderPhoto(ctx, rider.Slug, years)
			log := p.log.With(zap.String("rider", rider.Slug))
			switch {
			case err != nil:
				failed.Add(1)
				log.Warn("photo lookup failed", zap.Error(err))
				return
			case src == "":
				missing.Add(1)
				log.Debug("no photo")
				return
			}
			if err := p.store.SetRiderPhoto(ctx, rider.ID, p.fetch.Absolute(src)); err != nil {
				failed.Add(1)
				log.Warn("photo write failed", zap.Error(err))
				return
			}
			updated.Add(1)
		})
	}
	pool.StopAndWait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := &PhotoSummary{
		Riders:  len(riders),
		Updated: int(updated.Load()),
		Missing: int(missing.Load()),
		Failed:  int(failed.Load()),
	}
	p.log.Info("photos refreshed",
		zap.Int("riders", sum.Riders),
		zap.Int("updated", sum.Updated),
		zap.Int("missing", sum.Missing),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// riderPhoto fetches the rider page, falling back to the site search when
// the page is gone. An empty result means no image was found.
func (p *PhotoRefresher) riderPhoto(ctx context.Context, slug string, years []string) (string, error) {
	page := slug
	if !strings.HasPrefix(page, "rider/") {
		page = "rider/" + page
	}
	status, html, err := p.fetch.Fetch(ctx, page)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		parts := strings.Split(strings.TrimPrefix(slug, "rider/"), "/")
		term := parts[len(parts)-1]
		st, res, err := p.fetch.Fetch(ctx, "search.php?term="+url.QueryEscape(term))
		if err != nil || st != http.StatusOK {
			return "", err
		}
		hit, err := pcs.ParseSearchResult(res)
		if err != nil || hit == "" {
			return "", err
		}
		p.log.Debug("rider page moved", zap.String("rider", slug), zap.String("to", hit))
		if status, html, err = p.fetch.Fetch(ctx, hit); err != nil {
			return "", err
		}
	}
	if status != http.StatusOK {
		return "", nil
	}
	return pcs.ParseRiderPhoto(html, years)
}
