// Package ingest pulls race results, rankings and rider photos from
// ProCyclingStats into the store.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/padraicbc/megabike/config"
	"github.com/padraicbc/megabike/identity"
	"github.com/padraicbc/megabike/models"
	"github.com/padraicbc/megabike/pcs"
	"github.com/padraicbc/megabike/scoring"
	"github.com/padraicbc/megabike/season"
)

// DefaultWorkers bounds concurrent page fetches when none is configured.
const DefaultWorkers = 8

// Fetcher returns a page's status and body.
type Fetcher interface {
	Fetch(ctx context.Context, pathOrURL string) (int, string, error)
}

// Store is the persistence the syncer writes to.
type Store interface {
	UpsertRace(ctx context.Context, race *models.Race) (int64, error)
	UpsertRiders(ctx context.Context, riders []models.Rider) (map[string]int64, error)
	UpsertResults(ctx context.Context, results []models.RaceResult) error
}

// Recomputer rebuilds season totals after a sync.
type Recomputer interface {
	Recompute(ctx context.Context, year int) (*season.Summary, error)
}

// RaceOutcome is what happened to one race.
type RaceOutcome string

const (
	RaceSynced  RaceOutcome = "synced"
	RaceSkipped RaceOutcome = "skipped"
	RaceFailed  RaceOutcome = "failed"
)

// RaceReport describes one synced race.
type RaceReport struct {
	Key     string
	Slug    string
	Name    string
	Date    string
	Tier    int
	Results int
	Outcome RaceOutcome
	Err     error
}

// SyncSummary reports a sync run.
type SyncSummary struct {
	Season    int
	Synced    int
	Skipped   int
	Failed    int
	Results   int
	Races     []RaceReport
	Recompute *season.Summary
}

// Syncer fetches configured races and stores their results.
type Syncer struct {
	fetch      Fetcher
	store      Store
	rules      *config.Rules
	recomputer Recomputer
	workers    int
	log        *zap.Logger
	now        func() time.Time
}

// NewSyncer builds a Syncer. recomputer may be nil to skip the season rebuild.
func NewSyncer(fetch Fetcher, store Store, rules *config.Rules, recomputer Recomputer, workers int, log *zap.Logger) *Syncer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		fetch:      fetch,
		store:      store,
		rules:      rules,
		recomputer: recomputer,
		workers:    workers,
		log:        log.With(zap.String("component", "sync")),
		now:        time.Now,
	}
}

// raceTarget is a race to fetch. Key is empty for a custom slug.
type raceTarget struct {
	Key  string
	Slug string
}

// racePage is a fetched race, ready to write.
type racePage struct {
	target     raceTarget
	resultSlug string
	html       string
	date       string
	err        error
	skipped    bool
}

// ListingPath is the one-day circuit races listing for a season.
func ListingPath(year int) string {
	return fmt.Sprintf("races.php?s=&year=%d&circuit=1&class=&filter=Filter", year)
}

// SyncAll syncs every race in the rules for a season, then recomputes it.
func (s *Syncer) SyncAll(ctx context.Context, year int) (*SyncSummary, error) {
	listing := s.listing(ctx, year)

	targets := make([]raceTarget, 0, len(s.rules.Races))
	for _, key := range s.rules.Races {
		targets = append(targets, raceTarget{Key: key, Slug: fmt.Sprintf("race/%s/%d", key, year)})
	}
	return s.run(ctx, year, targets, listing)
}

// SyncRace syncs a single race slug such as "race/tour-de-france/2025" at
// the default tier, then recomputes the season.
func (s *Syncer) SyncRace(ctx context.Context, year int, slug string) (*SyncSummary, error) {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if !strings.HasPrefix(slug, "race/") {
		return nil, fmt.Errorf("sync race: %q is not a race slug", slug)
	}
	return s.run(ctx, year, []raceTarget{{Slug: slug}}, nil)
}

func (s *Syncer) run(ctx context.Context, year int, targets []raceTarget, listing map[string]pcs.ListingEntry) (*SyncSummary, error) {
	pages := make([]racePage, len(targets))
	pool := pond.NewPool(s.workers, pond.WithContext(ctx))
	for i, t := range targets {
		pool.Submit(func() {
			pages[i] = s.fetchRace(ctx, year, t)
		})
	}
	pool.StopAndWait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := &SyncSummary{Season: year}
	for _, page := range pages {
		report := s.writeRace(ctx, page, listing)
		switch report.Outcome {
		case RaceSynced:
			sum.Synced++
			sum.Results += report.Results
		case RaceSkipped:
			sum.Skipped++
		case RaceFailed:
			sum.Failed++
		}
		sum.Races = append(sum.Races, report)
	}

	s.log.Info("races synced",
		zap.Int("season", year),
		zap.Int("synced", sum.Synced),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int("results", sum.Results),
	)

	if s.recomputer != nil {
		rc, err := s.recomputer.Recompute(ctx, year)
		if err != nil {
			return sum, fmt.Errorf("recompute: %w", err)
		}
		sum.Recompute = rc
	}
	return sum, nil
}

func (s *Syncer) listing(ctx context.Context, year int) map[string]pcs.ListingEntry {
	status, html, err := s.fetch.Fetch(ctx, ListingPath(year))
	if err != nil || status != http.StatusOK {
		s.log.Warn("races listing unavailable", zap.Int("status", status), zap.Error(err))
		return nil
	}
	listing, err := pcs.ParseRaceListing(html, year)
	if err != nil {
		s.log.Warn("races listing unparsable", zap.Error(err))
		return nil
	}
	s.log.Debug("races listing", zap.Int("races", len(listing)))
	return listing
}

// fetchRace loads a race's results page, falling back to the yearless
// results page, and the overview page when the results page has no date.
func (s *Syncer) fetchRace(ctx context.Context, year int, t raceTarget) racePage {
	page := racePage{target: t, resultSlug: t.Slug}
	if t.Key != "" {
		page.resultSlug = fmt.Sprintf("race/%s/%d/result", t.Key, year)
	}
	log := s.log.With(zap.String("race", t.Slug))

	status, html, err := s.fetch.Fetch(ctx, page.resultSlug)
	if err == nil && status != http.StatusOK && t.Key != "" {
		log.Debug("results page unavailable, trying fallback", zap.Int("status", status))
		page.resultSlug = fmt.Sprintf("race/%s/result", t.Key)
		status, html, err = s.fetch.Fetch(ctx, page.resultSlug)
	}
	if err != nil {
		page.err = err
		return page
	}
	if status != http.StatusOK {
		log.Info("results page unavailable, skipping", zap.Int("status", status))
		page.skipped = true
		return page
	}
	page.html = html

	if d, err := pcs.ParseRaceDetails(html); err == nil && validDate(d.StartDate) {
		page.date = d.StartDate
		return page
	}
	if strings.Contains(page.resultSlug, "/result") {
		overview := strings.Replace(page.resultSlug, "/result", "", 1)
		st, ov, err := s.fetch.Fetch(ctx, overview)
		if err == nil && st == http.StatusOK {
			if d, err := pcs.ParseRaceDetails(ov); err == nil && validDate(d.StartDate) {
				page.date = d.StartDate
				log.Debug("date from overview", zap.String("date", page.date))
			}
		}
	}
	return page
}

func (s *Syncer) writeRace(ctx context.Context, page racePage, listing map[string]pcs.ListingEntry) RaceReport {
	t := page.target
	report := RaceReport{Key: t.Key, Slug: t.Slug, Tier: s.rules.DefaultTier}
	if t.Key != "" {
		report.Tier = s.rules.TierFor(t.Key)
	}

	switch {
	case page.err != nil:
		report.Outcome, report.Err = RaceFailed, page.err
		s.log.Warn("race fetch failed", zap.String("race", t.Slug), zap.Error(page.err))
		return report
	case page.skipped:
		report.Outcome = RaceSkipped
		return report
	}

	meta, hasMeta := listing[t.Key]
	report.Name = t.Slug
	if hasMeta && meta.Name != "" {
		report.Name = meta.Name
	}
	if title, err := pcs.ParsePageTitle(page.html); err == nil && title != "" {
		report.Name = title
	}
	report.Date = page.date
	if report.Date == "" && hasMeta && meta.Date != "" {
		report.Date = meta.Date
	}
	if report.Date == "" {
		report.Date = models.DateOf(s.now()).String()
	}

	rows, err := pcs.ParseResults(page.html)
	if err != nil {
		report.Outcome, report.Err = RaceFailed, err
		return report
	}
	if len(rows) == 0 {
		s.log.Info("no result rows, storing race only", zap.String("race", t.Slug))
	}

	raceID, err := s.store.UpsertRace(ctx, &models.Race{Slug: t.Slug, Name: report.Name, Date: models.Date(report.Date), Tier: report.Tier})
	if err != nil {
		report.Outcome, report.Err = RaceFailed, err
		s.log.Warn("race write failed", zap.String("race", t.Slug), zap.Error(err))
		return report
	}

	n, err := s.writeResults(ctx, raceID, report.Tier, rows)
	if err != nil {
		report.Outcome, report.Err = RaceFailed, err
		s.log.Warn("results write failed", zap.String("race", t.Slug), zap.Error(err))
		return report
	}
	report.Results = n
	report.Outcome = RaceSynced
	s.log.Info("race synced",
		zap.String("race", t.Slug),
		zap.String("name", report.Name),
		zap.String("date", report.Date),
		zap.Int("tier", report.Tier),
		zap.Int("results", n),
	)
	return report
}

func (s *Syncer) writeResults(ctx context.Context, raceID int64, tier int, rows []pcs.ResultRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	riders := make([]models.Rider, 0, len(rows))
	slugs := make([]string, len(rows))
	for i, row := range rows {
		slugs[i] = identity.CanonicalRiderSlug(row.RiderURL, row.RiderName, "")
		rider := models.Rider{Slug: slugs[i], Name: row.RiderName, Active: true}
		if row.TeamName != "" {
			team := row.TeamName
			rider.TeamName = &team
		}
		riders = append(riders, rider)
	}
	ids, err := s.store.UpsertRiders(ctx, riders)
	if err != nil {
		return 0, err
	}

	results := make([]models.RaceResult, 0, len(rows))
	for i, row := range rows {
		id, ok := ids[slugs[i]]
		if !ok {
			continue
		}
		results = append(results, models.RaceResult{
			RaceID:        raceID,
			RiderID:       id,
			Rank:          row.Rank,
			PointsAwarded: scoring.PointsForRank(row.Rank, tier, s.rules.RankPoints),
		})
	}
	if err := s.store.UpsertResults(ctx, results); err != nil {
		return 0, err
	}
	return len(results), nil
}

func validDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}
