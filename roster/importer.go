package roster

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/padraicbc/megabike/identity"
	"github.com/padraicbc/megabike/models"
)

// Store is the persistence the importer needs.
type Store interface {
	RiderIDsBySlug(ctx context.Context, slugs []string) (map[string]int64, error)
	// CreateRider inserts the rider unless its slug exists and returns the id.
	CreateRider(ctx context.Context, rider *models.Rider) (int64, error)
	Prices(ctx context.Context, year int, riderIDs []int64) (map[int64]int, error)
	UpsertPrices(ctx context.Context, prices []models.RiderPrice) error
	RiderPoints(ctx context.Context, year int, riderIDs []int64) (map[int64]int, error)
	EnsureAccessCode(ctx context.Context, code string) (int64, error)
	EnsureUser(ctx context.Context, accessCodeID int64, displayName string) (int64, error)
	// FindTeam returns nil when the user has no team for the season.
	FindTeam(ctx context.Context, userID int64, year int) (*models.Team, error)
	UpsertTeam(ctx context.Context, team *models.Team) (int64, error)
	// ReplaceRoster deletes every roster row of the team and inserts roster.
	ReplaceRoster(ctx context.Context, teamID int64, roster []models.TeamRider) error
	SetTeamTotals(ctx context.Context, teamID int64, cost, points int) error
}

// Resolved is what a Resolver learned about a rider slug.
type Resolved struct {
	Name     string
	TeamName string
	// Points from the ranking source, used as a price hint.
	Points int
}

// Resolver looks up display data for riders missing from the store.
type Resolver interface {
	Resolve(ctx context.Context, slug string) (Resolved, error)
}

// Options controls an import run.
type Options struct {
	Season    int
	SeasonTag string
	MinRiders int
	MaxRiders int
	// SkipExisting leaves teams that already exist untouched unless Overwrite.
	SkipExisting bool
	Overwrite    bool
	// SeedMissing resolves unknown rider slugs instead of aborting.
	SeedMissing bool
	// DryRun reads and validates but writes nothing.
	DryRun bool
}

// Status is the outcome of one team.
type Status string

const (
	StatusCreated         Status = "created"
	StatusUpdated         Status = "updated"
	StatusSkippedSize     Status = "skipped_size"
	StatusSkippedExisting Status = "skipped_existing"
)

// TeamResult reports one team's outcome.
type TeamResult struct {
	Team     TeamKey
	Status   Status
	Riders   int
	Totals   Totals
	Warnings []string
}

// Summary reports an import run.
type Summary struct {
	Processed       int
	Created         int
	Updated         int
	SkippedSize     int
	SkippedExisting int
	Warned          int
	RidersSeeded    int
	PricesWritten   int
	DryRun          bool
	Teams           []TeamResult
}

// Importer imports rosters into the store.
type Importer struct {
	store    Store
	resolver Resolver
	opts     Options
	log      *zap.Logger
}

// NewImporter builds an Importer. resolver may be nil when SeedMissing is off.
func NewImporter(store Store, resolver Resolver, opts Options, log *zap.Logger) *Importer {
	if opts.SeasonTag == "" {
		opts.SeasonTag = identity.SeasonTag(opts.Season)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		store:    store,
		resolver: resolver,
		opts:     opts,
		log:      log.With(zap.String("component", "roster"), zap.Int("season", opts.Season)),
	}
}

// Import validates and persists every team in entries.
//
// A duplicate slot anywhere, or rider slugs that stay unresolved, abort the
// run before any team is written. Teams outside the size bounds, and existing
// teams when skipping, are counted and left alone.
func (im *Importer) Import(ctx context.Context, entries []Entry) (*Summary, error) {
	teams := Group(entries)
	for _, t := range teams {
		if err := ValidateSlots(t); err != nil {
			return nil, err
		}
	}

	sum := &Summary{Processed: len(teams), DryRun: im.opts.DryRun}

	slugs := uniqueSlugs(entries)
	hints := BestHints(entries)
	ids, err := im.store.RiderIDsBySlug(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("resolve riders: %w", err)
	}

	missing := missingSlugs(slugs, ids)
	if len(missing) > 0 && im.opts.SeedMissing && !im.opts.DryRun && im.resolver != nil {
		seeded, err := im.seed(ctx, missing, ids, hints)
		if err != nil {
			return nil, err
		}
		sum.RidersSeeded = seeded
		missing = missingSlugs(slugs, ids)
	}
	if len(missing) > 0 {
		return nil, newMissingRidersError(missing)
	}

	if !im.opts.DryRun {
		n, err := im.backfillPrices(ctx, slugs, ids, hints)
		if err != nil {
			return nil, err
		}
		sum.PricesWritten = n
	}

	for _, t := range teams {
		res, err := im.importTeam(ctx, t, ids)
		if err != nil {
			return sum, fmt.Errorf("team %s: %w", t.Key, err)
		}
		switch res.Status {
		case StatusCreated:
			sum.Created++
		case StatusUpdated:
			sum.Updated++
		case StatusSkippedSize:
			sum.SkippedSize++
		case StatusSkippedExisting:
			sum.SkippedExisting++
		}
		if len(res.Warnings) > 0 {
			sum.Warned++
		}
		sum.Teams = append(sum.Teams, res)
	}

	im.log.Info("roster import finished",
		zap.Int("teams_processed", sum.Processed),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped_size", sum.SkippedSize),
		zap.Int("skipped_existing", sum.SkippedExisting),
		zap.Int("teams_with_warnings", sum.Warned),
		zap.Bool("dry_run", sum.DryRun),
	)
	return sum, nil
}

// seed creates riders for missing slugs and folds resolved ranking points
// into the price hints.
func (im *Importer) seed(ctx context.Context, missing []string, ids map[string]int64, hints map[string]int) (int, error) {
	seeded := 0
	for _, slug := range missing {
		res, err := im.resolver.Resolve(ctx, slug)
		if err != nil {
			if ctx.Err() != nil {
				return seeded, ctx.Err()
			}
			im.log.Warn("rider resolve failed, using slug as name", zap.String("slug", slug), zap.Error(err))
			res = Resolved{}
		}
		if res.Name == "" {
			res.Name = slug
		}

		rider := &models.Rider{Slug: slug, Name: res.Name, Active: true}
		if res.TeamName != "" {
			rider.TeamName = &res.TeamName
		}
		id, err := im.store.CreateRider(ctx, rider)
		if err != nil {
			return seeded, fmt.Errorf("seed rider %s: %w", slug, err)
		}
		ids[slug] = id
		if res.Points > hints[slug] {
			hints[slug] = res.Points
		}
		seeded++
		im.log.Debug("seeded rider", zap.String("slug", slug), zap.String("name", res.Name), zap.Int("points", res.Points))
	}
	return seeded, nil
}

func (im *Importer) backfillPrices(ctx context.Context, slugs []string, ids map[string]int64, hints map[string]int) (int, error) {
	riderIDs := make([]int64, 0, len(slugs))
	for _, s := range slugs {
		riderIDs = append(riderIDs, ids[s])
	}
	existing, err := im.store.Prices(ctx, im.opts.Season, riderIDs)
	if err != nil {
		return 0, fmt.Errorf("load prices: %w", err)
	}

	var rows []models.RiderPrice
	for _, s := range slugs {
		id := ids[s]
		price, ok := existing[id]
		if !NeedsPrice(price, ok, hints[s]) {
			continue
		}
		rows = append(rows, models.RiderPrice{SeasonYear: im.opts.Season, RiderID: id, Price: hints[s]})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := im.store.UpsertPrices(ctx, rows); err != nil {
		return 0, fmt.Errorf("backfill prices: %w", err)
	}
	return len(rows), nil
}

func (im *Importer) importTeam(ctx context.Context, t Team, ids map[string]int64) (TeamResult, error) {
	res := TeamResult{Team: t.Key, Riders: len(t.Entries)}
	log := im.log.With(zap.String("team", t.Key.TeamName), zap.String("owner", t.Key.Owner))

	if !SizeInBounds(len(t.Entries), im.opts.MinRiders, im.opts.MaxRiders) {
		res.Status = StatusSkippedSize
		log.Info("skipping team: roster size out of bounds",
			zap.Int("size", len(t.Entries)),
			zap.Int("min", im.opts.MinRiders),
			zap.Int("max", im.opts.MaxRiders),
		)
		return res, nil
	}

	roster := make([]models.TeamRider, 0, len(t.Entries))
	riderIDs := make([]int64, 0, len(t.Entries))
	for _, e := range t.Entries {
		id, ok := ids[e.RiderSlug]
		if !ok {
			return res, newMissingRidersError([]string{e.RiderSlug})
		}
		roster = append(roster, models.TeamRider{Slot: e.Slot, RiderID: id})
		riderIDs = append(riderIDs, id)
	}

	if im.opts.DryRun {
		totals, err := im.totals(ctx, riderIDs)
		if err != nil {
			return res, err
		}
		res.Status = StatusCreated
		res.Totals = totals
		res.Warnings = totals.Warnings()
		return res, nil
	}

	code := identity.StableAccessCode(t.Key.Owner, im.opts.SeasonTag)
	accessCodeID, err := im.store.EnsureAccessCode(ctx, code)
	if err != nil {
		return res, fmt.Errorf("access code: %w", err)
	}
	userID, err := im.store.EnsureUser(ctx, accessCodeID, t.Key.Owner)
	if err != nil {
		return res, fmt.Errorf("user: %w", err)
	}

	existing, err := im.store.FindTeam(ctx, userID, im.opts.Season)
	if err != nil {
		return res, fmt.Errorf("find team: %w", err)
	}
	if existing != nil && im.opts.SkipExisting && !im.opts.Overwrite {
		res.Status = StatusSkippedExisting
		res.Totals = Totals{Cost: existing.TotalCost, Points: existing.Points}
		log.Debug("team exists, skipping", zap.Int64("team_id", existing.ID))
		return res, nil
	}

	teamID, err := im.store.UpsertTeam(ctx, &models.Team{
		UserID:     userID,
		SeasonYear: im.opts.Season,
		TeamName:   t.Key.TeamName,
		Locked:     true,
	})
	if err != nil {
		return res, fmt.Errorf("upsert team: %w", err)
	}
	for i := range roster {
		roster[i].TeamID = teamID
	}
	if err := im.store.ReplaceRoster(ctx, teamID, roster); err != nil {
		return res, fmt.Errorf("replace roster: %w", err)
	}

	totals, err := im.totals(ctx, riderIDs)
	if err != nil {
		return res, err
	}
	if err := im.store.SetTeamTotals(ctx, teamID, totals.Cost, totals.Points); err != nil {
		return res, fmt.Errorf("set totals: %w", err)
	}

	res.Status = StatusCreated
	if existing != nil {
		res.Status = StatusUpdated
	}
	res.Totals = totals
	res.Warnings = totals.Warnings()
	if len(res.Warnings) > 0 {
		log.Warn("team totals incomplete", zap.Strings("warnings", res.Warnings))
	}
	log.Info("team imported",
		zap.Int64("team_id", teamID),
		zap.String("status", string(res.Status)),
		zap.Int("total_cost", totals.Cost),
		zap.Int("points", totals.Points),
	)
	return res, nil
}

func (im *Importer) totals(ctx context.Context, riderIDs []int64) (Totals, error) {
	prices, err := im.store.Prices(ctx, im.opts.Season, riderIDs)
	if err != nil {
		return Totals{}, fmt.Errorf("load prices: %w", err)
	}
	points, err := im.store.RiderPoints(ctx, im.opts.Season, riderIDs)
	if err != nil {
		return Totals{}, fmt.Errorf("load points: %w", err)
	}
	return ComputeTotals(riderIDs, prices, points), nil
}

func missingSlugs(slugs []string, ids map[string]int64) []string {
	var out []string
	for _, s := range slugs {
		if _, ok := ids[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
