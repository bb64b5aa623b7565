package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/padraicbc/megabike/identity"
	"github.com/padraicbc/megabike/models"
	"github.com/padraicbc/megabike/pcs"
)

const (
	// OneDayRankingSlug selects the paged UCI one-day ranking.
	OneDayRankingSlug = "uci-one-day-races"
	oneDayLegacySlug  = "rankings.php?mode=uci_one_day"

	DefaultRefreshLimit = 800
)

// ErrNoSeedRows is returned when a refresh source yields nothing to store.
var ErrNoSeedRows = errors.New("ingest: no rider rows parsed")

// Ranker reads ranking pages.
type Ranker interface {
	OneDayRanking(ctx context.Context, date string, limit int) ([]pcs.RankingRow, error)
	RankingTable(ctx context.Context, slug string) ([]pcs.RankingRow, error)
}

// PriceStore is where refreshed riders and prices go.
type PriceStore interface {
	UpsertRiders(ctx context.Context, riders []models.Rider) (map[string]int64, error)
	UpsertPrices(ctx context.Context, prices []models.RiderPrice) error
}

// SeedRow is a rider to seed with a season price. Price nil means derive it
// from Points.
type SeedRow struct {
	Name        string
	Slug        string
	TeamName    string
	Nationality string
	Points      int
	Price       *int
}

// RefreshSummary reports a refresh run.
type RefreshSummary struct {
	Season int
	Source string
	Rows   int
	Riders int
	Prices int
}

// RefreshOptions selects the ranking to seed from.
type RefreshOptions struct {
	Season      int
	RankingSlug string
	Date        string
	Limit       int
}

// Refresher seeds a season's riders and prices.
type Refresher struct {
	ranker Ranker
	store  PriceStore
	log    *zap.Logger
}

func NewRefresher(ranker Ranker, store PriceStore, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{ranker: ranker, store: store, log: log.With(zap.String("component", "refresh"))}
}

// FromRanking seeds from a ranking. The one-day ranking is paged; any other
// slug is tried first, then the individual ranking without and with date.
func (r *Refresher) FromRanking(ctx context.Context, opts RefreshOptions) (*RefreshSummary, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultRefreshLimit
	}
	slug := opts.RankingSlug
	if slug == "" {
		slug = OneDayRankingSlug
	}

	var rows []pcs.RankingRow
	if slug == OneDayRankingSlug || slug == oneDayLegacySlug {
		var err error
		rows, err = r.ranker.OneDayRanking(ctx, opts.Date, opts.Limit)
		if err != nil {
			return nil, fmt.Errorf("one-day ranking: %w", err)
		}
	} else {
		candidates := []string{slug, "rankings/me/individual", "rankings/me/individual?date=" + opts.Date}
		for _, c := range candidates {
			got, err := r.ranker.RankingTable(ctx, c)
			if err != nil {
				r.log.Warn("ranking unavailable", zap.String("slug", c), zap.Error(err))
				continue
			}
			if len(got) > 0 {
				rows, slug = got, c
				break
			}
		}
	}
	if len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	seed := make([]SeedRow, 0, len(rows))
	for _, row := range rows {
		seed = append(seed, SeedRow{Name: row.RiderName, Slug: row.RiderURL, TeamName: row.TeamName, Points: row.Points})
	}
	return r.Seed(ctx, opts.Season, slug, seed)
}

// Seed upserts riders and their season prices. Price is the explicit price,
// else the points floored at zero.
func (r *Refresher) Seed(ctx context.Context, year int, source string, rows []SeedRow) (*RefreshSummary, error) {
	riders := make([]models.Rider, 0, len(rows))
	slugs := make([]string, 0, len(rows))
	prices := make([]int, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		slug := identity.CanonicalRiderSlug(row.Slug, name, row.Nationality)
		rider := models.Rider{Slug: slug, Name: name, Active: true}
		if row.TeamName != "" {
			team := row.TeamName
			rider.TeamName = &team
		}
		if row.Nationality != "" {
			nat := row.Nationality
			rider.Nationality = &nat
		}
		price := max(0, row.Points)
		if row.Price != nil {
			price = *row.Price
		}
		riders = append(riders, rider)
		slugs = append(slugs, slug)
		prices = append(prices, price)
	}
	if len(riders) == 0 {
		return nil, ErrNoSeedRows
	}

	ids, err := r.store.UpsertRiders(ctx, riders)
	if err != nil {
		return nil, fmt.Errorf("upsert riders: %w", err)
	}
	out := make([]models.RiderPrice, 0, len(slugs))
	for i, slug := range slugs {
		if id, ok := ids[slug]; ok {
			out = append(out, models.RiderPrice{SeasonYear: year, RiderID: id, Price: prices[i]})
		}
	}
	if err := r.store.UpsertPrices(ctx, out); err != nil {
		return nil, fmt.Errorf("upsert prices: %w", err)
	}

	sum := &RefreshSummary{Season: year, Source: source, Rows: len(rows), Riders: len(ids), Prices: len(out)}
	r.log.Info("season refreshed",
		zap.Int("season", year),
		zap.String("source", source),
		zap.Int("rows", sum.Rows),
		zap.Int("riders", sum.Riders),
		zap.Int("prices", sum.Prices),
	)
	return sum, nil
}

// ReadSeedCSVFile opens path and reads seed rows from it.
func ReadSeedCSVFile(path string) ([]SeedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSeedCSV(f)
}

// ReadSeedCSV reads a headed CSV with a required rider_name column and
// optional price, points, pcs_slug, team_name and nationality columns.
func ReadSeedCSV(r io.Reader) ([]SeedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed csv header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := col["rider_name"]; !ok {
		return nil, fmt.Errorf("read seed csv: missing column %q", "rider_name")
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []SeedRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seed csv: %w", err)
		}
		row := SeedRow{
			Name:        field(rec, "rider_name"),
			Slug:        field(rec, "pcs_slug"),
			TeamName:    field(rec, "team_name"),
			Nationality: field(rec, "nationality"),
		}
		if row.Name == "" {
			continue
		}
		row.Points, _ = wholeNumber(field(rec, "points"))
		if p, ok := wholeNumber(field(rec, "price")); ok {
			row.Price = &p
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func wholeNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
