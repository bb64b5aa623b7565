package pcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"go.uber.org/zap"

	"github.com/padraicbc/megabike/identity"
	"github.com/padraicbc/megabike/roster"
)

// MatchThreshold is the minimum Jaro-Winkler similarity for a fuzzy
// ranking match.
const MatchThreshold = 0.93

// Resolver finds display data for a rider slug on ProCyclingStats.
type Resolver struct {
	client *Client
	date   string
	log    *zap.Logger
}

// NewResolver builds a Resolver that searches the one-day ranking as of
// date (YYYY-MM-DD).
func NewResolver(client *Client, date string) *Resolver {
	return &Resolver{client: client, date: date, log: client.log.With(zap.String("resolver", "rider"))}
}

// SearchTerm turns "rider/tadej-pogacar" into "tadej pogacar".
func SearchTerm(slug string) string {
	tail := slug
	if _, after, ok := strings.Cut(slug, "/"); ok {
		tail = after
	}
	return strings.ReplaceAll(tail, "-", " ")
}

// Resolve tries, in order: an exact slug match in the ranking search, then
// the rider page itself. A ranking name above MatchThreshold belongs to a
// different slug, so it only supplies the name when the rider page fails.
func (r *Resolver) Resolve(ctx context.Context, slug string) (roster.Resolved, error) {
	term := SearchTerm(slug)

	rows, err := r.client.SearchOneDayRanking(ctx, term, r.date)
	if err != nil {
		r.log.Debug("ranking search failed", zap.String("slug", slug), zap.Error(err))
	}
	if row, ok := exactRow(slug, rows); ok {
		return roster.Resolved{Name: row.RiderName, TeamName: row.TeamName, Points: row.Points}, nil
	}
	hint, score := closestRow(term, rows)
	fuzzy := score >= MatchThreshold
	if fuzzy {
		r.log.Info("fuzzy ranking match",
			zap.String("slug", slug),
			zap.String("matched_slug", hint.RiderURL),
			zap.String("matched_name", hint.RiderName),
			zap.Float64("score", score))
	}

	name, points, err := r.riderPage(ctx, slug)
	if err == nil {
		return roster.Resolved{Name: name, Points: points}, nil
	}
	if fuzzy {
		return roster.Resolved{Name: hint.RiderName}, nil
	}
	return roster.Resolved{}, err
}

func (r *Resolver) riderPage(ctx context.Context, slug string) (string, int, error) {
	html, err := r.client.Get(ctx, slug)
	if err != nil {
		return "", 0, fmt.Errorf("resolve %s: %w", slug, err)
	}
	name, err := ParsePageTitle(html)
	if err != nil {
		return "", 0, err
	}
	if name == "" {
		return "", 0, fmt.Errorf("resolve %s: %w: no rider name", slug, ErrNotFound)
	}
	points, _ := ParseUCIPoints(html)
	return name, points, nil
}

func exactRow(slug string, rows []RankingRow) (RankingRow, bool) {
	for _, row := range rows {
		if row.RiderURL == slug {
			return row, true
		}
	}
	return RankingRow{}, false
}

// closestRow returns the row whose slug or name is most similar to term.
func closestRow(term string, rows []RankingRow) (RankingRow, float64) {
	want := identity.FoldName(term)
	var (
		best  RankingRow
		score float64
	)
	for _, row := range rows {
		s := matchr.JaroWinkler(want, identity.FoldName(SearchTerm(row.RiderURL)), false)
		if n := matchr.JaroWinkler(want, identity.FoldName(row.RiderName), false); n > s {
			s = n
		}
		if s > score {
			best, score = row, s
		}
	}
	return best, score
}
