package pcs

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	rankingStep    = 100
	rankingMaxOff  = 10000
	rankingMinPage = 50
)

// OneDayRankingPath is the rankings.php query for the UCI one-day ranking.
// term filters by rider name; empty lists everyone.
func OneDayRankingPath(term, date string, offset int) string {
	return fmt.Sprintf(
		"rankings.php?p=uci-one-day-races&s=%s&date=%s&nation=&age=&page=smallerorequal&team=&offset=%d&filter=Filter",
		url.QueryEscape(term), url.QueryEscape(date), offset,
	)
}

// OneDayRanking pages through the UCI one-day ranking on date until a page
// is empty, short, or limit rows are collected. Only a failing first page is
// an error.
func (c *Client) OneDayRanking(ctx context.Context, date string, limit int) ([]RankingRow, error) {
	var out []RankingRow
	for offset := 0; offset < rankingMaxOff; offset += rankingStep {
		if limit > 0 && len(out) >= limit {
			break
		}
		rows, err := c.rankingPage(ctx, OneDayRankingPath("", date, offset), true)
		if err != nil {
			if offset == 0 {
				return nil, err
			}
			c.log.Warn("ranking page failed, stopping", zap.Int("offset", offset), zap.Error(err))
			break
		}
		if len(rows) == 0 {
			break
		}
		out = append(out, rows...)
		if len(rows) < rankingMinPage {
			break
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RankingTable fetches a ranking page by slug or URL.
func (c *Client) RankingTable(ctx context.Context, slug string) ([]RankingRow, error) {
	oneDay := strings.Contains(slug, "rankings.php") && strings.Contains(slug, "uci-one-day-races")
	return c.rankingPage(ctx, slug, oneDay)
}

// SearchOneDayRanking runs a name search against the one-day ranking.
func (c *Client) SearchOneDayRanking(ctx context.Context, term, date string) ([]RankingRow, error) {
	return c.rankingPage(ctx, OneDayRankingPath(term, date, 0), true)
}

func (c *Client) rankingPage(ctx context.Context, path string, oneDay bool) ([]RankingRow, error) {
	html, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if oneDay {
		return ParseOneDayRanking(html)
	}
	return ParseRankingTable(html)
}
