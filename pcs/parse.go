package pcs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/padraicbc/megabike/identity"
)

// ResultRow is one finisher on a race results page.
type ResultRow struct {
	Rank      int
	RiderName string
	RiderURL  string
	TeamName  string
}

// RankingRow is one rider on a ranking page.
type RankingRow struct {
	RiderName string
	RiderURL  string
	TeamName  string
	Points    int
}

// ListingEntry is a race found on the season races listing.
type ListingEntry struct {
	Key        string
	ResultSlug string
	Name       string
	// Date is YYYY-MM-DD, empty when the row carries no dd.mm token.
	Date string
}

// RaceDetails holds header facts from a race page.
type RaceDetails struct {
	StartDate string
}

var uciPointsRe = regexp.MustCompile(`UCI points:\s*<b>\s*([0-9]{1,6})`)

func document(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("pcs: parse html: %w", err)
	}
	return doc, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// bodyRows returns the rows of the first table, header row excluded.
func bodyRows(doc *goquery.Document) *goquery.Selection {
	rows := doc.Find("table").First().Find("tr")
	if rows.Length() < 2 {
		return rows.Slice(0, 0)
	}
	return rows.Slice(1, goquery.ToEnd)
}

// ParseResults extracts finishers from a results page. Rows without an
// integer rank in the first cell or without a rider link are dropped.
func ParseResults(html string) ([]ResultRow, error) {
	doc, err := document(html)
	if err != nil {
		return nil, err
	}
	var out []ResultRow
	bodyRows(doc).Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		rank, err := strconv.Atoi(clean(tds.First().Text()))
		if err != nil {
			return
		}
		riderIdx := -1
		var row ResultRow
		tds.EachWithBreak(func(i int, td *goquery.Selection) bool {
			a := td.Find("a").First()
			if a.Length() == 0 {
				return true
			}
			url, ok := identity.NormalizeRiderURL(a.AttrOr("href", ""))
			if !ok {
				return true
			}
			row.RiderURL, row.RiderName, riderIdx = url, clean(a.Text()), i
			return false
		})
		if riderIdx < 0 || row.RiderName == "" {
			return
		}
		if riderIdx+1 < tds.Length() {
			row.TeamName = clean(tds.Eq(riderIdx + 1).Text())
		}
		row.Rank = rank
		out = append(out, row)
	})
	return out, nil
}

// rankingRow reads the rider and team links of a ranking row.
func rankingRow(tds *goquery.Selection) (RankingRow, bool) {
	var row RankingRow
	tds.Each(func(_ int, td *goquery.Selection) {
		a := td.Find("a").First()
		if a.Length() == 0 {
			return
		}
		href := a.AttrOr("href", "")
		if url, ok := identity.NormalizeRiderURL(href); ok && row.RiderURL == "" {
			row.RiderURL, row.RiderName = url, clean(a.Text())
		}
		if strings.HasPrefix(strings.TrimLeft(href, "/"), "team/") && row.TeamName == "" {
			row.TeamName = clean(a.Text())
		}
	})
	return row, row.RiderURL != "" && row.RiderName != ""
}

// ParseRankingTable extracts riders from a generic ranking page. Points are
// taken from the last numeric cell.
func ParseRankingTable(html string) ([]RankingRow, error) {
	doc, err := document(html)
	if err != nil {
		return nil, err
	}
	var out []RankingRow
	bodyRows(doc).Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		row, ok := rankingRow(tds)
		if !ok {
			return
		}
		for i := tds.Length() - 1; i >= 0; i-- {
			if n, ok := parsePoints(tds.Eq(i).Text()); ok {
				row.Points = n
				break
			}
		}
		out = append(out, row)
	})
	return out, nil
}

// ParseOneDayRanking extracts riders from the UCI one-day ranking page,
// where points sit in the last cell.
func ParseOneDayRanking(html string) ([]RankingRow, error) {
	doc, err := document(html)
	if err != nil {
		return nil, err
	}
	var out []RankingRow
	bodyRows(doc).Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		row, ok := rankingRow(tds)
		if !ok {
			return
		}
		row.Points, _ = parsePoints(tds.Last().Text())
		out = append(out, row)
	})
	return out, nil
}

// ParseRaceListing extracts the season's races keyed by race key.
func ParseRaceListing(html string, year int) (map[string]ListingEntry, error) {
	doc, err := document(html)
	if err != nil {
		return nil, err
	}
	out := map[string]ListingEntry{}
	yearSeg := fmt.Sprintf("/%d/", year)
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		a := tr.Find("a").First()
		if a.Length() == 0 {
			return
		}
		href := strings.TrimLeft(a.AttrOr("href", ""), "/")
		if !strings.HasPrefix(href, "race/") || !strings.Contains(href, yearSeg) {
			return
		}
		parts := strings.Split(href, "/")
		if len(parts) < 3 {
			return
		}
		entry := ListingEntry{Key: parts[1], ResultSlug: href, Name: clean(a.Text())}
		lead := tr.Find("td").First().Text()
		if strings.TrimSpace(lead) == "" {
			lead = tr.Text()
		}
		if tokens := strings.Fields(lead); len(tokens) > 0 {
			entry.Date = listingDate(tokens[0], year)
		}
		out[entry.Key] = entry
	})
	return out, nil
}

// listingDate converts a "dd.mm" token into an ISO date.
func listingDate(token string, year int) string {
	if len(token) != 5 || token[2] != '.' {
		return ""
	}
	dd, err1 := strconv.Atoi(token[:2])
	mm, err2 := strconv.Atoi(token[3:])
	if err1 != nil || err2 != nil || dd < 1 || dd > 31 || mm < 1 || mm > 12 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, mm, dd)
}

// ParseRaceDetails reads the start date from a race page's info list.
func ParseRaceDetails(html string) (RaceDetails, error) {
	doc, err := document(html)
	if err != nil {
		return RaceDetails{}, err
	}
	var out RaceDetails
	for _, sel := range []string{"ul.infolist", "ul.keyvalueList", "ul.list"} {
		list := doc.Find(sel).First()
		if list.Length() == 0 {
			continue
		}
		list.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
			if !strings.Contains(li.Find(".title").First().Text(), "Startdate") {
				return true
			}
			if v := li.Find(".value").First(); v.Length() > 0 {
				out.StartDate = clean(v.Text())
				return false
			}
			return true
		})
		if out.StartDate != "" {
			return out, nil
		}
	}
	return out, nil
}

// ParsePageTitle returns the page heading, empty when absent.
func ParsePageTitle(html string) (string, error) {
	doc, err := document(html)
	if err != nil {
		return "", err
	}
	return clean(doc.Find(".page-title h1").First().Text()), nil
}

// ParseUCIPoints reads the UCI points figure on a rider page.
func ParseUCIPoints(html string) (int, bool) {
	m := uciPointsRe.FindStringSubmatch(html)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// ParseRiderPhoto picks a rider image, preferring sources that mention one
// of years in order, then the first rider image. Empty when none.
func ParseRiderPhoto(html string, years []string) (string, error) {
	doc, err := document(html)
	if err != nil {
		return "", err
	}
	var candidates []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src := img.AttrOr("src", ""); strings.Contains(src, "images/riders/") {
			candidates = append(candidates, src)
		}
	})
	for _, y := range years {
		for _, src := range candidates {
			if strings.Contains(src, y) {
				return src, nil
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return "", nil
}

// parsePoints reads "1,234" or "12.5" as a truncated integer.
func parsePoints(s string) (int, bool) {
	txt := strings.ReplaceAll(clean(s), ",", "")
	if txt == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(txt, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// ParseSearchResult returns the href of the first search hit, empty when
// there is none.
func ParseSearchResult(html string) (string, error) {
	doc, err := document(html)
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(doc.Find("ul.list a").First().AttrOr("href", ""), "/"), nil
}
