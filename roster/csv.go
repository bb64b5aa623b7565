package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSV columns read by ReadCSV. Other columns are ignored.
const (
	ColTeamName = "team_name"
	ColOwner    = "owner"
	ColPosition = "position"
	ColRider    = "standardized_rider"
	ColPoints   = "points"
)

// ReadCSVFile opens path and reads roster entries from it.
func ReadCSVFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads roster entries from a headed CSV.
//
// Rows missing a team name, owner, position or rider are dropped, as are
// rows whose position is not numeric. An unparsable points value yields a
// zero price hint.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{ColTeamName, ColOwner, ColPosition, ColRider} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("read csv: missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		team, owner := field(rec, ColTeamName), field(rec, ColOwner)
		pos, rider := field(rec, ColPosition), field(rec, ColRider)
		if team == "" || owner == "" || pos == "" || rider == "" {
			continue
		}
		slot, ok := parseWhole(pos)
		if !ok {
			continue
		}
		hint, _ := parseWhole(field(rec, ColPoints))
		entries = append(entries, Entry{
			TeamName:  team,
			Owner:     owner,
			Slot:      slot,
			RiderSlug: rider,
			PriceHint: hint,
		})
	}
	return entries, nil
}

// parseWhole parses "12" or "12.0" into 12, truncating any fraction.
func parseWhole(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
