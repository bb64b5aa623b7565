package pcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `
<html><body>
<div class="page-title"><h1>  Milano-Sanremo
  2025 </h1></div>
<ul class="infolist">
  <li><div class="title">Distance: </div><div class="value">289 km</div></li>
  <li><div class="title">Startdate: </div><div class="value"> 2025-03-22 </div></li>
</ul>
<table>
  <tr><th>Rnk</th><th>Rider</th><th>Team</th></tr>
  <tr><td>1</td><td><a href="rider/mathieu-van-der-poel">VAN DER POEL Mathieu</a></td><td>Alpecin - Deceuninck</td></tr>
  <tr><td>2</td><td><a href="/rider/filippo-ganna">GANNA Filippo</a></td><td>INEOS Grenadiers</td></tr>
  <tr><td>DNF</td><td><a href="rider/someone">SOMEONE</a></td><td>Team</td></tr>
  <tr><td>3</td><td>no link</td><td>Team</td></tr>
  <tr><td>4</td><td><a href="team/uae">UAE</a></td><td><a href="rider/tadej-pogacar">POGAČAR Tadej</a></td></tr>
</table>
<table><tr><th>x</th></tr><tr><td>9</td><td><a href="rider/other-table">X</a></td></tr></table>
</body></html>`

func TestParseResults(t *testing.T) {
	rows, err := ParseResults(resultsPage)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, ResultRow{Rank: 1, RiderName: "VAN DER POEL Mathieu", RiderURL: "rider/mathieu-van-der-poel", TeamName: "Alpecin - Deceuninck"}, rows[0])
	assert.Equal(t, "rider/filippo-ganna", rows[1].RiderURL)
	// rider in the last cell has no team cell after it
	assert.Equal(t, ResultRow{Rank: 4, RiderName: "POGAČAR Tadej", RiderURL: "rider/tadej-pogacar"}, rows[2])
}

func TestParseResultsNoTable(t *testing.T) {
	rows, err := ParseResults("<html><body><p>blocked</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ParseResults("<table><tr><th>only header</th></tr></table>")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseRaceDetailsAndTitle(t *testing.T) {
	details, err := ParseRaceDetails(resultsPage)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-22", details.StartDate)

	title, err := ParsePageTitle(resultsPage)
	require.NoError(t, err)
	assert.Equal(t, "Milano-Sanremo 2025", title)

	details, err = ParseRaceDetails(`<ul class="list keyvalueList"><li><div class="title">Startdate:</div><div class="value">2025-04-27</div></li></ul>`)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-27", details.StartDate)

	details, err = ParseRaceDetails(`<p>nothing</p>`)
	require.NoError(t, err)
	assert.Empty(t, details.StartDate)
}

const oneDayRanking = `
<table>
  <tr><th>#</th><th>Prev.</th><th>Diff.</th><th>Rider</th><th>Team</th><th>Points</th></tr>
  <tr><td>1</td><td>1</td><td></td><td><a href="rider/tadej-pogacar">POGAČAR Tadej</a></td><td><a href="team/uae-team-emirates-2025">UAE Team Emirates</a></td><td>4,310</td></tr>
  <tr><td>2</td><td>3</td><td>1</td><td><a href="rider/mathieu-van-der-poel">VAN DER POEL Mathieu</a></td><td><a href="team/alpecin-2025">Alpecin</a></td><td>2500.5</td></tr>
  <tr><td>3</td><td>2</td><td>-1</td><td><a href="rider/no-points">NO POINTS</a></td><td></td><td>-</td></tr>
  <tr><td>4</td><td></td><td></td><td>no rider link</td><td></td><td>10</td></tr>
</table>`

func TestParseOneDayRanking(t *testing.T) {
	rows, err := ParseOneDayRanking(oneDayRanking)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, RankingRow{RiderName: "POGAČAR Tadej", RiderURL: "rider/tadej-pogacar", TeamName: "UAE Team Emirates", Points: 4310}, rows[0])
	assert.Equal(t, 2500, rows[1].Points)
	assert.Zero(t, rows[2].Points)
	assert.Empty(t, rows[2].TeamName)
}

func TestParseRankingTableUsesLastNumericCell(t *testing.T) {
	rows, err := ParseRankingTable(oneDayRanking)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 4310, rows[0].Points)
	// "-" is skipped; the previous numeric cell is the diff column
	assert.Equal(t, -1, rows[2].Points)
}

func TestParseRaceListing(t *testing.T) {
	html := `
<table>
  <tr><th>Date</th><th>Race</th></tr>
  <tr><td>22.03</td><td><a href="race/milano-sanremo/2025/result">Milano-Sanremo</a></td></tr>
  <tr><td>06.04</td><td><a href="race/ronde-van-vlaanderen/2025/result">Ronde van Vlaanderen</a></td></tr>
  <tr><td>TBD</td><td><a href="race/il-lombardia/2025/result">Il Lombardia</a></td></tr>
  <tr><td>10.05</td><td><a href="race/old-race/2024/result">Old</a></td></tr>
  <tr><td>10.05</td><td><a href="team/x">Team</a></td></tr>
</table>`
	got, err := ParseRaceListing(html, 2025)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ListingEntry{Key: "milano-sanremo", ResultSlug: "race/milano-sanremo/2025/result", Name: "Milano-Sanremo", Date: "2025-03-22"}, got["milano-sanremo"])
	assert.Equal(t, "2025-04-06", got["ronde-van-vlaanderen"].Date)
	assert.Empty(t, got["il-lombardia"].Date)
}

func TestParseUCIPoints(t *testing.T) {
	n, ok := ParseUCIPoints(`<div>UCI points: <b> 1234</b></div>`)
	assert.True(t, ok)
	assert.Equal(t, 1234, n)

	_, ok = ParseUCIPoints(`<div>no points here</div>`)
	assert.False(t, ok)
}

func TestParseRiderPhoto(t *testing.T) {
	html := `
<img src="images/flags/si.png">
<img src="images/riders/bp/2024/tadej-pogacar-2024.jpg">
<img src="images/riders/bp/2025/tadej-pogacar-2025.jpg">`
	src, err := ParseRiderPhoto(html, []string{"2026", "2025", "2024"})
	require.NoError(t, err)
	assert.Equal(t, "images/riders/bp/2025/tadej-pogacar-2025.jpg", src)

	src, err = ParseRiderPhoto(html, []string{"2030"})
	require.NoError(t, err)
	assert.Equal(t, "images/riders/bp/2024/tadej-pogacar-2024.jpg", src)

	src, err = ParseRiderPhoto(`<img src="images/flags/si.png">`, nil)
	require.NoError(t, err)
	assert.Empty(t, src)
}

func TestParseSearchResult(t *testing.T) {
	href, err := ParseSearchResult(`<ul class="list"><li><a href="/rider/tom-pidcock">PIDCOCK Thomas</a></li><li><a href="rider/other">x</a></li></ul>`)
	require.NoError(t, err)
	assert.Equal(t, "rider/tom-pidcock", href)

	href, err = ParseSearchResult(`<p>no hits</p>`)
	require.NoError(t, err)
	assert.Empty(t, href)
}
