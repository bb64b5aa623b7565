package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/megabike/config"
	"github.com/padraicbc/megabike/db"
	applog "github.com/padraicbc/megabike/logger"
	"github.com/padraicbc/megabike/pcs"
	"github.com/padraicbc/megabike/season"
)

var (
	verbose    bool
	seasonYear int
)

var rootCmd = &cobra.Command{
	Use:           "megabike",
	Short:         "megabike runs the fantasy cycling league's data jobs.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().IntVar(&seasonYear, "season", 0, "season year (default SEASON_YEAR)")
}

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExecuteContext runs the command tree and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// app is the configuration and logger shared by every command.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if seasonYear != 0 {
		cfg.SeasonYear = seasonYear
	}
	log, err := applog.NewConsole(cfg.Debug || verbose)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func (a *app) openStore(ctx context.Context) (*bun.DB, *db.Store, error) {
	bdb, err := db.Setup(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	return bdb, db.NewStore(bdb, a.cfg.BatchSize), nil
}

func (a *app) rules() (*config.Rules, error) {
	return config.LoadRules(a.cfg.RulesFile)
}

func (a *app) aggregator(store season.Store, rules *config.Rules) *season.Aggregator {
	return season.NewAggregator(store, rules.RankPoints, a.cfg.ResultsPageSize, a.log).WithTiers(rules.TierForSlug)
}

func (a *app) pcsClient() (*pcs.Client, error) {
	return pcs.NewClient(pcs.Options{
		BaseURL:     a.cfg.PCSBaseURL,
		Cookie:      a.cfg.PCSCookie,
		CookiesJSON: a.cfg.PCSCookiesJSON,
		Bypass:      a.cfg.PCSBypass,
		Timeout:     a.cfg.FetchTimeout,
		Retries:     a.cfg.FetchRetries,
		Log:         a.log,
	})
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderRecompute(sum *season.Summary) {
	t := newTable()
	t.SetTitle(fmt.Sprintf("Season %d recompute", sum.Season))
	t.AppendHeader(table.Row{"Races", "Retiered", "Results", "Rescored", "Riders", "Teams", "Teams failed"})
	t.AppendRow(table.Row{sum.Races, sum.Retiered, sum.Results, sum.Rescored, sum.Riders, sum.Teams, sum.TeamsFailed})
	t.Render()
}
