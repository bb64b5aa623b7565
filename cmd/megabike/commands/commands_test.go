package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/megabike/config"
)

func run(t *testing.T, args ...string) int {
	t.Helper()
	rootCmd.SetArgs(args)
	return ExecuteContext(context.Background())
}

func TestVerifySecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	good, err := jwt.New(jwt.SigningMethodHS256).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	bad, err := jwt.New(jwt.SigningMethodHS256).SignedString([]byte("other"))
	require.NoError(t, err)

	t.Setenv("ANON_KEY", good)
	assert.Equal(t, 0, run(t, "verify-secret"))
	assert.Equal(t, 1, run(t, "verify-secret", bad))
}

func TestImportTeamsRejectsBadBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.csv")
	require.NoError(t, os.WriteFile(path, []byte("team_name,owner,position,standardized_rider\nA,Ann,1,rider/a\n"), 0o600))

	assert.Equal(t, 2, run(t, "import-teams", path, "--min-riders", "9", "--max-riders", "3"))
	importOpts.minRiders, importOpts.maxRiders = 0, 0
}

func TestExitCode(t *testing.T) {
	err := &exitError{code: 2, err: errors.New("boom")}
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, err.err)
}

func TestImportSkipsExistingTeamsByDefault(t *testing.T) {
	f := importTeamsCmd.Flags()
	assert.Equal(t, "true", f.Lookup("skip-existing").DefValue)

	cfg := &config.Config{SeasonYear: 2025, MinRiders: 9, MaxRiders: 30}
	opts, err := importOptions(cfg)
	require.NoError(t, err)
	assert.True(t, opts.SkipExisting)
	assert.False(t, opts.Overwrite)
	assert.Equal(t, 9, opts.MinRiders)

	require.NoError(t, f.Set("overwrite", "true"))
	t.Cleanup(func() { importOpts.overwrite = false })
	opts, err = importOptions(cfg)
	require.NoError(t, err)
	assert.True(t, opts.SkipExisting)
	assert.True(t, opts.Overwrite)
}
