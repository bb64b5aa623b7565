package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableRiderSlug(t *testing.T) {
	assert.Equal(t, "rider/507b7342751c", StableRiderSlug("Tadej Pogačar", "SI"))
	assert.Equal(t, "rider/ea0856584423", StableRiderSlug("Tadej Pogačar", ""))

	// repeated calls agree
	for i := 0; i < 3; i++ {
		assert.Equal(t, StableRiderSlug("Tadej Pogačar", "SI"), StableRiderSlug("Tadej Pogačar", "SI"))
	}
}

func TestStableRiderSlugNationalityChangesSlug(t *testing.T) {
	names := []string{"Tadej Pogačar", "Wout van Aert", "Mathieu van der Poel", "Remco Evenepoel"}
	nats := []string{"", "SI", "BE", "NL", "FR"}

	seen := map[string]string{}
	for _, name := range names {
		for _, nat := range nats {
			slug := StableRiderSlug(name, nat)
			require.Len(t, slug, len("rider/")+12)
			key := name + "|" + nat
			if prev, ok := seen[slug]; ok {
				t.Fatalf("collision between %q and %q", prev, key)
			}
			seen[slug] = key
		}
	}
	assert.Equal(t, "rider/795ddeb081cb", StableRiderSlug("Tadej Pogačar", "FR"))
}

func TestCanonicalRiderSlug(t *testing.T) {
	assert.Equal(t, "rider/tadej-pogacar", CanonicalRiderSlug("rider/tadej-pogacar", "Tadej Pogačar", "SI"))
	assert.Equal(t, "rider/tadej-pogacar", CanonicalRiderSlug(" /rider/tadej-pogacar ", "Tadej Pogačar", "SI"))
	assert.Equal(t, "rider/507b7342751c", CanonicalRiderSlug("", "Tadej Pogačar", "SI"))
	assert.Equal(t, "rider/507b7342751c", CanonicalRiderSlug("team/uae-team-emirates", "Tadej Pogačar", "SI"))
	assert.Equal(t, "rider/507b7342751c", CanonicalRiderSlug("rider/", "Tadej Pogačar", "SI"))
}

func TestStableAccessCode(t *testing.T) {
	code := StableAccessCode("Anna Smith", SeasonTag(2025))
	assert.Equal(t, "MB2025-e8db8003bc", code)
	assert.Equal(t, code, StableAccessCode("  anna SMITH ", "MB2025"))
	assert.NotEqual(t, code, StableAccessCode("Anna Smyth", "MB2025"))
	assert.Equal(t, "MB2026-e8db8003bc", StableAccessCode("Anna Smith", SeasonTag(2026)))
}
