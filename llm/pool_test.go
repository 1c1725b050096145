package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPoolConfig() PoolConfig {
	return PoolConfig{
		Use: []Family{FamilyA},
		Keys: map[Family][]FamilyKeyConfig{
			FamilyA: {
				{APIKey: "k1", APIBase: "https://a.example.com", Model: "m1"},
				{APIKey: "k2", APIBase: "https://a.example.com", Model: "m1", RateLimit: 5},
			},
		},
	}
}

func TestBuildPool_CreatesOneInstancePerKeyRecord(t *testing.T) {
	pool, err := BuildPool(validPoolConfig())
	require.NoError(t, err)
	require.Len(t, pool.Instances[FamilyA], 2)
	assert.Equal(t, "A#0", pool.Instances[FamilyA][0].ID)
	assert.Equal(t, "A#1", pool.Instances[FamilyA][1].ID)
}

func TestBuildPool_AppliesDefaultRateLimit(t *testing.T) {
	pool, err := BuildPool(validPoolConfig())
	require.NoError(t, err)
	assert.Equal(t, 20, pool.Instances[FamilyA][0].RateLimit)
	assert.Equal(t, 5, pool.Instances[FamilyA][1].RateLimit)
}

func TestBuildPool_EmptyUseIsError(t *testing.T) {
	_, err := BuildPool(PoolConfig{})
	assert.Error(t, err)
}

func TestBuildPool_EnabledFamilyWithNoKeysIsError(t *testing.T) {
	_, err := BuildPool(PoolConfig{Use: []Family{FamilyB}})
	assert.Error(t, err)
}

func TestBuildPool_MissingAPIBaseIsError(t *testing.T) {
	_, err := BuildPool(PoolConfig{
		Use: []Family{FamilyA},
		Keys: map[Family][]FamilyKeyConfig{
			FamilyA: {{APIKey: "k1", Model: "m1"}},
		},
	})
	assert.Error(t, err)
}

func TestBuildPool_MissingModelIsError(t *testing.T) {
	_, err := BuildPool(PoolConfig{
		Use: []Family{FamilyA},
		Keys: map[Family][]FamilyKeyConfig{
			FamilyA: {{APIKey: "k1", APIBase: "https://a.example.com"}},
		},
	})
	assert.Error(t, err)
}

func TestPool_Candidates_FiltersByPin(t *testing.T) {
	pool, err := BuildPool(PoolConfig{
		Use: []Family{FamilyA, FamilyB},
		Keys: map[Family][]FamilyKeyConfig{
			FamilyA: {{APIKey: "k1", APIBase: "https://a.example.com", Model: "m1"}},
			FamilyB: {{APIKey: "k2", APIBase: "https://b.example.com", Model: "m2"}},
		},
	})
	require.NoError(t, err)

	supportsAll := func(Family, RequestKind) bool { return true }

	all := pool.Candidates(KindChat, "", supportsAll)
	assert.Len(t, all, 2)

	pinned := pool.Candidates(KindChat, FamilyB, supportsAll)
	require.Len(t, pinned, 1)
	assert.Equal(t, FamilyB, pinned[0].Family)
}

func TestPool_Candidates_FiltersBySupportedKind(t *testing.T) {
	pool, err := BuildPool(validPoolConfig())
	require.NoError(t, err)

	noneSupport := func(Family, RequestKind) bool { return false }
	assert.Empty(t, pool.Candidates(KindEmbed, "", noneSupport))
}

func TestPool_All_ReturnsEveryInstanceAcrossFamilies(t *testing.T) {
	pool, err := BuildPool(PoolConfig{
		Use: []Family{FamilyA, FamilyB},
		Keys: map[Family][]FamilyKeyConfig{
			FamilyA: {{APIKey: "k1", APIBase: "https://a.example.com", Model: "m1"}},
			FamilyB: {{APIKey: "k2", APIBase: "https://b.example.com", Model: "m2"}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, pool.All(), 2)
}
