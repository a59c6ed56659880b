package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("COURSEWORK_DATABASE_URL", "postgres://engine@localhost:5432/coursework")
	t.Setenv("COURSEWORK_LEADERBOARD_CACHE_TTL", "90s")
	t.Setenv("COURSEWORK_ASSIGNMENT_SEED", "7")
	t.Setenv("COURSEWORK_APP_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Coursework Engine", cfg.AppName)
	assert.Equal(t, 90*time.Second, cfg.LeaderboardCacheTTL)
	assert.Equal(t, int64(7), cfg.AssignmentSeed)
	assert.Equal(t, "coursework", cfg.NATSSubjectPrefix)
	assert.Equal(t, "*", cfg.CORSAllowOrigins)
	assert.True(t, cfg.DatabaseAutoMigrate)
	assert.Equal(t, ":9090", cfg.HTTPAddress())
}

func TestFromViperRequiresDatabaseURL(t *testing.T) {
	_, err := fromViper(viper.New())
	require.Error(t, err)
}

func TestFromViperFallsBackOnEmptyDurations(t *testing.T) {
	v := viper.New()
	v.Set("database.url", "postgres://localhost/coursework")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.LeaderboardCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.ShutdownGracePeriod)
}

func TestFromViperRejectsInvalidDuration(t *testing.T) {
	v := viper.New()
	v.Set("database.url", "postgres://localhost/coursework")
	v.Set("leaderboard.cache_ttl", "soon")

	_, err := fromViper(v)
	require.ErrorContains(t, err, "invalid leaderboard cache ttl")
}

func TestHTTPAddressAddsColon(t *testing.T) {
	assert.Equal(t, ":8080", Config{AppPort: "8080"}.HTTPAddress())
}
