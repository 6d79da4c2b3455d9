package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Engine.PointsPerCorrect)
	assert.Equal(t, 3, cfg.Engine.MasteryThreshold)
	assert.Equal(t, 100, cfg.Leaderboard.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.Leaderboard.CacheTTL)
	require.Len(t, cfg.Gamification.DailyTasks, 3)
	assert.Equal(t, "LOGIN", cfg.Gamification.DailyTasks[0].Type)
	assert.True(t, cfg.Gamification.DailyTasks[0].AutoComplete)
	assert.Equal(t, 80, cfg.Gamification.DailyTasks[2].XPReward)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, "jwt:\n  secret: from-file\n")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Mode: "debug"},
			Engine: EngineConfig{PointsPerCorrect: 10, MasteryThreshold: 3},
			Gamification: GamificationConfig{DailyTasks: []DailyTaskConfig{
				{Type: "LOGIN", Target: 1},
			}},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Server.Mode = "release"
	cfg.JWT.Secret = "short"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Engine.MasteryThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Engine.PointsPerCorrect = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Gamification.DailyTasks = append(cfg.Gamification.DailyTasks, DailyTaskConfig{Type: "login", Target: 1})
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Gamification.DailyTasks[0].Target = 0
	assert.Error(t, cfg.Validate())
}

func TestEngineLocation(t *testing.T) {
	assert.Equal(t, time.Local, EngineConfig{}.Location())
	assert.Equal(t, time.Local, EngineConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "Asia/Shanghai", EngineConfig{Timezone: "Asia/Shanghai"}.Location().String())
}
