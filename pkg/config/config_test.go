package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, time.Hour, cfg.Modules.CacheTTL)
	assert.Equal(t, 12*time.Hour, cfg.License.CacheTTL)
	assert.Equal(t, "developer", cfg.License.DevPlan)
	assert.Empty(t, cfg.Redis.URL)
	assert.False(t, cfg.Swagger.Enabled)
}

func TestFromViper_DuracionesEnSegundosYFormatoGo(t *testing.T) {
	v := viper.New()
	v.Set("MODULES_CACHE_TTL", "120")
	v.Set("LICENSE_CACHE_TTL", "30m")
	v.Set("DB_PORT", "6543")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Modules.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.License.CacheTTL)
	assert.Equal(t, 6543, cfg.DB.Port)
}

func TestFromViper_TTLNoPositivoEsError(t *testing.T) {
	v := viper.New()
	v.Set("MODULES_CACHE_TTL", "0")

	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "hd", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/hd?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
