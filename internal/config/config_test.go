package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "dev")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "store")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, "postgres://app:pw@db:5432/store?sslmode=disable", cfg.PostgresDSN())
}

func TestLoad_DatabaseURLWins(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "postgres://x@y/z")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x@y/z", cfg.PostgresDSN())
}

func TestLoad_RequiredAndInvalid(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")

	setBaseEnv(t)
	t.Setenv("POSTGRES_PORT", "abc")
	_, err = Load()
	assert.Error(t, err)

	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_MemoryDriverSkipsPostgres(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("POSTGRES_USER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
}

func TestParseStorePolicy(t *testing.T) {
	p, err := ParseStorePolicy([]byte(`
order_number:
  prefix: ABC
  max_attempts: 3
cancel_window: 12h
tax_rate: "0.10"
shipping:
  default: "20.00"
  free_over: "0"
  zones:
    - countries: [us, ca]
      cost: "7.50"
`))
	require.NoError(t, err)

	assert.Equal(t, "ABC", p.OrderPrefix)
	assert.Equal(t, 3, p.OrderNumberAttempts)
	assert.Equal(t, 12*time.Hour, p.CancelWindow)
	assert.True(t, p.Pricing.TaxRate.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, p.Pricing.DefaultShipping.Equal(decimal.RequireFromString("20")))
	assert.True(t, p.Pricing.FreeShippingOver.IsZero())
	require.Len(t, p.Pricing.Zones, 1)
	assert.Equal(t, []string{"US", "CA"}, p.Pricing.Zones[0].Countries)
}

func TestParseStorePolicy_PartialKeepsDefaults(t *testing.T) {
	p, err := ParseStorePolicy([]byte("tax_rate: \"0.08\"\n"))
	require.NoError(t, err)

	def := DefaultStorePolicy()
	assert.Equal(t, def.OrderPrefix, p.OrderPrefix)
	assert.Equal(t, def.CancelWindow, p.CancelWindow)
	assert.True(t, p.Pricing.TaxRate.Equal(decimal.RequireFromString("0.08")))
}

func TestParseStorePolicy_Invalid(t *testing.T) {
	_, err := ParseStorePolicy([]byte("cancel_window: soon\n"))
	assert.Error(t, err)

	_, err = ParseStorePolicy([]byte("tax_rate: \"-1\"\n"))
	assert.Error(t, err)

	_, err = ParseStorePolicy([]byte("order_number:\n  prefix: A_B%\n"))
	assert.Error(t, err)
}

func TestLoadStorePolicy_EmptyPath(t *testing.T) {
	p, err := LoadStorePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultStorePolicy().OrderPrefix, p.OrderPrefix)
}
