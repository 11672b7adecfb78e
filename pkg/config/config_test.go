package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.Inventory.StoreDriver)
	assert.Zero(t, cfg.Inventory.ReservationTTL)
	assert.Equal(t, 5*time.Minute, cfg.Inventory.SweepInterval)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("INVENTORY_STORE", "MEMORY")
	v.Set("INVENTORY_SWEEP_INTERVAL", "90")
	v.Set("INVENTORY_RESERVATION_TTL", "2h")
	v.Set("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	v.Set("DB_PORT", "6543")
	v.Set("DB_MIGRATE", "false")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Inventory.StoreDriver)
	assert.Equal(t, 90*time.Second, cfg.Inventory.SweepInterval)
	assert.Equal(t, 2*time.Hour, cfg.Inventory.ReservationTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.False(t, cfg.DB.Migrate)
}

func TestFromViper_StoreInvalido(t *testing.T) {
	v := viper.New()
	v.Set("INVENTORY_STORE", "sqlite")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "vend", Password: "p@ss:w/rd", DBName: "vendhub", SSLMode: "disable"}
	assert.Equal(t, "postgres://vend:p%40ss%3Aw%2Frd@db:5432/vendhub?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
