package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Redis     RedisConfig               `mapstructure:"redis"`
	JWT       JWTConfig                 `mapstructure:"jwt"`
	Security  SecurityConfig            `mapstructure:"security"`
	Log       LogConfig                 `mapstructure:"log"`
	Kafka     KafkaConfig               `mapstructure:"kafka"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Ledger    LedgerConfig              `mapstructure:"ledger"`
	Fairness  FairnessConfig            `mapstructure:"fairness"`
	Games     GamesConfig               `mapstructure:"games"`
	Wagering  WageringConfig            `mapstructure:"wagering"`
	Sweeper   SweeperConfig             `mapstructure:"sweeper"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"` // off: no replay check, rate limit or shared round store
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	PoolSize  int           `mapstructure:"pool_size"`
	OpTimeout time.Duration `mapstructure:"op_timeout"` // per read/write; seamless callbacks wait on it
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// SecurityConfig holds secrets that never leave the process.
type SecurityConfig struct {
	MasterKey     string `mapstructure:"master_key"`     // 64-char hex, server seeds at rest
	CashierKey    string `mapstructure:"cashier_key"`    // back-office access key id
	CashierSecret string `mapstructure:"cashier_secret"` // back-office HMAC secret
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// KafkaConfig configures the settlement event stream. Empty brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LedgerConfig struct {
	Currency string `mapstructure:"currency"` // default for wallets opened without one
}

type FairnessConfig struct {
	CrashHouseEdge     float64       `mapstructure:"crash_house_edge"`
	CrashMinMultiplier float64       `mapstructure:"crash_min_multiplier"`
	CrashMaxMultiplier float64       `mapstructure:"crash_max_multiplier"`
	CrashSalt          string        `mapstructure:"crash_salt"` // public client seed for shared rounds
	BettingWindow      time.Duration `mapstructure:"betting_window"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	GrowthRate         float64       `mapstructure:"growth_rate"` // multiplier = e^(rate*seconds)
}

// GamesConfig holds the payout tables consumed by the game rules.
type GamesConfig struct {
	HouseEdge  float64                 `mapstructure:"house_edge"`
	Tolerance  float64                 `mapstructure:"tolerance"`
	RoundTTL   time.Duration           `mapstructure:"round_ttl"`
	MaxPayout  int64                   `mapstructure:"max_payout"`
	Wheel      []WheelSegmentConfig    `mapstructure:"wheel"`
	Plinko     map[string][]float64    `mapstructure:"plinko"` // rows -> slot multipliers
	Keno       map[string]KenoConfig   `mapstructure:"keno"`   // picks -> hits table
	Limits     map[string]LimitsConfig `mapstructure:"limits"`
	MinesBoard int                     `mapstructure:"mines_board"`
	HiLoDeck   int                     `mapstructure:"hilo_deck"`
	KenoSpace  int                     `mapstructure:"keno_space"`
	KenoDrawn  int                     `mapstructure:"keno_drawn"`
}

type WheelSegmentConfig struct {
	Weight     float64 `mapstructure:"weight"`
	Multiplier float64 `mapstructure:"multiplier"`
}

type KenoConfig struct {
	Payouts map[string]float64 `mapstructure:"payouts"` // hits -> multiplier
}

type LimitsConfig struct {
	Min int64 `mapstructure:"min"`
	Max int64 `mapstructure:"max"`
}

// WageringConfig feeds the bonus wagering contribution rule.
type WageringConfig struct {
	GameWeights    map[string]float64 `mapstructure:"game_weights"`
	DefaultWeight  float64            `mapstructure:"default_weight"`
	VIPMultipliers map[string]float64 `mapstructure:"vip_multipliers"`
}

// VIPLevels parses the VIP multiplier keys into levels.
func (w WageringConfig) VIPLevels() (map[int]float64, error) {
	levels := make(map[int]float64, len(w.VIPMultipliers))
	for k, m := range w.VIPMultipliers {
		level, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("wagering.vip_multipliers: level %q is not an integer", k)
		}
		levels[level] = m
	}
	return levels, nil
}

type SweeperConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// ProviderConfig describes one seamless-wallet aggregator.
type ProviderConfig struct {
	MemberPrefix string `mapstructure:"member_prefix"`
	AESKey       string `mapstructure:"aes_key"` // 32 bytes, never logged
	Currency     string `mapstructure:"currency"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CASINO_.
// Nested keys use underscore: CASINO_DATABASE_HOST, CASINO_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CASINO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "casino")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.op_timeout", "500ms")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "casino-core")
	v.SetDefault("security.master_key", "")
	v.SetDefault("security.cashier_key", "backoffice")
	v.SetDefault("security.cashier_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("kafka.topic", "casino.settlements")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("ledger.currency", "USD")

	v.SetDefault("fairness.crash_house_edge", 0.01)
	v.SetDefault("fairness.crash_min_multiplier", 1.0)
	v.SetDefault("fairness.crash_max_multiplier", 1000.0)
	v.SetDefault("fairness.crash_salt", "casino-core-crash")
	v.SetDefault("fairness.betting_window", "8s")
	v.SetDefault("fairness.tick_interval", "100ms")
	v.SetDefault("fairness.growth_rate", 0.06)

	v.SetDefault("games.house_edge", 0.01)
	v.SetDefault("games.tolerance", 0.001)
	v.SetDefault("games.round_ttl", "30m")
	v.SetDefault("games.max_payout", 100_000_000)
	v.SetDefault("games.mines_board", 25)
	v.SetDefault("games.hilo_deck", 52)
	v.SetDefault("games.keno_space", 40)
	v.SetDefault("games.keno_drawn", 10)
	v.SetDefault("games.wheel", []map[string]any{
		{"weight": 1, "multiplier": 0},
		{"weight": 1, "multiplier": 1.5},
		{"weight": 1, "multiplier": 0},
		{"weight": 1, "multiplier": 2},
		{"weight": 1, "multiplier": 0},
		{"weight": 1, "multiplier": 1.5},
		{"weight": 1, "multiplier": 0},
		{"weight": 1, "multiplier": 1.2},
		{"weight": 1, "multiplier": 0},
		{"weight": 1, "multiplier": 3.7},
	})
	v.SetDefault("games.plinko", map[string][]float64{
		"8": {5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.6},
	})
	v.SetDefault("games.keno", map[string]map[string]map[string]float64{
		"1": {"payouts": {"1": 3.96}},
		"2": {"payouts": {"2": 17.16}},
		"3": {"payouts": {"2": 2, "3": 59.01}},
	})

	v.SetDefault("wagering.default_weight", 1.0)
	v.SetDefault("wagering.game_weights", map[string]float64{"dice": 0.5, "limbo": 0.5})
	v.SetDefault("wagering.vip_multipliers", map[string]float64{"0": 1.0})

	v.SetDefault("sweeper.interval", "1m")
	v.SetDefault("sweeper.batch_size", 100)
}
