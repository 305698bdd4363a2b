// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server and historian configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Rooms     RoomsConfig     `mapstructure:"rooms"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Historian HistorianConfig `mapstructure:"historian"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// OutboxSize bounds the per-connection queue of outgoing frames.
	OutboxSize   int           `mapstructure:"outbox_size"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type RedisConfig struct {
	Addr  string `mapstructure:"addr"`
	DB    int    `mapstructure:"db"`
	Queue string `mapstructure:"queue"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns URL when set, otherwise builds one from the individual fields. An empty
// result means no database is configured.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RoomsConfig struct {
	IdleTTL          time.Duration `mapstructure:"idle_ttl"`
	ReapInterval     time.Duration `mapstructure:"reap_interval"`
	// RequireSeatToken refuses bare player-id reconnects. Player ids are public in every
	// snapshot, so turning it off lets anyone claim a disconnected seat.
	RequireSeatToken bool          `mapstructure:"require_seat_token"`

	Stacking          bool `mapstructure:"stacking"`
	ShuffleHandsCards int  `mapstructure:"shuffle_hands_cards"`
	HandSize          int  `mapstructure:"hand_size"`
	MaxPlayers        int  `mapstructure:"max_players"`
}

type AuthConfig struct {
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	PublicKeyPath  string        `mapstructure:"public_key_path"`
}

type HistorianConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	FlushDelay time.Duration `mapstructure:"flush_delay"`
	Inactivity time.Duration `mapstructure:"inactivity"`
}

// legacyEnv maps keys onto the unprefixed variable names used by existing deployments.
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"log.level":         "LOG_LEVEL",
	"redis.addr":        "REDIS_ADDR",
	"redis.db":          "REDIS_DB",
	"redis.queue":       "HISTORIAN_QUEUE_NAME",
	"database.url":      "DATABASE_URL",
	"database.host":     "PG_HOST",
	"database.port":     "PG_PORT",
	"database.user":     "PG_USER",
	"database.password": "PG_PASSWORD",
	"database.name":     "PG_DB",
	"database.sslmode":  "PG_SSLMODE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"localhost:*", "127.0.0.1:*"})
	v.SetDefault("server.outbox_size", 64)
	v.SetDefault("server.ping_interval", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "uno_actions")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "uno")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("rooms.idle_ttl", 10*time.Minute)
	v.SetDefault("rooms.reap_interval", time.Minute)
	v.SetDefault("rooms.require_seat_token", true)
	v.SetDefault("rooms.stacking", false)
	v.SetDefault("rooms.shuffle_hands_cards", 1)
	v.SetDefault("rooms.hand_size", 7)
	v.SetDefault("rooms.max_players", 10)

	v.SetDefault("auth.token_ttl", time.Duration(0))
	v.SetDefault("auth.private_key_path", "")
	v.SetDefault("auth.public_key_path", "")

	v.SetDefault("historian.batch_size", 20)
	v.SetDefault("historian.flush_delay", 500*time.Millisecond)
	v.SetDefault("historian.inactivity", 10*time.Minute)
}

// Load reads configuration from defaults, an optional file and the environment.
// Environment keys use the UNO_ prefix, e.g. UNO_ROOMS_STACKING=true.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("UNO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "UNO_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Rooms.ReapInterval <= 0 {
		return nil, fmt.Errorf("rooms.reap_interval must be positive")
	}
	if cfg.Server.OutboxSize <= 0 {
		return nil, fmt.Errorf("server.outbox_size must be positive")
	}
	return &cfg, nil
}
