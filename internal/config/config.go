package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "OPENTOK"

type Environment string

const (
	DevelopmentEnv Environment = "development"
	ProductionEnv  Environment = "production"
)

func (e Environment) IsProduction() bool {
	return e == ProductionEnv
}

func (e Environment) IsDevelopment() bool {
	return e == DevelopmentEnv
}

type Config struct {
	Env       Environment
	APIKey    string
	APISecret string
	APIURL    string
	Timeout   time.Duration
	Server    ServerConfig
	Relay     RelayConfig
}

type ServerConfig struct {
	Address   string
	AuthToken string
}

type RelayConfig struct {
	RedisAddr    string
	RedisDB      int
	RedisChannel string
	NatsAddr     string
	NatsSubject  string
	NatsQueue    string
}

var ErrMissingCredentials = errors.New("api_key and api_secret must be set")

func NewConfig() *Config {
	conf := &Config{
		Env:     DevelopmentEnv,
		APIURL:  "https://api.opentok.com",
		Timeout: 10 * time.Second,
		Server: ServerConfig{
			Address: ":8080",
		},
		Relay: RelayConfig{
			RedisChannel: "opentok:signals",
			NatsSubject:  "opentok.signals",
			NatsQueue:    "opentok-relay",
		},
	}

	return conf
}

// SetDefaults registers the defaults of NewConfig on v so that environment variables are
// picked up for every key
func SetDefaults(v *viper.Viper) {
	d := NewConfig()
	v.SetDefault("env", string(d.Env))
	v.SetDefault("api_key", "")
	v.SetDefault("api_secret", "")
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.auth_token", "")
	v.SetDefault("relay.redis_addr", "")
	v.SetDefault("relay.redis_db", 0)
	v.SetDefault("relay.redis_channel", d.Relay.RedisChannel)
	v.SetDefault("relay.nats_addr", "")
	v.SetDefault("relay.nats_subject", d.Relay.NatsSubject)
	v.SetDefault("relay.nats_queue", d.Relay.NatsQueue)
}

// Load reads configuration from the optional file and from OPENTOK_* environment variables,
// e.g. OPENTOK_API_KEY or OPENTOK_SERVER_AUTH_TOKEN
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	conf := &Config{
		Env:       Environment(v.GetString("env")),
		APIKey:    v.GetString("api_key"),
		APISecret: v.GetString("api_secret"),
		APIURL:    v.GetString("api_url"),
		Timeout:   v.GetDuration("timeout"),
		Server: ServerConfig{
			Address:   v.GetString("server.address"),
			AuthToken: v.GetString("server.auth_token"),
		},
		Relay: RelayConfig{
			RedisAddr:    v.GetString("relay.redis_addr"),
			RedisDB:      v.GetInt("relay.redis_db"),
			RedisChannel: v.GetString("relay.redis_channel"),
			NatsAddr:     v.GetString("relay.nats_addr"),
			NatsSubject:  v.GetString("relay.nats_subject"),
			NatsQueue:    v.GetString("relay.nats_queue"),
		},
	}

	if conf.Env != DevelopmentEnv && conf.Env != ProductionEnv {
		return nil, fmt.Errorf("env must be either 'development' or 'production', got %q", conf.Env)
	}

	return conf, nil
}

func (c *Config) RequireCredentials() error {
	if c.APIKey == "" || c.APISecret == "" {
		return ErrMissingCredentials
	}
	return nil
}
