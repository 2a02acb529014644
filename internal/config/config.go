package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

type Config struct {
	LogLevel          string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Storage           Storage       `yaml:"storage"`
	Redis             Redis         `yaml:"redis"`
	SQLiteStoragePath string        `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./games.db"`
	JWTSecretKey      string        `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY"`
	TokenTTL          time.Duration `yaml:"token-ttl" env:"TOKEN_TTL" env-default:"24h"`
	Rules             Rules         `yaml:"rules"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"redis"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Rules - switches of the game controller, both off by default.
// Booleans default to false: cleanenv would overwrite an explicit false with a "true" default.
type Rules struct {
	SkipTurnOrderCheck  bool `yaml:"skip-turn-order-check" env:"RULES_SKIP_TURN_ORDER_CHECK"`
	LegacyFullBoardScan bool `yaml:"legacy-full-board-scan" env:"RULES_LEGACY_FULL_BOARD_SCAN"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage.Driver {
	case DriverRedis, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", that.Storage.Driver)
	}

	if that.JWTSecretKey == "" {
		return fmt.Errorf("jwt-secret-key is required")
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
