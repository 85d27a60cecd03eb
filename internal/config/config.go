package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis    Redis   `yaml:"redis"`
	Session  Session `yaml:"session"`
	Game     Game    `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Session struct {
	TTLMinutes int `yaml:"ttl-minutes" env:"SESSION_TTL_MINUTES" env-default:"15"`
}

type Game struct {
	StaleAfterMinutes int `yaml:"stale-after-minutes" env:"GAME_STALE_AFTER_MINUTES" env-default:"30"`
	MinSize           int `yaml:"min-size" env:"GAME_MIN_SIZE" env-default:"3"`
	MaxSize           int `yaml:"max-size" env:"GAME_MAX_SIZE" env-default:"10"`
}

func (that *Session) TTL() time.Duration {
	return time.Duration(that.TTLMinutes) * time.Minute
}

func (that *Game) StaleAfter() time.Duration {
	return time.Duration(that.StaleAfterMinutes) * time.Minute
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
