package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jaam8/council_bot/pkg/edge"
	"github.com/jaam8/council_bot/pkg/redis"
	"github.com/jaam8/council_bot/pkg/tarantool"
	"github.com/joho/godotenv"
)

const (
	SessionBackendMemory    = "memory"
	SessionBackendTarantool = "tarantool"
	SessionBackendRedis     = "redis"
)

type Config struct {
	RestPort  string `yaml:"REST_PORT"  env:"REST_PORT" env-default:"8080"`
	BotToken  string `yaml:"BOT_TOKEN"  env:"BOT_TOKEN"`
	MmURL     string `yaml:"MM_URL"     env:"MM_URL"`
	MmWsURL   string `yaml:"MM_WS_URL"  env:"MM_WS_URL"`
	LogLevel  string `yaml:"LOG_LEVEL"  env:"LOG_LEVEL" env-default:"debug"`
	Contact   string `yaml:"CONTACT"    env:"CONTACT"`
	Edge      edge.Config
	Ballot    Ballot
	Admin     Admin
	Tarantool tarantool.Config `yaml:"TARANTOOL"  env:"TARANTOOL"`
	Redis     redis.Config     `yaml:"REDIS"      env:"REDIS"`
}

type Ballot struct {
	SessionBackend     string        `yaml:"SESSION_BACKEND"      env:"SESSION_BACKEND"      env-default:"tarantool"`
	SessionTTL         time.Duration `yaml:"SESSION_TTL"          env:"SESSION_TTL"          env-default:"2h"`
	CandidateCacheTTL  time.Duration `yaml:"CANDIDATE_CACHE_TTL"  env:"CANDIDATE_CACHE_TTL"  env-default:"120s"`
	CandidateCacheSize int           `yaml:"CANDIDATE_CACHE_SIZE" env:"CANDIDATE_CACHE_SIZE" env-default:"16"`
	CommandRate        float64       `yaml:"COMMAND_RATE"         env:"COMMAND_RATE"         env-default:"1"`
	CommandBurst       int           `yaml:"COMMAND_BURST"        env:"COMMAND_BURST"        env-default:"3"`
}

type Admin struct {
	PortalPass string        `yaml:"ADMIN_PORTAL_PASS" env:"ADMIN_PORTAL_PASS"`
	UnlockTTL  time.Duration `yaml:"ADMIN_UNLOCK_TTL"  env:"ADMIN_UNLOCK_TTL"  env-default:"30m"`
}

func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	switch config.Ballot.SessionBackend {
	case SessionBackendMemory, SessionBackendTarantool, SessionBackendRedis:
	default:
		return nil, errors.New("config: SESSION_BACKEND must be memory, tarantool or redis")
	}
	return &config, nil
}
