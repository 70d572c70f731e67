package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Environment struct {
	IsDevelopment bool
	Port          string

	APIURL         string
	FunctionKey    string
	BackendTimeout time.Duration

	Auth0Domain   string
	Auth0Audience string
	JWTSecret     string

	DBURL      string
	SQLitePath string

	AllowedOrigins    []string
	PointUpdatePolicy string
	EditorSessionTTL  time.Duration
	LogLevel          string
}

// Load reads .env, when present, and then the process environment.
func Load() (Environment, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	env := Environment{
		Port:              getEnv("PORT", "8080"),
		APIURL:            os.Getenv("API_URL"),
		FunctionKey:       os.Getenv("FUNCTION_KEY"),
		BackendTimeout:    getDuration("BACKEND_TIMEOUT", 15*time.Second),
		Auth0Domain:       os.Getenv("AUTH0_DOMAIN"),
		Auth0Audience:     os.Getenv("AUTH0_AUDIENCE"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		DBURL:             os.Getenv("DB_URL"),
		SQLitePath:        getEnv("SQLITE_PATH", "tassi.db"),
		AllowedOrigins:    getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		PointUpdatePolicy: getEnv("POINT_UPDATE_POLICY", "optimistic"),
		EditorSessionTTL:  getDuration("EDITOR_SESSION_TTL", 30*time.Minute),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	// without an Auth0 tenant the server only accepts locally signed tokens
	env.IsDevelopment = env.Auth0Domain == ""

	if env.APIURL == "" {
		return env, errors.New("config: API_URL not set")
	}
	if env.IsDevelopment && env.JWTSecret == "" {
		return env, errors.New("config: JWT_SECRET must be set when AUTH0_DOMAIN is empty")
	}
	if !env.IsDevelopment && env.Auth0Audience == "" {
		return env, errors.New("config: AUTH0_AUDIENCE not set")
	}
	return env, nil
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(env Environment) {
	level, err := zerolog.ParseLevel(env.LogLevel)
	if err != nil || env.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if env.IsDevelopment {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts a Go duration or a plain number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
	return fallback
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
