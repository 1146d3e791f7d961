package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment. A local
// .env file is loaded first when present.
type Config struct {
	DatabaseURL       string   `env:"DATABASE_URL"`
	Port              string   `env:"PORT" envDefault:"18911"`
	JWTSecret         string   `env:"JWT_SECRET"`
	OpenAIAPIKey      string   `env:"OPENAI_API_KEY"`
	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	GenerationPerMin  float64  `env:"GENERATION_RATE_PER_MINUTE" envDefault:"6"`
	GenerationBurst   int      `env:"GENERATION_BURST" envDefault:"3"`
	MigrationsPath    string   `env:"MIGRATIONS_PATH" envDefault:"file://db/migrations"`
}

// Load reads .env (if any) and parses the environment. DATABASE_URL and
// JWT_SECRET are required; everything else has a workable default.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return cfg, nil
}
