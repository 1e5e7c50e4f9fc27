package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath = "../../.env"

	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultConflictTTL = 168 * time.Hour // 7 days, spec.md §9
)

type Config struct {
	Env    string
	DB     DB
	Server Server
	Auth   Auth
	Sync   Sync
}

type DB struct {
	DatabaseURI string
	Migrations  string
}

type Server struct {
	RunAddress string
}

// Auth holds the signing material for the bearer boundary (SPEC_FULL.md §4.4).
type Auth struct {
	JWTSecret       string
	InternalAuthHash string
}

// Sync holds the server sync-service tunables (SPEC_FULL.md §4.2, §6).
type Sync struct {
	ConflictTTL time.Duration
}

func MustLoad() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("run_address", ":8080")
	viper.SetDefault("app_env", EnvLocal)
	viper.SetDefault("conflict_ttl", defaultConflictTTL.String())

	jwtSecret := viper.GetString("jwt_secret")
	if jwtSecret == "" {
		jwtSecret = "daylog-dev-secret-change-me"
	}

	conflictTTL, err := time.ParseDuration(viper.GetString("conflict_ttl"))
	if err != nil {
		conflictTTL = defaultConflictTTL
	}

	return &Config{
		Env: viper.GetString("app_env"),
		DB: DB{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: Server{
			RunAddress: viper.GetString("run_address"),
		},
		Auth: Auth{
			JWTSecret:        jwtSecret,
			InternalAuthHash: viper.GetString("internal_auth_hash"),
		},
		Sync: Sync{
			ConflictTTL: conflictTTL,
		},
	}
}

func (c *Config) IsProd() bool  { return c.Env == EnvProd }
func (c *Config) IsDev() bool   { return c.Env == EnvDev }
func (c *Config) IsLocal() bool { return c.Env == EnvLocal }
