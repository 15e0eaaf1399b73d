package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"

	"oshikatsu/internal/auth"
)

const defaultMySQLDSN = "user:password@tcp(localhost:3306)/oshikatsu?charset=utf8mb4&parseTime=True&loc=Local"

// PlaceholderJWTSecret is the built-in signing secret. It is only accepted
// when DevMode is set.
const PlaceholderJWTSecret = "change-me"

// Config holds application level configuration. It is built once at
// startup and passed by reference to the components that need it.
type Config struct {
	ServerPort         string
	DBDriver           string
	DatabaseDSN        string
	RedisAddr          string
	RedisDB            int
	RedisPass          string
	JWTSecret          string
	JWTIssuer          string
	TokenTTL           time.Duration
	BcryptCost         int
	PasswordPolicy     auth.PasswordPolicy
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
	SwaggerHost        string
	ResetDB            bool
	DevMode            bool
}

// Load builds Config from the optional YAML file named by CONFIG_FILE and
// the environment. Environment variables win over file values, which win
// over defaults.
func Load() (*Config, error) {
	k := koanf.New(".")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	return FromKoanf(k)
}

// FromKoanf resolves a Config from already-loaded koanf values plus the environment.
func FromKoanf(k *koanf.Koanf) (*Config, error) {
	defaults := auth.DefaultPasswordPolicy()

	dsnDefault := getEnv("MYSQL_DSN", defaultMySQLDSN)

	cfg := &Config{
		ServerPort:  str(k, "server.port", "SERVER_PORT", "8080"),
		DBDriver:    strings.ToLower(str(k, "database.driver", "DB_DRIVER", "mysql")),
		DatabaseDSN: str(k, "database.dsn", "DATABASE_DSN", dsnDefault),
		RedisAddr:   str(k, "redis.addr", "REDIS_ADDR", "localhost:6379"),
		RedisDB:     integer(k, "redis.db", "REDIS_DB", 0),
		RedisPass:   str(k, "redis.password", "REDIS_PASSWORD", ""),
		JWTSecret:   str(k, "jwt.secret", "JWT_SECRET", PlaceholderJWTSecret),
		JWTIssuer:   str(k, "jwt.issuer", "JWT_ISSUER", "oshikatsu"),
		TokenTTL:    duration(k, "jwt.ttl", "JWT_TTL", auth.DefaultTokenTTL),
		BcryptCost:  integer(k, "auth.bcrypt_cost", "BCRYPT_COST", bcrypt.DefaultCost),
		PasswordPolicy: auth.PasswordPolicy{
			MinLength:      integer(k, "password.min_length", "PASSWORD_MIN_LENGTH", defaults.MinLength),
			MaxLength:      integer(k, "password.max_length", "PASSWORD_MAX_LENGTH", defaults.MaxLength),
			RequireUpper:   boolean(k, "password.require_upper", "PASSWORD_REQUIRE_UPPER", defaults.RequireUpper),
			RequireLower:   boolean(k, "password.require_lower", "PASSWORD_REQUIRE_LOWER", defaults.RequireLower),
			RequireDigit:   boolean(k, "password.require_digit", "PASSWORD_REQUIRE_DIGIT", defaults.RequireDigit),
			RequireSpecial: boolean(k, "password.require_special", "PASSWORD_REQUIRE_SPECIAL", defaults.RequireSpecial),
		},
		CORSAllowedOrigins: list(k, "cors.allowed_origins", "CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		LogLevel:           str(k, "log.level", "LOG_LEVEL", "info"),
		LogFormat:          str(k, "log.format", "LOG_FORMAT", "json"),
		SwaggerHost:        str(k, "swagger.host", "SWAGGER_HOST", ""),
		ResetDB:            boolean(k, "database.reset", "RESET_DB", false),
		DevMode:            boolean(k, "app.dev_mode", "DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	if c.JWTSecret == PlaceholderJWTSecret && !c.DevMode {
		return fmt.Errorf("jwt secret is the built-in placeholder; set JWT_SECRET or enable DEV_MODE")
	}
	if c.DBDriver != "mysql" && c.DBDriver != "postgres" {
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	p := c.PasswordPolicy
	if p.MinLength < 1 || p.MaxLength < p.MinLength {
		return fmt.Errorf("invalid password length bounds [%d, %d]", p.MinLength, p.MaxLength)
	}
	return nil
}

func str(k *koanf.Koanf, key, env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	if v := k.String(key); v != "" {
		return v
	}
	return def
}

func integer(k *koanf.Koanf, key, env string, def int) int {
	if v := os.Getenv(env); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	if k.Exists(key) {
		return k.Int(key)
	}
	return def
}

func boolean(k *koanf.Koanf, key, env string, def bool) bool {
	if v := os.Getenv(env); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	if k.Exists(key) {
		return k.Bool(key)
	}
	return def
}

func duration(k *koanf.Koanf, key, env string, def time.Duration) time.Duration {
	if v := os.Getenv(env); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	if k.Exists(key) {
		return k.Duration(key)
	}
	return def
}

func list(k *koanf.Koanf, key, env string, def []string) []string {
	if v := os.Getenv(env); v != "" {
		return splitList(v)
	}
	if k.Exists(key) {
		if vals := k.Strings(key); len(vals) > 0 {
			return vals
		}
		if v := k.String(key); v != "" {
			return splitList(v)
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
