package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string // sqlite|postgres|memory
	DBDSN    string

	BlobBasePath string

	EnableLocalAuth bool
	AuthHMACSecret  string
	TokenTTL        time.Duration
	MediaURLTTL     time.Duration // lifetime of signed /assets links

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// CORSOrigins returns the allowed origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

const devSecret = "dev-secret-change-me"

func defaults(v *viper.Viper) {
	v.SetDefault("MODE", string(ModeOffline))
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("BLOB_BASE_PATH", "./data")
	v.SetDefault("ENABLE_LOCAL_AUTH", true)
	v.SetDefault("AUTH_HMAC_SECRET", devSecret)
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("MEDIA_URL_TTL", "1h")
	v.SetDefault("CORS_ORIGINS_ONLINE", "https://quiz.mindengage.ai")
	v.SetDefault("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010")
}

// Load reads defaults, then the optional config file at path (or quiz.yaml in the
// working directory when path is empty), then environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quiz")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	v.AutomaticEnv()

	mode := Mode(strings.ToLower(v.GetString("MODE")))
	if mode != ModeOnline && mode != ModeOffline {
		return Config{}, fmt.Errorf("unknown MODE %q", mode)
	}
	ttl := v.GetDuration("TOKEN_TTL")
	if ttl <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive, got %q", v.GetString("TOKEN_TTL"))
	}
	mediaTTL := v.GetDuration("MEDIA_URL_TTL")
	if mediaTTL <= 0 {
		return Config{}, fmt.Errorf("MEDIA_URL_TTL must be positive, got %q", v.GetString("MEDIA_URL_TTL"))
	}
	cfg := Config{
		Mode:               mode,
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:              v.GetString("DB_DSN"),
		BlobBasePath:       v.GetString("BLOB_BASE_PATH"),
		EnableLocalAuth:    v.GetBool("ENABLE_LOCAL_AUTH"),
		AuthHMACSecret:     v.GetString("AUTH_HMAC_SECRET"),
		TokenTTL:           ttl,
		MediaURLTTL:        mediaTTL,
		CORSOriginsOnline:  csv(v.GetString("CORS_ORIGINS_ONLINE")),
		CORSOriginsOffline: csv(v.GetString("CORS_ORIGINS_OFFLINE")),
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.Mode == ModeOnline && cfg.AuthHMACSecret == devSecret {
		return Config{}, errors.New("AUTH_HMAC_SECRET must be set in online mode")
	}
	if cfg.AuthHMACSecret == devSecret {
		log.Println("config: using the development HMAC secret")
	}
	return cfg, nil
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
