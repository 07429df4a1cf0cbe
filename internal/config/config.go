package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

type Config struct {
	AdsURL      string
	CrmURL      string
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level
	CORSOrigins []string

	Analyzer        string // gemini | static
	GeminiAPIKey    string
	GeminiModel     string
	AnalysisTimeout time.Duration
	AnalysisRetries int
	AnalysisRPS     float64

	StoreDriver string // memory | sqlite
	StoreDSN    string
}

// FromEnv reads an optional config.yaml and then the environment. Env vars
// keep their flat names (PORT, GEMINI_API_KEY, ...).
func FromEnv() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("analyzer", "gemini")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("analysis_timeout_seconds", 30)
	v.SetDefault("analysis_retries", 2)
	v.SetDefault("analysis_rps", 1.0)
	v.SetDefault("store_driver", "memory")
	v.SetDefault("store_dsn", "funnel.db")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, eris.Wrap(err, "config: read file")
		}
	}

	lvl := slog.LevelInfo
	if err := lvl.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return Config{}, eris.Wrapf(err, "config: log level %q", v.GetString("log_level"))
	}

	cfg := Config{
		AdsURL:          v.GetString("ads_api_url"),
		CrmURL:          v.GetString("crm_api_url"),
		Port:            v.GetString("port"),
		HTTPTimeout:     time.Duration(v.GetInt("http_timeout_seconds")) * time.Second,
		LogLevel:        lvl,
		CORSOrigins:     splitCSV(v.GetString("cors_origins")),
		Analyzer:        strings.ToLower(v.GetString("analyzer")),
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		GeminiModel:     v.GetString("gemini_model"),
		AnalysisTimeout: time.Duration(v.GetInt("analysis_timeout_seconds")) * time.Second,
		AnalysisRetries: v.GetInt("analysis_retries"),
		AnalysisRPS:     v.GetFloat64("analysis_rps"),
		StoreDriver:     strings.ToLower(v.GetString("store_driver")),
		StoreDSN:        v.GetString("store_dsn"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Analyzer {
	case "gemini", "static":
	default:
		return eris.Errorf("config: unknown analyzer %q", c.Analyzer)
	}
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return eris.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.HTTPTimeout <= 0 {
		return eris.New("config: http_timeout_seconds must be > 0")
	}
	if c.AnalysisRetries < 0 {
		return eris.Errorf("config: analysis_retries must be >= 0, got %d", c.AnalysisRetries)
	}
	if c.AnalysisRPS < 0 {
		return eris.Errorf("config: analysis_rps must be >= 0, got %v", c.AnalysisRPS)
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
