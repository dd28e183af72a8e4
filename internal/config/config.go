package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port               string              `yaml:"port"`
	WidgetAPIKeys      map[string]struct{} `yaml:"-"`
	CORSAllowedOrigins string              `yaml:"cors_allowed_origins"`
	DatabaseURL        string              `yaml:"database_url"`
	AutoCreateDB       bool                `yaml:"auto_create_db"`
	MaintenanceDB      string              `yaml:"maintenance_db"`
	LiveChat           LiveChatConfig      `yaml:"livechat"`
	Sentiment          SentimentConfig     `yaml:"sentiment"`
	Kafka              KafkaConfig         `yaml:"kafka"`
}

type LiveChatConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// SentimentConfig is optional: when disabled or incomplete the scoring
// pipeline short-circuits and conversations simply get no CSAT.
type SentimentConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// KafkaConfig is optional: with no brokers the dispatch sink stays
// in-memory.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	ActionsTopic string   `yaml:"actions_topic"`
	EventsTopic  string   `yaml:"events_topic"`
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func envBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}

func parseCSVSet(v string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, part := range strings.Split(v, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}
	return out
}

func Load() (Config, error) {
	cfg := Config{
		Port:          "8092",
		MaintenanceDB: "postgres",
		Sentiment: SentimentConfig{
			Timeout: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			ActionsTopic: "livechat-actions",
			EventsTopic:  "livechat-events",
		},
	}

	// Optional config file, overridden by environment below.
	path := strings.TrimSpace(getenv("CONFIG_FILE", "config.yaml"))
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = strings.TrimSpace(getenv("PORT", cfg.Port))
	cfg.CORSAllowedOrigins = strings.TrimSpace(getenv("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins))
	cfg.DatabaseURL = strings.TrimSpace(getenv("DATABASE_URL", cfg.DatabaseURL))
	if envBool("AUTO_CREATE_DB") {
		cfg.AutoCreateDB = true
	}
	cfg.MaintenanceDB = strings.TrimSpace(getenv("MAINTENANCE_DB", cfg.MaintenanceDB))

	cfg.LiveChat.BaseURL = strings.TrimSpace(getenv("LIVECHAT_BASE_URL", cfg.LiveChat.BaseURL))
	cfg.LiveChat.APIKey = strings.TrimSpace(getenv("LIVECHAT_API_KEY", cfg.LiveChat.APIKey))

	if envBool("SENTIMENT_ENABLED") {
		cfg.Sentiment.Enabled = true
	}
	cfg.Sentiment.Endpoint = strings.TrimSpace(getenv("SENTIMENT_ENDPOINT", cfg.Sentiment.Endpoint))
	cfg.Sentiment.APIKey = strings.TrimSpace(getenv("SENTIMENT_API_KEY", cfg.Sentiment.APIKey))
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sentiment.Timeout = time.Duration(n) * time.Second
		}
	}

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers := make([]string, 0)
		for _, b := range strings.Split(v, ",") {
			if s := strings.TrimSpace(b); s != "" {
				brokers = append(brokers, s)
			}
		}
		cfg.Kafka.Brokers = brokers
	}
	cfg.Kafka.ActionsTopic = strings.TrimSpace(getenv("KAFKA_ACTIONS_TOPIC", cfg.Kafka.ActionsTopic))
	cfg.Kafka.EventsTopic = strings.TrimSpace(getenv("KAFKA_EVENTS_TOPIC", cfg.Kafka.EventsTopic))

	keysRaw := strings.TrimSpace(getenv("WIDGET_API_KEYS", getenv("WIDGET_API_KEY", "")))
	cfg.WidgetAPIKeys = parseCSVSet(keysRaw)

	if len(cfg.WidgetAPIKeys) == 0 {
		return Config{}, errors.New("missing WIDGET_API_KEY (or WIDGET_API_KEYS)")
	}
	if cfg.Port == "" {
		return Config{}, errors.New("missing PORT")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("missing DATABASE_URL")
	}
	if cfg.LiveChat.BaseURL == "" {
		return Config{}, errors.New("missing LIVECHAT_BASE_URL")
	}
	if cfg.LiveChat.APIKey == "" {
		return Config{}, errors.New("missing LIVECHAT_API_KEY")
	}

	return cfg, nil
}

// SentimentConfigured reports whether the scoring pipeline may call
// the provider. Missing endpoint or credential silently disables
// scoring rather than failing startup.
func (c Config) SentimentConfigured() bool {
	return c.Sentiment.Enabled && c.Sentiment.Endpoint != "" && c.Sentiment.APIKey != ""
}
