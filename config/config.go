package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"vantera/models"
)

type Config struct {
	HTTPAddr  string
	LogFile   string
	OpsToken  string
	Database  DatabaseConfig
	RunLog    RunLogConfig
	Gate      GateConfig
	ATTOM     ATTOMConfig
	Apify     ApifyConfig
	S3        S3Config
	RabbitMQ  RabbitMQConfig
	Scheduler SchedulerConfig
	ProxyURL  string
	Cities    map[string]models.CityPreset
}

type DatabaseConfig struct {
	Driver string // postgres or sqlite
	URL    string
	Path   string
}

type RunLogConfig struct {
	Backend       string // db or memory
	SimulateDelay time.Duration
}

type GateConfig struct {
	DevHosts    []string
	Placeholder string
}

type ATTOMConfig struct {
	APIKey     string
	BaseURL    string
	PageSize   int
	RatePerSec float64
}

type ApifyConfig struct {
	BaseURL      string
	Token        string
	RealtorActor string
	PollDelay    time.Duration
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether enough is set to build an uploader.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type SchedulerConfig struct {
	BootstrapCron string
}

// DefaultDevHosts are the hosts that bypass the coming-soon gate
var DefaultDevHosts = []string{"dev.vantera.io", "localhost", "127.0.0.1"}

// DefaultCities is used when config/cities has no preset files
var DefaultCities = map[string]models.CityPreset{
	"miami": {
		Key:      "miami",
		Name:     "Miami",
		Slug:     "miami",
		Country:  "US",
		Region:   "FL",
		Timezone: "America/New_York",
		Lat:      25.7617,
		Lng:      -80.1918,
		Search:   "Miami, FL",
	},
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogFile:  getEnv("LOG_FILE", "server.log"),
		OpsToken: os.Getenv("OPS_TOKEN"),
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			URL:    os.Getenv("DATABASE_URL"),
			Path:   getEnv("DB_PATH", "vantera.db"),
		},
		RunLog: RunLogConfig{
			Backend:       getEnv("RUNLOG_BACKEND", "db"),
			SimulateDelay: getEnvDuration("RUN_SIMULATE_DELAY", 1500*time.Millisecond),
		},
		Gate: GateConfig{
			DevHosts:    getEnvList("GATE_DEV_HOSTS", DefaultDevHosts),
			Placeholder: getEnv("GATE_PLACEHOLDER", "/coming-soon"),
		},
		ATTOM: ATTOMConfig{
			APIKey:     os.Getenv("ATTOM_API_KEY"),
			BaseURL:    getEnv("ATTOM_BASE_URL", "https://api.gateway.attomdata.com/propertyapi/v1.0.0"),
			PageSize:   getEnvInt("ATTOM_PAGE_SIZE", 50),
			RatePerSec: getEnvFloat("ATTOM_RATE_PER_SEC", 5),
		},
		Apify: ApifyConfig{
			BaseURL:      getEnv("APIFY_BASE_URL", "https://api.apify.com/v2"),
			Token:        os.Getenv("APIFY_TOKEN"),
			RealtorActor: getEnv("APIFY_REALTOR_ACTOR", "epctex~realtor-scraper"),
			PollDelay:    getEnvDuration("APIFY_POLL_DELAY", 10*time.Second),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("S3_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "vantera.import_runs"),
		},
		Scheduler: SchedulerConfig{
			BootstrapCron: os.Getenv("BOOTSTRAP_CRON"),
		},
		ProxyURL: os.Getenv("HTTP_PROXY_URL"),
	}

	cities, err := LoadCityPresets(getEnv("CITY_PRESETS_DIR", "config/cities"))
	if err != nil {
		return nil, err
	}
	cfg.Cities = cities

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}

	return cfg, nil
}

// LoadCityPresets reads every *.yaml in dir. A missing or empty dir yields DefaultCities.
func LoadCityPresets(dir string) (map[string]models.CityPreset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return copyPresets(DefaultCities), nil
		}
		return nil, err
	}

	cities := make(map[string]models.CityPreset)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		var preset models.CityPreset
		if err := yaml.Unmarshal(data, &preset); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if preset.Slug == "" {
			return nil, fmt.Errorf("parse %s: slug is required", path)
		}
		if preset.Key == "" {
			preset.Key = preset.Slug
		}

		cities[preset.Key] = preset
	}

	if len(cities) == 0 {
		return copyPresets(DefaultCities), nil
	}
	return cities, nil
}

// PresetKeys returns preset keys in a stable order.
func PresetKeys(cities map[string]models.CityPreset) []string {
	keys := make([]string, 0, len(cities))
	for k := range cities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyPresets(src map[string]models.CityPreset) map[string]models.CityPreset {
	dst := make(map[string]models.CityPreset, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
