package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SRZones/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			PerSecond float64 `yaml:"per_second" validate:"gte=0"`
			Burst     int     `yaml:"burst" default:"20" validate:"gt=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled        bool   `yaml:"enabled"`
		Path           string `yaml:"path" default:"/metrics"`
		PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
		Job            string `yaml:"job" default:"srzones"`
	} `yaml:"metrics"`
	Input struct {
		Source      string `yaml:"source" default:"csv" validate:"oneof=csv clickhouse"`
		CSVFile     string `yaml:"csv_file"`
		CloseColumn int    `yaml:"close_column" default:"4" validate:"gte=1"`
		Timeframe   string `yaml:"timeframe" default:"1h" validate:"oneof=1m 5m 1h 1d"`
		Table       string `yaml:"table"`
	} `yaml:"input"`
	Run struct {
		Pair     string `yaml:"pair"`
		FromDate string `yaml:"from_date"`
		ToDate   string `yaml:"to_date"`
	} `yaml:"run"`
	Params struct {
		Period        int     `yaml:"period" default:"250" validate:"gt=0"`
		MinHeightPct  float64 `yaml:"min_ht" default:"0.02" validate:"gt=0"`
		ZoneWidth     float64 `yaml:"zone_width" default:"0.0075" validate:"gt=0"`
		MinTouches    int     `yaml:"min_touches" default:"4" validate:"gte=0"`
		Clusters      int     `yaml:"n_clusters" default:"16" validate:"gt=0"`
		Clustering    string  `yaml:"clustering" default:"hier" validate:"oneof=kmeans hier hierarchical"`
		Centering     string  `yaml:"centering" default:"median" validate:"oneof=mean median"`
		Seed          *int64  `yaml:"seed"`
		MinExtrema    int     `yaml:"min_extrema" default:"25" validate:"gt=0"`
		JPYMultiplier float64 `yaml:"jpy_multiplier" default:"2" validate:"gt=0"`
	} `yaml:"params"`
	Output struct {
		Dir       string   `yaml:"dir" default:"."`
		LevelsCSV string   `yaml:"levels_csv"`
		Stores    []string `yaml:"stores" default:"[\"file\"]" validate:"min=1,dive,oneof=file sqlite postgres clickhouse redis"`
	} `yaml:"output"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxConns        int32         `yaml:"max_conns" default:"4"`
		MinConns        int32         `yaml:"min_conns"`
		MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" default:"30m"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path" default:"srzones.db"`
	} `yaml:"sqlite"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		PoolSize int           `yaml:"pool_size" default:"10"`
		Prefix   string        `yaml:"prefix" default:"srzones"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Cache struct {
		TTL             time.Duration `yaml:"ttl" default:"10m"`
		L1TTL           time.Duration `yaml:"l1_ttl" default:"30s" validate:"gt=0"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"sr-zones"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Schedule struct {
		RebuildCron string   `yaml:"rebuild_cron"`
		Pairs       []string `yaml:"pairs"`
		HistoryDays int      `yaml:"history_days" default:"365" validate:"gt=0"`
	} `yaml:"schedule"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"2" validate:"gt=0"`
		RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		Prefix     string        `yaml:"prefix" default:"srzones:queue"`
	} `yaml:"queue"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, fills defaults and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("INPUT_CSV_FILE"); v != "" {
		c.Input.CSVFile = v
	}
	if v := os.Getenv("OUTPUT_STORES"); v != "" {
		c.Output.Stores = util.SplitList(v)
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	c.Redis.Port = util.ParseIntDefault(os.Getenv("REDIS_PORT"), c.Redis.Port)
	c.Server.Port = util.ParseIntDefault(os.Getenv("SERVER_PORT"), c.Server.Port)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("SCHEDULE_PAIRS"); v != "" {
		c.Schedule.Pairs = util.SplitList(v)
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Validate checks field rules and the dependencies between sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Params.MinExtrema < c.Params.Clusters {
		return errors.New("params.min_extrema cannot be below params.n_clusters")
	}
	if c.UsesClickHouse() && c.ClickHouse.Host == "" {
		return errors.New("clickhouse.host is required when clickhouse is used")
	}
	if c.HasStore("postgres") && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required for the postgres store")
	}
	if c.HasStore("redis") && !c.Redis.Enabled {
		return errors.New("redis.enabled must be set for the redis store")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return errors.New("redis.enabled must be set for the rebuild queue")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Schedule.RebuildCron != "" && len(c.Schedule.Pairs) == 0 {
		return errors.New("schedule.pairs cannot be empty when rebuild_cron is set")
	}
	return nil
}

func (c *Config) HasStore(name string) bool {
	for _, s := range c.Output.Stores {
		if s == name {
			return true
		}
	}
	return false
}

func (c *Config) UsesClickHouse() bool {
	return c.Input.Source == "clickhouse" || c.HasStore("clickhouse")
}
