package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	JWTSecret  string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	Suppliers  []SupplierConfig `yaml:"suppliers"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr      string        `yaml:"addr" env-default:"redis:6379"`
	Db        int           `yaml:"db" env-default:"1"`
	ReportTTL time.Duration `yaml:"report_ttl" env-default:"24h"`
}

// RabbitMQ is optional: an empty URL disables both the report producer
// and the queue-triggered sync consumer.
type RabbitMQ struct {
	URL            string `yaml:"url" env:"RABBITMQ_URL" env-default:""`
	ReportQueue    string `yaml:"report_queue" env-default:"sync_reports"`
	SyncQueue      string `yaml:"sync_queue" env-default:"sync_requests"`
	WorkerPoolSize int    `yaml:"worker_pool_size" env-default:"1"`
}

// SupplierConfig names one vendor feed and its catalog partition.
type SupplierConfig struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	SupplierID       int    `yaml:"supplier_id"`
	XMLURL           string `yaml:"xml_url"`
	ParserType       string `yaml:"parser_type"`
	HiddenCategoryID int64  `yaml:"hidden_category_id"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", configPath)
	}

	// An incompletely configured supplier is excluded from the available
	// list rather than failing startup.
	valid := cfg.Suppliers[:0]
	for _, s := range cfg.Suppliers {
		if s.ID == "" || s.SupplierID == 0 || s.XMLURL == "" || s.ParserType == "" {
			log.Printf("skipping incomplete supplier config: %q", s.ID)
			continue
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		valid = append(valid, s)
	}
	cfg.Suppliers = valid

	return &cfg
}

// Supplier returns the supplier configuration registered under id.
func (c *Config) Supplier(id string) (SupplierConfig, bool) {
	for _, s := range c.Suppliers {
		if s.ID == id {
			return s, true
		}
	}
	return SupplierConfig{}, false
}

// DefaultSupplier is the fallback for single-supplier deployments when a
// request does not name a supplier.
func (c *Config) DefaultSupplier() (SupplierConfig, bool) {
	if len(c.Suppliers) == 0 {
		return SupplierConfig{}, false
	}
	return c.Suppliers[0], true
}
