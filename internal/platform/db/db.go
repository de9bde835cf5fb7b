package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const driverName = "mysql"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// LendingConfig holds the circulation policy defaults. Callers may override
// both values per request; these are only fallbacks.
type LendingConfig struct {
	DefaultLoanDays int    `yaml:"default_loan_days"`
	DailyFineRate   string `yaml:"daily_fine_rate"` // decimal string, e.g. "0.50"
}

type Config struct {
	Version    string         `yaml:"version"`
	Mode       string         `yaml:"mode"`
	ListenAddr string         `yaml:"listen_addr"`
	DB         DatabaseConfig `yaml:"database"`
	Lending    LendingConfig  `yaml:"lending"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Lending.DefaultLoanDays <= 0 {
		cfg.Lending.DefaultLoanDays = 14
	}
	if cfg.Lending.DailyFineRate == "" {
		cfg.Lending.DailyFineRate = "0.50"
	}
	return &cfg, nil
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	// Connection pool (keep the total below MySQL's max_connections)
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
