package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"cafe-pos/internal/services/menu"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the point-of-sale system
type Config struct {
	App      AppConfig        `yaml:"app"`
	Menu     []MenuItemConfig `yaml:"menu"`
	Database DatabaseConfig   `yaml:"database"`
	RabbitMQ RabbitMQConfig   `yaml:"rabbitmq"`
}

// AppConfig holds terminal-level settings
type AppConfig struct {
	Name           string `yaml:"name"`
	Terminal       string `yaml:"terminal"`
	CurrencySymbol string `yaml:"currency_symbol"`
}

// MenuItemConfig is one menu line as written in the config file
type MenuItemConfig struct {
	Name  string          `yaml:"name"`
	Price decimal.Decimal `yaml:"price"`
	Stock int             `yaml:"stock"`
}

// DatabaseConfig holds the sales ledger connection configuration
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds the bill bus connection configuration
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Default returns the built-in configuration: the standard cafe menu with
// the ledger and bill bus switched off
func Default() *Config {
	items := menu.DefaultItems()
	menuCfg := make([]MenuItemConfig, len(items))
	for i, item := range items {
		menuCfg[i] = MenuItemConfig{Name: item.Name, Price: item.Price, Stock: item.Stock}
	}

	return &Config{
		App: AppConfig{
			Name:           "cafe-pos",
			Terminal:       "counter-1",
			CurrencySymbol: "₹",
		},
		Menu: menuCfg,
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "pos",
			Password: "pos",
			Database: "cafe_pos",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults, then
// applies environment overrides. A missing file is not an error.
func Load(filename string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overrides values from environment variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	stringVars := map[string]*string{
		"POS_NAME":            &c.App.Name,
		"POS_TERMINAL":        &c.App.Terminal,
		"POS_CURRENCY_SYMBOL": &c.App.CurrencySymbol,
		"DB_HOST":             &c.Database.Host,
		"DB_USER":             &c.Database.User,
		"DB_PASSWORD":         &c.Database.Password,
		"DB_NAME":             &c.Database.Database,
		"RABBITMQ_HOST":       &c.RabbitMQ.Host,
		"RABBITMQ_USER":       &c.RabbitMQ.User,
		"RABBITMQ_PASSWORD":   &c.RabbitMQ.Password,
	}
	for key, target := range stringVars {
		if value, ok := lookup(key); ok {
			*target = value
		}
	}

	intVars := map[string]*int{
		"DB_PORT":       &c.Database.Port,
		"RABBITMQ_PORT": &c.RabbitMQ.Port,
	}
	for key, target := range intVars {
		if value, ok := lookup(key); ok {
			port, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*target = port
		}
	}

	boolVars := map[string]*bool{
		"DB_ENABLED":       &c.Database.Enabled,
		"RABBITMQ_ENABLED": &c.RabbitMQ.Enabled,
	}
	for key, target := range boolVars {
		if value, ok := lookup(key); ok {
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*target = enabled
		}
	}

	return nil
}

// Validate checks the parts of the config that the services depend on
func (c *Config) Validate() error {
	if c.App.Terminal == "" {
		return fmt.Errorf("app.terminal is required")
	}
	if err := menu.ValidateItems(c.MenuItems()); err != nil {
		return fmt.Errorf("invalid menu: %w", err)
	}
	if c.Database.Enabled && (c.Database.Port <= 0 || c.Database.Host == "") {
		return fmt.Errorf("database.host and database.port are required when the ledger is enabled")
	}
	if c.RabbitMQ.Enabled && (c.RabbitMQ.Port <= 0 || c.RabbitMQ.Host == "") {
		return fmt.Errorf("rabbitmq.host and rabbitmq.port are required when the bill bus is enabled")
	}
	return nil
}

// MenuItems converts the configured menu into catalog items
func (c *Config) MenuItems() []menu.Item {
	items := make([]menu.Item, len(c.Menu))
	for i, m := range c.Menu {
		items[i] = menu.Item{Name: m.Name, Price: m.Price, Stock: m.Stock}
	}
	return items
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
