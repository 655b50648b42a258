package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	TLS             Certs         `yaml:"tls"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// 行ロック待ちの上限（秒）。超えたら ErrTransient
	LockWaitTimeout int `yaml:"lock_wait_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	CookieTTL time.Duration `yaml:"cookie_ttl"`
}

type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type Config struct {
	Version  string         `yaml:"version"`
	Mode     string         `yaml:"mode"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
}

// Default は設定ファイルで省略された項目の既定値
func Default() Config {
	return Config{
		Mode: ModeDev,
		Server: ServerConfig{
			Addr:            ":8443",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverMySQL,
			Host:            "127.0.0.1",
			Port:            3306,
			MaxOpenConns:    80,
			MaxIdleConns:    20,
			ConnMaxLifetime: 30 * time.Minute,
			LockWaitTimeout: 5,
		},
		Auth: AuthConfig{
			TokenTTL:  24 * time.Hour,
			CookieTTL: 24 * time.Hour,
		},
		Redis: RedisConfig{
			IdempotencyTTL: 24 * time.Hour,
		},
		Log: LogConfig{Level: "info"},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
		},
	}
}

func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	return Parse(buf)
}

// Parse decodes YAML over the defaults and applies environment overrides.
func Parse(buf []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// 秘密情報は環境変数を優先
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("JWT_SECRET"); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	if v, ok := lookup("DB_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup("DB_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT: %w", err)
		}
		c.Database.Port = p
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode))
	}
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.DBName == "" {
			errs = append(errs, errors.New("database.dbname is required for mysql"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverMySQL, DriverMemory, c.Database.Driver))
	}
	if c.Mode == ModeRelease && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (or JWT_SECRET) is required in release mode"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if (c.Server.TLS.Cert == "") != (c.Server.TLS.Key == "") {
		errs = append(errs, errors.New("server.tls.cert and server.tls.key must be set together"))
	}
	return errors.Join(errs...)
}

func (c *Config) TLSEnabled() bool { return c.Server.TLS.Cert != "" && c.Server.TLS.Key != "" }
