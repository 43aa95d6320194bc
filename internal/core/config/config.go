package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name        string
	Env         string // development / production
	HTTP        HTTP
	Admin       HTTP
	CORSOrigins []string `mapstructure:"corsOrigins"`
}

func (a App) IsProduction() bool { return strings.EqualFold(a.Env, "production") }

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret   string
	Issuer   string
	TTLHours int `mapstructure:"ttlHours"`
}

func (j JWT) TTL() time.Duration { return time.Duration(j.TTLHours) * time.Hour }

type Auth struct {
	BcryptCost      int    `mapstructure:"bcryptCost"`
	HashParallel    int    `mapstructure:"hashParallel"` // 同时进行的 bcrypt 计算上限
	CodeTTLSec      int    `mapstructure:"codeTTLSec"`
	CodeIntervalSec int    `mapstructure:"codeIntervalSec"` // 同一手机号发送间隔
	DefaultRole     string `mapstructure:"defaultRole"`
	ExposeCode      bool   `mapstructure:"exposeCode"` // 仅非生产环境：响应中回显验证码
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	Seed               bool
	LogLevel           string
}

type Storage struct {
	Endpoint  string
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Bucket    string
	UseSSL    bool   `mapstructure:"useSSL"`
	PublicURL string `mapstructure:"publicURL"` // 对外访问前缀，如 CDN
}

func (s Storage) Enabled() bool { return s.Endpoint != "" && s.Bucket != "" }

type Seed struct {
	AdminPhone    string `mapstructure:"adminPhone"`
	AdminPassword string `mapstructure:"adminPassword"`
}

type Comment struct {
	RequireAudit bool `mapstructure:"requireAudit"`
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	Auth    Auth
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Storage Storage
	Seed    Seed
	Comment Comment
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "wylm-portal")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "wylm-portal")
	v.SetDefault("jwt.ttlHours", 24*7)
	v.SetDefault("auth.bcryptCost", 10)
	v.SetDefault("auth.hashParallel", 4)
	v.SetDefault("auth.codeTTLSec", 300)
	v.SetDefault("auth.codeIntervalSec", 60)
	v.SetDefault("auth.defaultRole", "user")
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.maxOpenConns", 50)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("storage.bucket", "gallery")
}

// Load 读取 yaml + APP_ 前缀环境变量（APP_JWT_SECRET 覆盖 jwt.secret）
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.App.IsProduction() {
		c.Auth.ExposeCode = false
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.TTLHours <= 0 {
		errs = append(errs, errors.New("jwt.ttlHours must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcryptCost out of range: %d", c.Auth.BcryptCost))
	}
	if c.Auth.CodeTTLSec <= 0 {
		errs = append(errs, errors.New("auth.codeTTLSec must be positive"))
	}
	return errors.Join(errs...)
}
