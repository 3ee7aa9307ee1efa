package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 2333
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "studylog"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultStorageDir = "./data/materials"
	defaultJWTTTL     = 720 // hours
	defaultMaxUpload  = 50  // MB
	defaultMaxPages   = 200
	defaultOCREngine  = "tesseract"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Database       DatabaseConfig `yaml:"database"`
	Redis          RedisConfig    `yaml:"redis"`
	JWT            JWTConfig      `yaml:"jwt"`
	AI             AIConfig       `yaml:"ai"`
	OCR            OCRConfig      `yaml:"ocr"`
	Storage        StorageConfig  `yaml:"storage"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

type RedisConfig struct {
	URL string `yaml:"url"` // empty disables Redis-backed features
}

type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

// AIProvider describes one LLM endpoint.
type AIProvider struct {
	Type         string `yaml:"type"` // openai | openai-compatible | anthropic
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint"`
	DefaultModel string `yaml:"model"`
}

type AIConfig struct {
	Provider AIProvider `yaml:"provider"`
}

type OCRConfig struct {
	Engine          string   `yaml:"engine"` // vision | tesseract
	CredentialsFile string   `yaml:"credentials_file"`
	Languages       []string `yaml:"languages"`
	MaxPages        int      `yaml:"max_pages"`
}

type StorageConfig struct {
	Dir         string   `yaml:"dir"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
	S3          S3Config `yaml:"s3"`
}

type S3Config struct {
	Enable    bool   `yaml:"enable"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads and validates the YAML config file. A missing file yields
// a config of defaults so local development works without any setup.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = defaultEnv
	}
	if c.JWT.TTLHours <= 0 {
		c.JWT.TTLHours = defaultJWTTTL
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		c.Storage.Dir = defaultStorageDir
	}
	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = defaultMaxUpload
	}
	if strings.TrimSpace(c.OCR.Engine) == "" {
		c.OCR.Engine = defaultOCREngine
	}
	if c.OCR.MaxPages <= 0 {
		c.OCR.MaxPages = defaultMaxPages
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"ko", "en"}
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development") || strings.EqualFold(strings.TrimSpace(c.Env), "dev")
}

// DSNValue builds the MySQL DSN from the database section.
func (c DatabaseConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(c.User)
	if user == "" {
		user = defaultDBUser
	}
	password := c.Password
	if password == "" {
		password = defaultDBPassword
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(c.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(c.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=%s",
		user, password, host, port, name, charset, loc)
}
