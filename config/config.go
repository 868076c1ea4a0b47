package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // memory | postgres | bolt | rest
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
	Path     string `yaml:"path"` // bolt file, relative to the workdir
}

// RestConfig hosted table and auth API
type RestConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Timeout int    `yaml:"timeout"` // seconds
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web config
type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"` // session cookie key

	// AllowOrigins lists the browser origins allowed to call the API with
	// credentials, empty disables CORS
	AllowOrigins []string `yaml:"allow_origins"`
}

// AuthConfig identity provider config
type AuthConfig struct {
	Provider    string   `yaml:"provider"` // local | hosted
	JWTSecret   string   `yaml:"jwt_secret"`
	TokenTTL    int      `yaml:"token_ttl"` // hours
	RedirectURL string   `yaml:"redirect_url"`
	AdminEmails []string `yaml:"admin_emails"`
}

// MailConfig SMTP relay used for verification mail
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LogConfig Log config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// CartConfig session cart housekeeping
type CartConfig struct {
	IdleTTL       int `yaml:"idle_ttl"`       // minutes
	ImportWorkers int `yaml:"import_workers"` // bulk import pool size
	LogRetention  int `yaml:"log_retention"`  // days of admin log kept
}

type AppConfig struct {
	System   SysConfig  `yaml:"system"`
	Web      WebConfig  `yaml:"web"`
	Database DBConfig   `yaml:"database"`
	Rest     RestConfig `yaml:"rest"`
	Auth     AuthConfig `yaml:"auth"`
	Mail     MailConfig `yaml:"mail"`
	Logger   LogConfig  `yaml:"logger"`
	Cart     CartConfig `yaml:"cart"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// BoltPath resolves the bolt database file.
func (c *AppConfig) BoltPath() string {
	if c.Database.Path == "" {
		return path.Join(c.GetDataDir(), "storefront.db")
	}
	if path.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return path.Join(c.System.Workdir, c.Database.Path)
}

func (c *AppConfig) RestTimeout() time.Duration {
	return time.Duration(c.Rest.Timeout) * time.Second
}

func (c *AppConfig) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTL) * time.Hour
}

func (c *AppConfig) CartIdleTTL() time.Duration {
	return time.Duration(c.Cart.IdleTTL) * time.Minute
}

func (c *AppConfig) LogRetention() time.Duration {
	return time.Duration(c.Cart.LogRetention) * 24 * time.Hour
}

// IsAdmin reports whether email may use the admin API. An empty allow list
// admits every signed in user.
func (c *AppConfig) IsAdmin(email string) bool {
	if len(c.Auth.AdminEmails) == 0 {
		return true
	}
	for _, e := range c.Auth.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
}

// DefaultAppConfig returns the settings used when no file is given.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "Storefront",
			Location: "Asia/Riyadh",
			Workdir:  "/var/storefront",
			Debug:    true,
		},
		Web: WebConfig{
			Host:   "0.0.0.0",
			Port:   1816,
			Secret: "9b6de5cc-0731-4b0c-9e36-1b5e2b0f1c5d",
		},
		Database: DBConfig{
			Type:     "memory",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "storefront",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  50,
			IdleConn: 10,
			Path:     "data/storefront.db",
		},
		Rest: RestConfig{Timeout: 10},
		Auth: AuthConfig{
			Provider:    "local",
			JWTSecret:   "change-me",
			TokenTTL:    24,
			RedirectURL: "http://127.0.0.1:1816/api/v1/auth/verify",
		},
		Mail: MailConfig{
			Host: "127.0.0.1",
			Port: 1025,
			From: "no-reply@storefront.local",
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/storefront/storefront.log",
		},
		Cart: CartConfig{
			IdleTTL:       120,
			ImportWorkers: 4,
			LogRetention:  90,
		},
	}
}

// LoadConfig reads cfile, falling back to the defaults, then applies
// STOREFRONT_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	if cfile == "" {
		cfile = "storefront.yml"
	}
	cfg := DefaultAppConfig()
	data, err := os.ReadFile(cfile)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			zap.S().Errorf("parse config %s: %v", cfile, err)
		}
	}
	applyEnv(cfg)
	cfg.initDirs()
	return cfg
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("STOREFRONT_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvBoolValue("STOREFRONT_SYSTEM_DEBUG", &cfg.System.Debug)
	setEnvValue("STOREFRONT_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("STOREFRONT_WEB_PORT", &cfg.Web.Port)
	setEnvValue("STOREFRONT_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("STOREFRONT_DB_TYPE", &cfg.Database.Type)
	setEnvValue("STOREFRONT_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("STOREFRONT_DB_PORT", &cfg.Database.Port)
	setEnvValue("STOREFRONT_DB_NAME", &cfg.Database.Name)
	setEnvValue("STOREFRONT_DB_USER", &cfg.Database.User)
	setEnvValue("STOREFRONT_DB_PWD", &cfg.Database.Passwd)
	setEnvValue("STOREFRONT_DB_PATH", &cfg.Database.Path)
	setEnvBoolValue("STOREFRONT_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("STOREFRONT_REST_URL", &cfg.Rest.URL)
	setEnvValue("STOREFRONT_REST_API_KEY", &cfg.Rest.APIKey)

	setEnvValue("STOREFRONT_AUTH_PROVIDER", &cfg.Auth.Provider)
	setEnvValue("STOREFRONT_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	setEnvValue("STOREFRONT_AUTH_REDIRECT_URL", &cfg.Auth.RedirectURL)
	if v := os.Getenv("STOREFRONT_WEB_ALLOW_ORIGINS"); v != "" {
		cfg.Web.AllowOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("STOREFRONT_AUTH_ADMIN_EMAILS"); v != "" {
		cfg.Auth.AdminEmails = strings.Split(v, ",")
	}

	setEnvValue("STOREFRONT_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("STOREFRONT_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("STOREFRONT_MAIL_USER", &cfg.Mail.User)
	setEnvValue("STOREFRONT_MAIL_PASSWORD", &cfg.Mail.Password)
	setEnvValue("STOREFRONT_MAIL_FROM", &cfg.Mail.From)

	setEnvValue("STOREFRONT_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("STOREFRONT_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToInt(v)
	}
}
