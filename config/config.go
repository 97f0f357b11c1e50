package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig operator API configuration
type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

// DBConfig persistence configuration. Type is "bolt" or "postgres".
type DBConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// LicenseConfig machine activation. Disabled by default.
type LicenseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Seed    string `yaml:"seed"`
}

type SftpConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dir      string `yaml:"dir"`
}

type BackupConfig struct {
	Keep int        `yaml:"keep"`
	Sftp SftpConfig `yaml:"sftp"`
}

type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

type InventoryConfig struct {
	LowStockThreshold int `yaml:"low_stock_threshold"`
}

type AppConfig struct {
	System    SysConfig       `yaml:"system"`
	Web       WebConfig       `yaml:"web"`
	Database  DBConfig        `yaml:"database"`
	Logger    LogConfig       `yaml:"logger"`
	License   LicenseConfig   `yaml:"license"`
	Backup    BackupConfig    `yaml:"backup"`
	Mail      MailConfig      `yaml:"mail"`
	Inventory InventoryConfig `yaml:"inventory"`
}

func (c *AppConfig) GetBackupDir() string {
	return path.Join(c.System.Workdir, "backup")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetPdfDir() string {
	return path.Join(c.System.Workdir, "pdf")
}

// InitDirs creates the working directory layout.
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetBackupDir(), c.GetDataDir(), c.GetLogDir(), c.GetPdfDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Sunflower",
		Location: "America/Argentina/Buenos_Aires",
		Workdir:  "/var/sunflower",
		Debug:    false,
	},
	Web: WebConfig{
		Host: "127.0.0.1",
		Port: 1817,
	},
	Database: DBConfig{
		Type:     "bolt",
		Path:     "sunflower.db",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "sunflower",
		User:     "postgres",
		MaxConn:  20,
		IdleConn: 5,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/sunflower/logs/sunflower.log",
	},
	License: LicenseConfig{
		Enabled: false,
		Seed:    "sunflower",
	},
	Backup: BackupConfig{
		Keep: 14,
		Sftp: SftpConfig{Port: 22, Dir: "/"},
	},
	Mail: MailConfig{
		Port: 587,
	},
	Inventory: InventoryConfig{
		LowStockThreshold: 5,
	},
}

// LoadConfig reads the YAML file at cfile, falling back to the defaults when
// it does not exist, then applies SUNFLOWER_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "sunflower.yml"
	}
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Errorf("parse config %s: %w", cfile, err))
		}
	}
	applyEnv(&cfg)
	return &cfg
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(strings.ToLower(v))
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("SUNFLOWER_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("SUNFLOWER_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("SUNFLOWER_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("SUNFLOWER_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("SUNFLOWER_WEB_PORT", &cfg.Web.Port)
	setEnvValue("SUNFLOWER_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("SUNFLOWER_DB_TYPE", &cfg.Database.Type)
	setEnvValue("SUNFLOWER_DB_PATH", &cfg.Database.Path)
	setEnvValue("SUNFLOWER_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("SUNFLOWER_DB_PORT", &cfg.Database.Port)
	setEnvValue("SUNFLOWER_DB_NAME", &cfg.Database.Name)
	setEnvValue("SUNFLOWER_DB_USER", &cfg.Database.User)
	setEnvValue("SUNFLOWER_DB_PWD", &cfg.Database.Passwd)

	setEnvValue("SUNFLOWER_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("SUNFLOWER_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvBoolValue("SUNFLOWER_LICENSE_ENABLED", &cfg.License.Enabled)
	setEnvValue("SUNFLOWER_LICENSE_SEED", &cfg.License.Seed)

	setEnvBoolValue("SUNFLOWER_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("SUNFLOWER_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("SUNFLOWER_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("SUNFLOWER_MAIL_USER", &cfg.Mail.User)
	setEnvValue("SUNFLOWER_MAIL_PASSWORD", &cfg.Mail.Password)
	setEnvValue("SUNFLOWER_MAIL_TO", &cfg.Mail.To)

	setEnvIntValue("SUNFLOWER_LOW_STOCK_THRESHOLD", &cfg.Inventory.LowStockThreshold)
}
