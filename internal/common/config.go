package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/inspection-reports/constants"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Sites   SitesConfig
	Photos  PhotosConfig
	Report  ReportConfig
	Export  ExportConfig
	Log     LogConfig
}

// ServerConfig holds listener addresses
type ServerConfig struct {
	HTTPAddr    string
	GRPCAddr    string
	MaxUploadMB int
}

// SessionConfig holds wizard session storage configuration
type SessionConfig struct {
	DBURL         string
	TTL           time.Duration
	SweepInterval time.Duration
	CookieSecure  bool
}

// SitesConfig points at the reference site list
type SitesConfig struct {
	File   string
	Column string
}

// PhotosConfig holds photo upload handling configuration
type PhotosConfig struct {
	HeicConverter    string
	ArtifactCacheDir string
	MaxMB            int
}

// ReportConfig holds document rendering options
type ReportConfig struct {
	Lang string
}

// ExportConfig holds message composition defaults
type ExportConfig struct {
	From       string
	Recipients []string
	Subject    string
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string
	Format string
}

// envAliases keeps the historical variable names working next to the derived ones.
var envAliases = map[string]string{
	"photos.heic_converter": "HEIC_CONVERTER",
	"photos.cache_dir":      "ARTIFACT_CACHE_DIR",
	"photos.max_mb":         "MAX_PHOTO_MB",
}

// NewViper returns a viper instance with defaults and environment binding applied.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("http.addr", ":8000")
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("http.max_upload_mb", 256)
	v.SetDefault("session.db_url", "file:sessions.db?_pragma=busy_timeout(5000)")
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("sites.file", "pozos.xlsx")
	v.SetDefault("sites.column", "POZO")
	v.SetDefault("photos.heic_converter", "magick")
	v.SetDefault("photos.cache_dir", "./tmp")
	v.SetDefault("photos.max_mb", constants.DefaultMaxPhotoMB)
	v.SetDefault("report.lang", "en")
	v.SetDefault("export.from", "")
	v.SetDefault("export.recipients", "")
	v.SetDefault("export.subject", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	return v
}

// LoadConfig loads configuration from defaults, an optional config file and the environment.
func LoadConfig(configFile string) (*Config, error) {
	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, NewAppError("CONFIG_ERROR", "read config file "+configFile, err)
			}
		}
	}
	return FromViper(v), nil
}

// FromViper maps a populated viper instance onto Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:    v.GetString("http.addr"),
			GRPCAddr:    v.GetString("grpc.addr"),
			MaxUploadMB: v.GetInt("http.max_upload_mb"),
		},
		Session: SessionConfig{
			DBURL:         v.GetString("session.db_url"),
			TTL:           v.GetDuration("session.ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
			CookieSecure:  v.GetBool("session.cookie_secure"),
		},
		Sites: SitesConfig{
			File:   v.GetString("sites.file"),
			Column: v.GetString("sites.column"),
		},
		Photos: PhotosConfig{
			HeicConverter:    v.GetString("photos.heic_converter"),
			ArtifactCacheDir: v.GetString("photos.cache_dir"),
			MaxMB:            v.GetInt("photos.max_mb"),
		},
		Report: ReportConfig{
			Lang: strings.ToLower(v.GetString("report.lang")),
		},
		Export: ExportConfig{
			From:       v.GetString("export.from"),
			Recipients: StringList(v.Get("export.recipients")),
			Subject:    v.GetString("export.subject"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

// StringList accepts a comma separated string or a list and returns trimmed, non-empty values.
func StringList(raw any) []string {
	var parts []string
	switch t := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(t, ",")
	case []string:
		parts = t
	case []any:
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		parts = strings.Split(fmt.Sprint(t), ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Session.DBURL == "" {
		return NewAppError("CONFIG_ERROR", "SESSION_DB_URL is required", ErrInvalidInput)
	}
	if c.Sites.File == "" {
		return NewAppError("CONFIG_ERROR", "SITES_FILE is required", ErrInvalidInput)
	}
	if c.Session.TTL <= 0 {
		return NewAppError("CONFIG_ERROR", "SESSION_TTL must be positive", ErrInvalidInput)
	}
	if c.Photos.MaxMB <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_PHOTO_MB must be positive", ErrInvalidInput)
	}
	return nil
}
