package pgentity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds database and runtime configuration for pgentity
type Config struct {
	Host                   string        `mapstructure:"host" validate:"required"`
	Port                   int           `mapstructure:"port" validate:"min=1,max=65535"`
	Database               string        `mapstructure:"database" validate:"required"`
	Username               string        `mapstructure:"username" validate:"required"`
	Password               string        `mapstructure:"password"`
	SSLMode                string        `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConnections         int32         `mapstructure:"max_connections" validate:"gte=0"`
	MinConnections         int32         `mapstructure:"min_connections" validate:"gte=0"`
	MaxConnLifetime        time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime        time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod      time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout         time.Duration `mapstructure:"connect_timeout"`
	ApplicationName        string        `mapstructure:"application_name"`
	StatementCacheCapacity int           `mapstructure:"statement_cache_capacity" validate:"gte=0"` // pgx per-conn statement cache capacity (0 = default)
	LogLevel               string        `mapstructure:"log_level" validate:"omitempty,oneof=silent error warn info debug"`
	LogFormat              string        `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
	SlowQueryThreshold     time.Duration `mapstructure:"slow_query_threshold"`
}

// EnvPrefix is prepended to every environment variable LoadConfig reads, e.g. PGENTITY_HOST.
const EnvPrefix = "PGENTITY"

var configKeys = []string{
	"host", "port", "database", "username", "password", "ssl_mode",
	"max_connections", "min_connections", "max_conn_lifetime", "max_conn_idle_time",
	"health_check_period", "connect_timeout", "application_name",
	"statement_cache_capacity", "log_level", "log_format", "slow_query_threshold",
}

// ConnString returns a PostgreSQL connection string compatible with pgx
func (c *Config) ConnString() string {
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	parts := []string{
		"host=" + quoteConnValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteConnValue(c.Database),
		"user=" + quoteConnValue(c.Username),
		"sslmode=" + ssl,
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteConnValue(c.Password))
	}
	if c.ApplicationName != "" {
		parts = append(parts, "application_name="+quoteConnValue(c.ApplicationName))
	}
	if c.ConnectTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", int(c.ConnectTimeout.Seconds())))
	}
	return strings.Join(parts, " ")
}

// URL renders the configuration as a postgres:// URL, the form golang-migrate expects.
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", defaultString(c.Host, "localhost"), defaultInt(c.Port, 5432)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", defaultString(c.SSLMode, "disable"))
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// LogMode maps LogLevel to a LogMode; an empty level means LogWarn.
func (c *Config) LogMode() LogMode {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return LogSilent
	case "error":
		return LogError
	case "info":
		return LogInfo
	case "debug":
		return LogDebug
	default:
		return LogWarn
	}
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return &ORMError{Code: ErrCodeValidation, Message: "invalid config: " + strings.Join(msgs, "; "), Internal: err}
		}
		return &ORMError{Code: ErrCodeValidation, Message: "invalid config: " + err.Error(), Internal: err}
	}
	return nil
}

// LoadConfig reads configuration from defaults, an optional YAML file at path,
// a .env file in the working directory and PGENTITY_* environment variables,
// later sources overriding earlier ones, then validates the result.
func LoadConfig(path string) (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	v := viper.New()
	setConfigDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range configKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 5432)
	v.SetDefault("ssl_mode", "disable")
	v.SetDefault("max_connections", 10)
	v.SetDefault("min_connections", 0)
	v.SetDefault("connect_timeout", "5s")
	v.SetDefault("application_name", "pgentity")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "json")
}

func quoteConnValue(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
