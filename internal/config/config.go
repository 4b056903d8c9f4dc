// Package config provides functionality for managing configuration options
// for the application using defaults, a JSON config file, environment
// variables (optionally loaded from .env) and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSessionSecret is the development signing secret. The server refuses
// to start with it in production.
const DefaultSessionSecret = "uk-architects-secret-key-change-in-production"

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `json:"database_path"`

	// Env is "development" or "production".
	Env string `json:"env"`

	// SessionSecret signs session cookies.
	SessionSecret string `json:"session_secret"`

	// SessionTTL is the fixed session lifetime.
	SessionTTL time.Duration `json:"-"`

	// BcryptCost is the password hashing cost factor.
	BcryptCost int `json:"bcrypt_cost"`

	// FrontendURL is the allowed CORS origin in production.
	FrontendURL string `json:"frontend_url"`

	// PublicURL is the externally visible site URL used in reset links.
	PublicURL string `json:"public_url"`

	// AdminEmail and AdminPassword seed the first admin account.
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`

	S3Endpoint  string `json:"s3_endpoint"`
	S3Region    string `json:"s3_region"`
	S3Bucket    string `json:"s3_bucket"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	// S3PublicURL is the base URL objects are served from; falls back to
	// endpoint/bucket when empty.
	S3PublicURL string `json:"s3_public_url"`
	// S3Folder prefixes every object key.
	S3Folder string `json:"s3_folder"`

	ImageMaxBytes int64         `json:"image_max_bytes"`
	VideoMaxBytes int64         `json:"video_max_bytes"`
	UploadTimeout time.Duration `json:"-"`

	SendGridAPIKey string `json:"sendgrid_api_key"`
	MailFrom       string `json:"mail_from"`
	MailFromName   string `json:"mail_from_name"`

	LogLevel string `json:"log_level"`

	TLSCertFile string `json:"tls_cert_file"`
	TLSKeyFile  string `json:"tls_key_file"`

	// CleanupInterval is how often expired sessions are purged.
	CleanupInterval time.Duration `json:"-"`

	// LoginRatePerMinute limits login and forgot-password requests per client IP.
	LoginRatePerMinute int `json:"login_rate_per_minute"`

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP. Enable
	// only when a reverse proxy sets those headers.
	TrustProxy bool `json:"trust_proxy"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// durations are kept as Go duration strings in the JSON file.
type fileDurations struct {
	SessionTTL      string `json:"session_ttl"`
	UploadTimeout   string `json:"upload_timeout"`
	CleanupInterval string `json:"cleanup_interval"`
}

// Default returns the development configuration.
func Default() *Options {
	return &Options{
		Address:            "localhost:3000",
		DatabasePath:       "database.sqlite",
		Env:                "development",
		SessionSecret:      DefaultSessionSecret,
		SessionTTL:         24 * time.Hour,
		BcryptCost:         10,
		PublicURL:          "http://localhost:3000",
		AdminEmail:         "admin@ukarchitects.com",
		AdminPassword:      "admin123",
		S3Region:           "us-east-1",
		S3Folder:           "uk-architects",
		ImageMaxBytes:      10 << 20,
		VideoMaxBytes:      100 << 20,
		UploadTimeout:      60 * time.Second,
		MailFrom:           "no-reply@ukarchitects.com",
		MailFromName:       "UK Architects",
		LogLevel:           "info",
		CleanupInterval:    time.Hour,
		LoginRatePerMinute: 10,
		Config:             "config.json",
	}
}

// IsDevelopment reports whether the process runs outside production.
func (o *Options) IsDevelopment() bool {
	return o.Env != "production"
}

// Validate rejects configurations that are unsafe or unusable.
func (o *Options) Validate() error {
	if !o.IsDevelopment() && (o.SessionSecret == "" || o.SessionSecret == DefaultSessionSecret) {
		return errors.New("SESSION_SECRET must be set in production")
	}
	if o.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if o.ImageMaxBytes <= 0 || o.VideoMaxBytes <= 0 {
		return errors.New("upload limits must be positive")
	}
	if o.UploadTimeout <= 0 || o.CleanupInterval <= 0 {
		return errors.New("upload timeout and cleanup interval must be positive")
	}
	if o.DatabasePath == "" {
		return errors.New("database path is required")
	}
	return nil
}

func registerFlags(fs *flag.FlagSet, o *Options) {
	fs.StringVar(&o.Address, "a", o.Address, "run on ip:port server")
	fs.StringVar(&o.DatabasePath, "d", o.DatabasePath, "sqlite database file")
	fs.StringVar(&o.Env, "env", o.Env, "environment: development or production")
	fs.StringVar(&o.SessionSecret, "s", o.SessionSecret, "session signing secret")
	fs.StringVar(&o.LogLevel, "l", o.LogLevel, "log level")
	fs.StringVar(&o.TLSCertFile, "tls-cert", o.TLSCertFile, "TLS certificate file")
	fs.StringVar(&o.TLSKeyFile, "tls-key", o.TLSKeyFile, "TLS key file")
	fs.BoolVar(&o.TrustProxy, "trust-proxy", o.TrustProxy, "trust X-Forwarded-For from a reverse proxy")
	fs.StringVar(&o.Config, "config", o.Config, "path to config file")
	fs.StringVar(&o.Config, "c", o.Config, "path to config file (shorthand)")
}

// Parse builds Options from defaults, the JSON config file, the environment
// and finally the command-line args (without the program name).
func Parse(args []string) (*Options, error) {
	o, _, err := ParseCommand(args)
	return o, err
}

// ParseCommand is Parse for tools that take positional arguments after the
// flags. It returns those arguments.
func ParseCommand(args []string) (*Options, []string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	options := Default()

	// first pass only locates the config file
	located := Default()
	locateFS := flag.NewFlagSet("locate", flag.ContinueOnError)
	locateFS.SetOutput(io.Discard)
	registerFlags(locateFS, located)
	if err := locateFS.Parse(args); err != nil {
		return nil, nil, err
	}
	explicit := false
	locateFS.Visit(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "c" {
			explicit = true
		}
	})
	options.Config = located.Config
	if !explicit {
		if configPath := os.Getenv("CONFIG"); configPath != "" {
			options.Config = configPath
		}
	}

	if err := loadFile(options); err != nil {
		return nil, nil, err
	}
	if err := loadEnv(options); err != nil {
		return nil, nil, err
	}

	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	registerFlags(flags, options)
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	return options, flags.Args(), nil
}

func loadFile(o *Options) error {
	if o.Config == "" {
		return nil
	}
	data, err := os.ReadFile(o.Config)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	var d fileDurations
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	for _, v := range []struct {
		raw string
		dst *time.Duration
	}{
		{d.SessionTTL, &o.SessionTTL},
		{d.UploadTimeout, &o.UploadTimeout},
		{d.CleanupInterval, &o.CleanupInterval},
	} {
		if v.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(v.raw)
		if err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
		*v.dst = parsed
	}
	return nil
}

func loadEnv(o *Options) error {
	if port := os.Getenv("PORT"); port != "" {
		o.Address = ":" + port
	}
	envString("SERVER_ADDRESS", &o.Address)
	envString("DATABASE_PATH", &o.DatabasePath)
	envString("NODE_ENV", &o.Env)
	envString("APP_ENV", &o.Env)
	envString("SESSION_SECRET", &o.SessionSecret)
	envString("FRONTEND_URL", &o.FrontendURL)
	envString("PUBLIC_URL", &o.PublicURL)
	envString("DEFAULT_ADMIN_EMAIL", &o.AdminEmail)
	envString("DEFAULT_ADMIN_PASSWORD", &o.AdminPassword)
	envString("S3_ENDPOINT", &o.S3Endpoint)
	envString("S3_REGION", &o.S3Region)
	envString("S3_BUCKET", &o.S3Bucket)
	envString("S3_ACCESS_KEY", &o.S3AccessKey)
	envString("S3_SECRET_KEY", &o.S3SecretKey)
	envString("S3_PUBLIC_URL", &o.S3PublicURL)
	envString("S3_FOLDER", &o.S3Folder)
	envString("SENDGRID_API_KEY", &o.SendGridAPIKey)
	envString("MAIL_FROM", &o.MailFrom)
	envString("MAIL_FROM_NAME", &o.MailFromName)
	envString("LOG_LEVEL", &o.LogLevel)
	envString("TLS_CERT_FILE", &o.TLSCertFile)
	envString("TLS_KEY_FILE", &o.TLSKeyFile)

	if err := envBool("TRUST_PROXY", &o.TrustProxy); err != nil {
		return err
	}
	if err := envInt("BCRYPT_COST", &o.BcryptCost); err != nil {
		return err
	}
	if err := envInt("LOGIN_RATE_PER_MINUTE", &o.LoginRatePerMinute); err != nil {
		return err
	}
	if err := envInt64("UPLOAD_IMAGE_MAX_BYTES", &o.ImageMaxBytes); err != nil {
		return err
	}
	if err := envInt64("UPLOAD_VIDEO_MAX_BYTES", &o.VideoMaxBytes); err != nil {
		return err
	}
	if err := envDuration("SESSION_TTL", &o.SessionTTL); err != nil {
		return err
	}
	if err := envDuration("UPLOAD_TIMEOUT", &o.UploadTimeout); err != nil {
		return err
	}
	return envDuration("CLEANUP_INTERVAL", &o.CleanupInterval)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
