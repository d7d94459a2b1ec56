package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore, eg: AUTOSHARE_TWITTER__HANDLE.
const EnvPrefix = "AUTOSHARE_"

type Config struct {
	DryRun    bool            `koanf:"dry_run"`
	Log       LogConfig       `koanf:"log"`
	Storage   StorageConfig   `koanf:"storage"`
	Server    ServerConfig    `koanf:"server"`
	Twitter   TwitterConfig   `koanf:"twitter"`
	Autoshare AutoshareConfig `koanf:"autoshare"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

type StorageConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type TwitterConfig struct {
	ConsumerKey    string        `koanf:"consumer_key"`
	ConsumerSecret string        `koanf:"consumer_secret"`
	AccessToken    string        `koanf:"access_token"`
	AccessSecret   string        `koanf:"access_secret"`
	Handle         string        `koanf:"handle"`
	UploadURL      string        `koanf:"upload_url" validate:"omitempty,url"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
}

type AutoshareConfig struct {
	PostTypes     []string `koanf:"post_types" validate:"min=1,dive,required"`
	EnableDefault bool     `koanf:"enable_default"`
	MaxImageSize  int64    `koanf:"max_image_size" validate:"gt=0"`
	Timezone      string   `koanf:"timezone" validate:"omitempty,timezone"`
}

func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Path: "./autoshare.sqlite"},
		Server:  ServerConfig{Addr: ":8080"},
		Twitter: TwitterConfig{Timeout: 30 * time.Second},
		Autoshare: AutoshareConfig{
			MaxImageSize: 5_000_000,
			Timezone:     "UTC",
		},
	}
}

var defaultPostTypes = []string{"post", "page"}

// Load layers defaults, the YAML file at path (skipped when path is empty or
// missing), a .env file in the working directory and AUTOSHARE_* variables,
// in that order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if key == "autoshare.post_types" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	// Slices are left out of Default so a configured list replaces, not
	// overlays, the default one.
	if len(cfg.Autoshare.PostTypes) == 0 {
		cfg.Autoshare.PostTypes = slices.Clone(defaultPostTypes)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field rules, then requires X credentials unless DryRun is set.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DryRun {
		return nil
	}

	var missing []string
	for k, v := range map[string]string{
		"twitter.consumer_key":    c.Twitter.ConsumerKey,
		"twitter.consumer_secret": c.Twitter.ConsumerSecret,
		"twitter.access_token":    c.Twitter.AccessToken,
		"twitter.access_secret":   c.Twitter.AccessSecret,
	} {
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
