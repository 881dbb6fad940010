// Package config resolves settings from defaults, an optional .env file,
// EASE_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "EASE_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Gemini  GeminiConfig  `koanf:"gemini"`
	Speech  SpeechConfig  `koanf:"speech"`
	Session SessionConfig `koanf:"session"`
	Upload  UploadConfig  `koanf:"upload"`
}

type ServerConfig struct {
	// Addr is the listen port.
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

type GeminiConfig struct {
	// Engine selects the generation backend; "echo" answers offline.
	Engine  string        `koanf:"engine" validate:"oneof=gemini echo"`
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Model   string        `koanf:"model" validate:"required"`
	Models  []string      `koanf:"models"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type SpeechConfig struct {
	BaseURL  string        `koanf:"base_url" validate:"required,url"`
	Language string        `koanf:"language" validate:"len=2,alpha,lowercase"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
}

type SessionConfig struct {
	CookieName string        `koanf:"cookie_name" validate:"required"`
	Secure     bool          `koanf:"secure"`
	TTL        time.Duration `koanf:"ttl" validate:"gt=0"`
	Capacity   int           `koanf:"capacity" validate:"gte=0"`
}

type UploadConfig struct {
	MaxBytes int64 `koanf:"max_bytes" validate:"gt=0"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute, // lessons wait on generation and synthesis
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Gemini: GeminiConfig{
			Engine:  "gemini",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-1.5-flash-latest",
			Timeout: 60 * time.Second,
		},
		Speech: SpeechConfig{
			BaseURL:  "https://translate.google.com",
			Language: "en",
			Timeout:  30 * time.Second,
		},
		Session: SessionConfig{
			CookieName: "ease_session",
			TTL:        2 * time.Hour,
			Capacity:   10000,
		},
		Upload: UploadConfig{MaxBytes: 10 << 20},
	}
}

// Load builds the configuration. args are the command-line arguments
// without the program name.
func Load(args []string) (*Config, error) {
	fset := flag.NewFlagSet("ease", flag.ContinueOnError)
	envFile := fset.String("env-file", ".env", "optional dotenv file")
	addr := fset.String("addr", "", "HTTP listen port")
	level := fset.String("log-level", "", "log level: debug|info|warn|error")
	json := fset.Bool("log-json", false, "log as JSON")
	model := fset.String("model", "", "Gemini model id")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	overrides := map[string]any{}
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			overrides["server.addr"] = *addr
		case "log-level":
			overrides["log.level"] = *level
		case "log-json":
			overrides["log.json"] = *json
		case "model":
			overrides["gemini.model"] = *model
		}
	})
	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("apply flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// normalize makes the deployment model the first allowed model.
func (c *Config) normalize() {
	c.Server.Addr = strings.TrimPrefix(c.Server.Addr, ":")
	c.Log.Level = strings.ToLower(c.Log.Level)
	models := []string{c.Gemini.Model}
	for _, m := range c.Gemini.Models {
		m = strings.TrimSpace(m)
		if m != "" && !slices.Contains(models, m) {
			models = append(models, m)
		}
	}
	c.Gemini.Models = models
}

// transformEnv maps EASE_GEMINI_BASE_URL to gemini.base_url.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || section == "" || rest == "" {
		return "", nil
	}
	path := section + "." + rest
	if path == "gemini.models" {
		return path, strings.Split(value, ",")
	}
	return path, value
}
