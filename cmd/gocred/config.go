package main

import (
	"fmt"
	"strings"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/notify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix marks environment variables read into the config. A double
// underscore separates nesting levels: GOCRED_AUTH__OTP__TTL=5m sets
// auth.otp.ttl.
const envPrefix = "GOCRED_"

// serverConfig is everything the serve command needs.
type serverConfig struct {
	Listen          string            `koanf:"listen"`
	RedisAddr       string            `koanf:"redis_addr"`
	DatabaseURL     string            `koanf:"database_url"`
	SigningKey      string            `koanf:"signing_key"`
	TrustProxy      bool              `koanf:"trust_proxy"`
	ShutdownTimeout time.Duration     `koanf:"shutdown_timeout"`
	Log             logConfig         `koanf:"log"`
	SMTP            notify.SMTPConfig `koanf:"smtp"`
	Auth            goCred.Config     `koanf:"auth"`
}

type logConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Listen:          ":8080",
		ShutdownTimeout: 10 * time.Second,
		Log: logConfig{
			Format: "json",
			Level:  "info",
		},
		Auth: goCred.DefaultConfig(),
	}
}

// flagKeys maps serve flags onto config keys. Flags not listed here
// (for example --config) are not config values.
var flagKeys = map[string]string{
	"listen":       "listen",
	"redis-addr":   "redis_addr",
	"database-url": "database_url",
	"trust-proxy":  "trust_proxy",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"expose-otp":   "auth.otp.expose_code",
	"production":   "auth.production_mode",
	"metrics":      "auth.metrics.enabled",
	"audit":        "auth.audit.enabled",
	"reset-url":    "auth.delivery.reset_link_base_url",
}

// loadConfig layers defaults, the YAML file at path (if any), GOCRED_*
// environment variables and explicitly set flags, in that order.
func loadConfig(path string, fs *pflag.FlagSet, environ []string) (serverConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return serverConfig{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(envProvider{prefix: envPrefix, environ: environ}, nil); err != nil {
		return serverConfig{}, fmt.Errorf("load environment: %w", err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", nil, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return serverConfig{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := defaultServerConfig()
	if err := k.UnmarshalWithConf("", &cfg, decodeConf(&cfg)); err != nil {
		return serverConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// decodeConf decodes onto a struct that already holds the defaults. Lists
// replace the default list instead of merging into it, and a comma
// separated string decodes into a list.
func decodeConf(out *serverConfig) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           out,
			WeaklyTypedInput: true,
			ZeroFields:       true,
		},
	}
}

// envProvider reads GOCRED_* variables from an environment snapshot.
type envProvider struct {
	prefix  string
	environ []string
}

func (p envProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("env provider does not support ReadBytes")
}

func (p envProvider) Read() (map[string]interface{}, error) {
	flat := make(map[string]interface{})
	for _, kv := range p.environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, p.prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, p.prefix))
		if key == "" {
			continue
		}
		flat[strings.ReplaceAll(key, "__", ".")] = value
	}
	return maps.Unflatten(flat, "."), nil
}
