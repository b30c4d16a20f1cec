package main

import (
	"io"
	"log/slog"
	"net/netip"
	"time"

	"nano-get/application/util/domain"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const envPrefix = "NANOGET_"

type config struct {
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"10s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`

	// Zero means no limit.
	MaxBodySize uint `env:"MAX_BODY_SIZE" envDefault:"0"`

	InsecureSkipVerify bool `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"WARN"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text"`

	UserAgent string `env:"USER_AGENT"`

	// Hosts pins domains to addresses, e.g. "example.com=127.0.0.1,other.test=::1".
	Hosts map[string]string `env:"HOSTS" envKeyValSeparator:"="`
}

// loadConfig reads the configuration from environ, or from the process environment when nil.
func loadConfig(environ map[string]string) (config, error) {
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}

	cfg, err := env.ParseAsWithOptions[config](opts)
	if err != nil {
		return config{}, errors.Wrap(err, "parsing environment")
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return config{}, errors.Errorf("unknown log format %q", cfg.LogFormat)
	}

	return cfg, nil
}

func (cfg config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// lookuper consults the pinned hosts first, then the system resolver.
func (cfg config) lookuper() (domain.Lookuper, error) {
	pinned := make(map[string][]netip.Addr, len(cfg.Hosts))
	for host, raw := range cfg.Hosts {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "address for host %q", host)
		}
		pinned[host] = []netip.Addr{addr}
	}

	return domain.Chain(
		domain.NewMapLookuper(pinned),
		domain.NewResolverLookuper(nil),
	), nil
}
