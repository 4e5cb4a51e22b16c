package config

import (
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/migalabs/solana-exporter/pkg/db"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	cli "github.com/urfave/cli/v2"
)

var (
	modName = "config"
	log     = logrus.WithField(
		"module", modName,
	)

	ErrInvalidTarget = errors.New("invalid prometheus target")
)

type ExporterConfig struct {
	LogLevel              string        `json:"log-level" mapstructure:"log-level"`
	LogOutput             string        `json:"log-output" mapstructure:"log-output"`
	RPC                   string        `json:"rpc" mapstructure:"rpc"`
	Target                string        `json:"target" mapstructure:"target"`
	PubkeyWhitelist       []string      `json:"pubkey-whitelist" mapstructure:"pubkey-whitelist"`
	MaxMindUsername       string        `json:"maxmind-username" mapstructure:"maxmind-username"`
	MaxMindPassword       string        `json:"maxmind-password" mapstructure:"maxmind-password"`
	DataDir               string        `json:"data-dir" mapstructure:"data-dir"`
	DBEngine              string        `json:"db-engine" mapstructure:"db-engine"`
	PollInterval          time.Duration `json:"poll-interval" mapstructure:"poll-interval"`
	RPCTimeout            time.Duration `json:"rpc-timeout" mapstructure:"rpc-timeout"`
	MetricsUpdateInterval time.Duration `json:"metrics-interval" mapstructure:"metrics-interval"`
}

func NewExporterConfig() *ExporterConfig {
	return &ExporterConfig{
		LogLevel:              DefaultLogLevel,
		LogOutput:             DefaultLogOutput,
		RPC:                   DefaultRPC,
		Target:                DefaultTarget,
		PubkeyWhitelist:       make([]string, 0),
		DataDir:               DefaultDataDir,
		DBEngine:              DefaultDBEngine,
		PollInterval:          DefaultPollInterval,
		RPCTimeout:            DefaultRPCTimeout,
		MetricsUpdateInterval: DefaultMetricsUpdateInterval,
	}
}

// Load builds the configuration from the defaults, the config file and the
// flags set in ctx, in increasing order of precedence.
func Load(ctx *cli.Context) (*ExporterConfig, error) {
	conf := NewExporterConfig()

	path, explicit := FilePath(ctx)
	if _, err := os.Stat(path); err == nil || explicit {
		if err := conf.LoadFile(path); err != nil {
			return nil, err
		}
		log.Infof("config loaded from %s", path)
	}

	conf.Apply(ctx)
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// FilePath returns the --config path, or the default file inside the data dir.
// explicit is true when the path was given as a flag.
func FilePath(ctx *cli.Context) (path string, explicit bool) {
	if ctx.IsSet("config") {
		return ctx.String("config"), true
	}
	dataDir := DefaultDataDir
	if ctx.IsSet("data-dir") {
		dataDir = ctx.String("data-dir")
	}
	return filepath.Join(dataDir, DefaultConfigFile), false
}

// LoadFile overrides the fields present in the file at path. The format is
// taken from the file extension.
func (c *ExporterConfig) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "unable to read config file %s", path)
	}
	if err := v.Unmarshal(c); err != nil {
		return errors.Wrapf(err, "unable to decode config file %s", path)
	}
	return nil
}

// WriteFile stores the configuration at path, creating its directory.
func (c *ExporterConfig) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "unable to create config dir for %s", path)
	}
	v := viper.New()
	for key, value := range c.settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrapf(err, "unable to write config file %s", path)
	}
	return nil
}

func (c *ExporterConfig) settings() map[string]interface{} {
	return map[string]interface{}{
		"log-level":        c.LogLevel,
		"log-output":       c.LogOutput,
		"rpc":              c.RPC,
		"target":           c.Target,
		"pubkey-whitelist": c.PubkeyWhitelist,
		"maxmind-username": c.MaxMindUsername,
		"maxmind-password": c.MaxMindPassword,
		"data-dir":         c.DataDir,
		"db-engine":        c.DBEngine,
		"poll-interval":    c.PollInterval.String(),
		"rpc-timeout":      c.RPCTimeout.String(),
		"metrics-interval": c.MetricsUpdateInterval.String(),
	}
}

func (c *ExporterConfig) Apply(ctx *cli.Context) {
	// apply to the loaded configuration the set flags
	if ctx.IsSet("log-level") {
		c.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("log-output") {
		c.LogOutput = ctx.String("log-output")
	}
	// node
	if ctx.IsSet("rpc") {
		c.RPC = ctx.String("rpc")
	}
	if ctx.IsSet("rpc-timeout") {
		c.RPCTimeout = ctx.Duration("rpc-timeout")
	}
	// prometheus
	if ctx.IsSet("target") {
		c.Target = ctx.String("target")
	}
	if ctx.IsSet("metrics-interval") {
		c.MetricsUpdateInterval = ctx.Duration("metrics-interval")
	}
	if ctx.IsSet("pubkey-whitelist") {
		c.PubkeyWhitelist = ctx.StringSlice("pubkey-whitelist")
	}
	// geolocation
	if ctx.IsSet("maxmind-username") {
		c.MaxMindUsername = ctx.String("maxmind-username")
	}
	if ctx.IsSet("maxmind-password") {
		c.MaxMindPassword = ctx.String("maxmind-password")
	}
	// cache
	if ctx.IsSet("data-dir") {
		c.DataDir = ctx.String("data-dir")
	}
	if ctx.IsSet("db-engine") {
		c.DBEngine = ctx.String("db-engine")
	}
	if ctx.IsSet("poll-interval") {
		c.PollInterval = ctx.Duration("poll-interval")
	}
}

func (c *ExporterConfig) Validate() error {
	host, port, err := net.SplitHostPort(c.Target)
	if err != nil {
		return errors.Wrapf(ErrInvalidTarget, "%s: %s", c.Target, err.Error())
	}
	if host != "" && net.ParseIP(host) == nil && host != "localhost" {
		return errors.Wrapf(ErrInvalidTarget, "%s: host must be an ip address", c.Target)
	}
	if p, err := strconv.ParseUint(port, 10, 16); err != nil || p == 0 {
		return errors.Wrapf(ErrInvalidTarget, "%s: invalid port", c.Target)
	}

	rpc, err := url.Parse(c.RPC)
	if err != nil {
		return errors.Wrapf(err, "invalid rpc endpoint %s", c.RPC)
	}
	if (rpc.Scheme != "http" && rpc.Scheme != "https") || rpc.Host == "" {
		return errors.Errorf("invalid rpc endpoint %s, expected an http(s) url", c.RPC)
	}

	if _, err := db.ParseEngine(c.DBEngine); err != nil {
		return err
	}

	for name, d := range map[string]time.Duration{
		"poll-interval":    c.PollInterval,
		"rpc-timeout":      c.RPCTimeout,
		"metrics-interval": c.MetricsUpdateInterval,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if (c.MaxMindUsername == "") != (c.MaxMindPassword == "") {
		log.Warn("geolocation needs both maxmind-username and maxmind-password, it stays disabled")
	}
	return nil
}

func (c *ExporterConfig) Whitelist() spec.Whitelist {
	return spec.NewWhitelist(c.PubkeyWhitelist...)
}

// GeolocationEnabled reports whether MaxMind credentials are configured.
func (c *ExporterConfig) GeolocationEnabled() bool {
	return c.MaxMindUsername != "" && c.MaxMindPassword != ""
}
