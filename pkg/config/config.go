// Package config resolves conf-compose settings from defaults, an optional
// config file, CONF_COMPOSE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "CONF_COMPOSE"

// Keys used in viper, the config file and (upper-cased, prefixed) the environment.
const (
	KeyNodesFile    = "nodes_yaml_file"
	KeyTunnelsFile  = "tunnels_yaml_file"
	KeyOutputDir    = "output_dir"
	KeyFormat       = "format"
	KeyWorkers      = "workers"
	KeyManifest     = "manifest"
	KeySignSecret   = "sign_secret"
	KeyLedger       = "ledger"
	KeyLedgerPath   = "ledger_path"
	KeyPublish      = "publish"
	KeyConsulAddr   = "consul_addr"
	KeyConsulPrefix = "consul_prefix"
	KeyDryRun       = "dry_run"
	KeyLogLevel     = "log_level"
	KeyLogFormat    = "log_format"
)

// Config is a snapshot of the resolved settings.
type Config struct {
	NodesFile    string
	TunnelsFile  string
	OutputDir    string
	Format       string
	Workers      int
	Manifest     bool
	SignSecret   string
	Ledger       string
	LedgerPath   string
	Publish      string
	ConsulAddr   string
	ConsulPrefix string
	DryRun       bool
	LogLevel     string
	LogFormat    string
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		NodesFile:    "nodes.yaml",
		TunnelsFile:  "tunnels.yaml",
		OutputDir:    "output",
		Format:       "json",
		Workers:      0,
		Ledger:       "none",
		LedgerPath:   "conf-compose.db",
		Publish:      "none",
		ConsulAddr:   "127.0.0.1:8500",
		ConsulPrefix: "conf-compose/nodes",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// SetDefaults registers Defaults with viper.
func SetDefaults() {
	d := Defaults()
	viper.SetDefault(KeyNodesFile, d.NodesFile)
	viper.SetDefault(KeyTunnelsFile, d.TunnelsFile)
	viper.SetDefault(KeyOutputDir, d.OutputDir)
	viper.SetDefault(KeyFormat, d.Format)
	viper.SetDefault(KeyWorkers, d.Workers)
	viper.SetDefault(KeyManifest, d.Manifest)
	viper.SetDefault(KeySignSecret, d.SignSecret)
	viper.SetDefault(KeyLedger, d.Ledger)
	viper.SetDefault(KeyLedgerPath, d.LedgerPath)
	viper.SetDefault(KeyPublish, d.Publish)
	viper.SetDefault(KeyConsulAddr, d.ConsulAddr)
	viper.SetDefault(KeyConsulPrefix, d.ConsulPrefix)
	viper.SetDefault(KeyDryRun, d.DryRun)
	viper.SetDefault(KeyLogLevel, d.LogLevel)
	viper.SetDefault(KeyLogFormat, d.LogFormat)
}

// Init loads .env, applies defaults and the environment, and reads cfgFile
// when it is not empty. A missing cfgFile is an error.
func Init(cfgFile string) error {
	if err := LoadDotEnv(); err != nil {
		return err
	}
	SetDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

// LoadDotEnv loads ./.env into the process environment if it exists.
// Variables already set are not overridden.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Current reads the resolved settings from viper.
func Current() Config {
	return Config{
		NodesFile:    viper.GetString(KeyNodesFile),
		TunnelsFile:  viper.GetString(KeyTunnelsFile),
		OutputDir:    viper.GetString(KeyOutputDir),
		Format:       viper.GetString(KeyFormat),
		Workers:      viper.GetInt(KeyWorkers),
		Manifest:     viper.GetBool(KeyManifest),
		SignSecret:   viper.GetString(KeySignSecret),
		Ledger:       viper.GetString(KeyLedger),
		LedgerPath:   viper.GetString(KeyLedgerPath),
		Publish:      viper.GetString(KeyPublish),
		ConsulAddr:   viper.GetString(KeyConsulAddr),
		ConsulPrefix: viper.GetString(KeyConsulPrefix),
		DryRun:       viper.GetBool(KeyDryRun),
		LogLevel:     viper.GetString(KeyLogLevel),
		LogFormat:    viper.GetString(KeyLogFormat),
	}
}
