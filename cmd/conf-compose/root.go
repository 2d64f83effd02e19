package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"conf-compose/pkg/config"
	"conf-compose/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	d := config.Defaults()

	root := &cobra.Command{
		Use:   "conf-compose [output_dir]",
		Short: "Generate per-node tunnel configuration files from nodes.yaml and tunnels.yaml",
		Long: `conf-compose reads a node topology and a tunnel topology, validates them,
and writes one <node>.conf file per node with its normalized service settings,
transport settings, entrance rules and forward rules.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Init(cfgFile); err != nil {
				return err
			}
			cfg := config.Current()
			return logger.Configure(cfg.LogLevel, cfg.LogFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				viper.Set(config.KeyOutputDir, args[0])
			}
			_, err := runGenerate(cmd.Context(), config.Current())
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.StringP("nodes_yaml_file", "n", d.NodesFile, "path to the nodes YAML file")
	pf.StringP("tunnels_yaml_file", "t", d.TunnelsFile, "path to the tunnels YAML file")
	pf.String("log-level", d.LogLevel, "log level: debug|info|warn|error")
	pf.String("log-format", d.LogFormat, "log format: text|json")
	pf.String("ledger", d.Ledger, "compile ledger: none|memory|sqlite|mysql (mysql reads MYSQL_DSN or MYSQL_*)")
	pf.String("ledger-path", d.LedgerPath, "sqlite ledger file")

	f := root.Flags()
	f.String("format", d.Format, "artifact format: json|yaml")
	f.Int("workers", d.Workers, "concurrent node builds (0 = GOMAXPROCS)")
	f.Bool("manifest", d.Manifest, "write manifest.json with per-file sha256 digests")
	f.String("sign-secret", d.SignSecret, "HS256 secret used to sign the manifest")
	f.String("publish", d.Publish, "publish artifacts: none|consul (consul needs -tags consul)")
	f.String("consul-addr", d.ConsulAddr, "consul address")
	f.String("consul-prefix", d.ConsulPrefix, "consul KV prefix")
	f.Bool("dry-run", d.DryRun, "compile and validate without writing anything")

	bindFlags(pf, map[string]string{
		config.KeyNodesFile:   "nodes_yaml_file",
		config.KeyTunnelsFile: "tunnels_yaml_file",
		config.KeyLogLevel:    "log-level",
		config.KeyLogFormat:   "log-format",
		config.KeyLedger:      "ledger",
		config.KeyLedgerPath:  "ledger-path",
	})
	bindFlags(f, map[string]string{
		config.KeyFormat:       "format",
		config.KeyWorkers:      "workers",
		config.KeyManifest:     "manifest",
		config.KeySignSecret:   "sign-secret",
		config.KeyPublish:      "publish",
		config.KeyConsulAddr:   "consul-addr",
		config.KeyConsulPrefix: "consul-prefix",
		config.KeyDryRun:       "dry-run",
	})

	root.AddCommand(newValidateCmd(), newHistoryCmd(), newVersionCmd())
	return root
}

func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
