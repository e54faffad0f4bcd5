/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal/config"
	"github.com/valpere/peredit/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string

	v      = viper.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "peredit",
	Short: "Research paper rewriter and humanizer",
	Long: `peredit rewrites research papers with a language model and then
roughens the result with a probabilistic humanizer: synonym and phrase
substitution, hedges, transitions, sentence splits and merges.

Citations, equations, code and the reference list are protected from
both steps.

Configuration is read from peredit.yaml (./ or ~/.config/peredit/),
PEREDIT_* environment variables and .env.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(v, cfgFile); err != nil {
			return err
		}
		var err error
		if cfg, err = config.Load(v); err != nil {
			return err
		}

		if model, _ := cmd.Flags().GetString("model"); model != "" {
			cfg.SetModel(model)
		}

		if logger, err = logging.New(cfg.Log.Level, cfg.Log.JSON); err != nil {
			return err
		}
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./peredit.yaml or ~/.config/peredit/peredit.yaml)")
	pf.String("backend", "openrouter", "Rewrite backend: openrouter or ollama")
	pf.String("model", "", "Model name for the selected backend")
	pf.String("rules", "", "Humanizer rule file (default: built-in rules)")
	pf.String("db", "./data/peredit.db", "Database path for rewrite memory")
	pf.Bool("no-cache", false, "Disable rewrite memory lookups")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("log-json", false, "Log as JSON")

	bindFlag("backend", "backend")
	bindFlag("rules_file", "rules")
	bindFlag("db_path", "db")
	bindFlag("no_cache", "no-cache")
	bindFlag("log.level", "log-level")
	bindFlag("log.json", "log-json")
}

// bindFlag ties a persistent flag to a viper key so a flag given on the
// command line overrides the config file and environment.
func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}
