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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rewrite and humanize API over HTTP",
	Long: `Start the HTTP API.

Routes:
  POST /papers/rewrite    {"paper": "..."} or raw text; ?humanize=true&strength=mild
  POST /papers/humanize   {"text": "...", "strength": "..."} or {"texts": [...]}
  GET  /healthz

Example:
  peredit serve --addr :8000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		orch, err := buildOrchestrator(db, nil)
		if err != nil {
			return err
		}
		h, err := cfg.Humanizer(logger)
		if err != nil {
			return err
		}

		opts := []server.Option{server.WithLogger(logger), server.WithStrength(cfg.Strength)}
		if db != nil {
			opts = append(opts, server.WithStore(db))
		}
		srv := server.New(orch, h, opts...)

		logger.Info("starting server",
			zap.String("backend", cfg.Backend),
			zap.String("model", cfg.RewriterConfig().Model),
			zap.Strings("profiles", h.Rules().ProfileNames()))
		return srv.Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8000", "Listen address")
	if err := v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}
