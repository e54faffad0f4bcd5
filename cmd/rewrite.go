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
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal"
	"github.com/valpere/peredit/internal/markdown"
	"github.com/valpere/peredit/internal/orchestrator"
	"github.com/valpere/peredit/internal/placeholder"
)

var (
	rewriteInput          string
	rewriteOutput         string
	rewriteHumanize       bool
	rewriteStrength       string
	rewriteFormat         string
	rewriteNoProtect      bool
	rewriteSkipValidation bool
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite a paper with the language model",
	Long: `Send a paper through the configured model (OpenRouter or Ollama) with
the academic style prompt, optionally followed by the humanizer.

Long papers are split on paragraph boundaries and the chunks are rewritten
concurrently. Rewrites are remembered in the database, so an unchanged
chunk is not sent twice.

Example:
  peredit rewrite -i paper.txt -o rewritten.txt
  peredit rewrite -i paper.md --format markdown --humanize --strength mild
  peredit rewrite --backend ollama --model llama3.2 < paper.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sameFile(rewriteInput, rewriteOutput) {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		paper, err := readInput(rewriteInput)
		if err != nil {
			return err
		}
		if strings.EqualFold(rewriteFormat, "markdown") || strings.EqualFold(rewriteFormat, "md") {
			paper = markdown.ToPlainText([]byte(paper))
		}
		if strings.TrimSpace(paper) == "" {
			return fmt.Errorf("no paper text provided")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		orch, err := buildOrchestrator(db, func(oc *orchestrator.OrchestratorConfig) {
			oc.NoProtect = rewriteNoProtect
			oc.SkipValidation = rewriteSkipValidation
		})
		if err != nil {
			return err
		}

		strength := rewriteStrength
		if strength == "" {
			strength = cfg.Strength
		}

		req := internal.RewriteRequest{
			ID:        uuid.NewString(),
			Paper:     paper,
			Strength:  strength,
			Timestamp: time.Now(),
		}

		fmt.Fprintf(os.Stderr, "Rewriting with %s (%s)...\n", cfg.Backend, cfg.RewriterConfig().Model)
		res, err := orch.Rewrite(ctx, req)
		if err != nil {
			return fmt.Errorf("rewrite failed: %w", err)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}

		out := res.Text
		humanized := ""
		if rewriteHumanize {
			h, err := cfg.Humanizer(logger)
			if err != nil {
				return err
			}
			humanized = placeholder.Around(res.Text, func(s string) string {
				return h.Humanize(s, strength)
			})
			out = humanized
		}

		if db != nil {
			if err := db.SaveOutput(ctx, req.ID, res.Text, humanized, strength, res.Warnings); err != nil {
				logger.Warn("failed to save output", zap.Error(err))
			}
		}

		if err := writeOutput(rewriteOutput, out); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Rewrote %d chunk(s) in %s (%d from memory)\n",
			res.Chunks, res.Latency.Round(time.Millisecond), res.CacheHits)
		if rewriteHumanize {
			fmt.Fprintf(os.Stderr, "Humanized at strength %s\n", strength)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rewriteCmd)

	rewriteCmd.Flags().StringVarP(&rewriteInput, "input", "i", "", "Input paper (default: stdin)")
	rewriteCmd.Flags().StringVarP(&rewriteOutput, "output", "o", "", "Output file (default: stdout)")
	rewriteCmd.Flags().BoolVar(&rewriteHumanize, "humanize", false, "Humanize the rewritten paper")
	rewriteCmd.Flags().StringVar(&rewriteStrength, "strength", "", "Humanizer strength (default from config: strong)")
	rewriteCmd.Flags().StringVar(&rewriteFormat, "format", "text", "Input format: text or markdown")
	rewriteCmd.Flags().BoolVar(&rewriteNoProtect, "no-protect", false, "Send citations, equations and references to the model as is")
	rewriteCmd.Flags().BoolVar(&rewriteSkipValidation, "skip-validation", false, "Skip length and language checks")
	rewriteCmd.Flags().Int("max-chars", 12000, "Maximum chunk size in characters")
	rewriteCmd.Flags().Int("concurrency", orchestrator.DefaultConcurrency, "Chunks rewritten in parallel")
	rewriteCmd.Flags().Duration("timeout", 0, "Timeout per model call (default from config: 2m)")

	for key, flag := range map[string]string{
		"chunk.max_chars":   "max-chars",
		"chunk.concurrency": "concurrency",
		"timeout":           "timeout",
	} {
		if err := v.BindPFlag(key, rewriteCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
