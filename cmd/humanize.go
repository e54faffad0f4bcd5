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
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal/humanizer"
	"github.com/valpere/peredit/internal/markdown"
	"github.com/valpere/peredit/internal/placeholder"
)

var (
	humanizeInput     string
	humanizeOutput    string
	humanizeStrength  string
	humanizeSeed      uint64
	humanizeStages    []string
	humanizeNoProtect bool
	humanizeFormat    string
	humanizeHTML      bool
)

var humanizeCmd = &cobra.Command{
	Use:   "humanize",
	Short: "Humanize text locally without a model call",
	Long: `Apply the humanizer to a file or stdin.

Strength levels: mild, medium, strong, extreme (or any profile defined
in the config file). Unknown levels fall back to the default profile.

Stages can be limited with --stages, e.g. --stages lexical,hedge.
Available stages: lexical, phrase, hedge, transition, rhythm, addenda, finalize.

Example:
  peredit humanize -i draft.txt -o final.txt --strength medium
  cat draft.md | peredit humanize --format markdown --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sameFile(humanizeInput, humanizeOutput) {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		stages, err := humanizer.ParseStages(humanizeStages)
		if err != nil {
			return err
		}

		text, err := readInput(humanizeInput)
		if err != nil {
			return err
		}

		switch strings.ToLower(humanizeFormat) {
		case "", "text":
		case "markdown", "md":
			text = markdown.ToPlainText([]byte(text))
		default:
			return fmt.Errorf("unknown format %q (want text or markdown)", humanizeFormat)
		}

		opts := []humanizer.Option{humanizer.WithStages(stages)}
		if cmd.Flags().Changed("seed") {
			opts = append(opts, humanizer.WithSeed(humanizeSeed))
		}
		h, err := cfg.Humanizer(logger, opts...)
		if err != nil {
			return err
		}

		strength := humanizeStrength
		if strength == "" {
			strength = cfg.Strength
		}

		run := func(s string) string { return h.Humanize(s, strength) }
		var out string
		if humanizeNoProtect {
			out = run(text)
		} else {
			out = placeholder.Around(text, run)
		}

		if humanizeHTML {
			out = markdown.ToHTML([]byte(out))
		}

		logger.Debug("humanized",
			zap.String("strength", strength),
			zap.Stringer("stages", stages),
			zap.Int("chars_in", len([]rune(text))),
			zap.Int("chars_out", len([]rune(out))))

		return writeOutput(humanizeOutput, out)
	},
}

func init() {
	rootCmd.AddCommand(humanizeCmd)

	humanizeCmd.Flags().StringVarP(&humanizeInput, "input", "i", "", "Input file (default: stdin)")
	humanizeCmd.Flags().StringVarP(&humanizeOutput, "output", "o", "", "Output file (default: stdout)")
	humanizeCmd.Flags().StringVar(&humanizeStrength, "strength", "", "Strength level (default from config: strong)")
	humanizeCmd.Flags().Uint64Var(&humanizeSeed, "seed", 0, "Random seed for reproducible output")
	humanizeCmd.Flags().StringSliceVar(&humanizeStages, "stages", nil, "Stages to run (comma-separated; default: all)")
	humanizeCmd.Flags().BoolVar(&humanizeNoProtect, "no-protect", false, "Do not protect citations, equations and references")
	humanizeCmd.Flags().StringVar(&humanizeFormat, "format", "text", "Input format: text or markdown")
	humanizeCmd.Flags().BoolVar(&humanizeHTML, "html", false, "Render the output as HTML")
}
