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
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal/humanizer"
	"github.com/valpere/peredit/internal/placeholder"
)

var (
	batchInputFile  string
	batchOutputFile string
	batchColumns    []int
	batchStrength   string
	batchSeed       uint64
	batchHeader     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Humanize columns of a CSV file",
	Long: `Humanize one or more columns in a CSV file.

By default all columns are humanized. Use -l to select specific columns
(0-indexed). The flag may be repeated to select multiple columns.
Cells are independent: each one gets its own random choices.

Example:
  peredit batch -i abstracts.csv -o out.csv -l 2 --header
  peredit batch -i data.csv -o out.csv -l 1 -l 3 --strength mild`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sameFile(batchInputFile, batchOutputFile) {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		f, err := os.Open(batchInputFile)
		if err != nil {
			return fmt.Errorf("failed to open input CSV: %w", err)
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}

		if len(records) == 0 {
			return fmt.Errorf("CSV file is empty")
		}

		var opts []humanizer.Option
		if cmd.Flags().Changed("seed") {
			opts = append(opts, humanizer.WithSeed(batchSeed))
		}
		h, err := cfg.Humanizer(logger, opts...)
		if err != nil {
			return err
		}

		strength := batchStrength
		if strength == "" {
			strength = cfg.Strength
		}

		out, n := humanizeRecords(h, records, batchColumns, batchHeader, strength)

		if err := os.MkdirAll(filepath.Dir(batchOutputFile), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		outFile, err := os.Create(batchOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output CSV: %w", err)
		}
		defer outFile.Close()

		writer := csv.NewWriter(outFile)
		if err := writer.WriteAll(out); err != nil {
			return fmt.Errorf("failed to write output CSV: %w", err)
		}

		logger.Info("batch humanized", zap.Int("rows", len(records)), zap.Int("cells", n), zap.String("strength", strength))
		fmt.Printf("CSV humanized successfully: %s (%d cells)\n", batchOutputFile, n)
		return nil
	},
}

// humanizeRecords humanizes the selected non-empty cells of records and
// returns the new records with the number of cells changed. Citations and
// equations in cells are protected.
func humanizeRecords(h *humanizer.Humanizer, records [][]string, columns []int, header bool, strength string) ([][]string, int) {
	colSet := make(map[int]bool, len(columns))
	for _, c := range columns {
		colSet[c] = true
	}
	all := len(columns) == 0

	type cellRef struct {
		row, col  int
		originals []string
	}
	var (
		refs  []cellRef
		texts []string
	)

	out := make([][]string, len(records))
	for rowIdx, row := range records {
		out[rowIdx] = make([]string, len(row))
		copy(out[rowIdx], row)

		if header && rowIdx == 0 {
			continue
		}
		for colIdx, cell := range row {
			if (!all && !colSet[colIdx]) || cell == "" {
				continue
			}
			protected, originals := placeholder.Protect(cell)
			refs = append(refs, cellRef{rowIdx, colIdx, originals})
			texts = append(texts, protected)
		}
	}

	for i, text := range h.HumanizeBatch(texts, strength) {
		ref := refs[i]
		out[ref.row][ref.col] = placeholder.Restore(text, ref.originals)
	}
	return out, len(refs)
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchInputFile, "input", "i", "", "Input CSV file (required)")
	batchCmd.Flags().StringVarP(&batchOutputFile, "output", "o", "", "Output CSV file (required)")
	batchCmd.Flags().IntSliceVarP(&batchColumns, "column", "l", nil, "Column index to humanize (0-indexed, repeatable; default: all columns)")
	batchCmd.Flags().StringVar(&batchStrength, "strength", "", "Strength level (default from config: strong)")
	batchCmd.Flags().Uint64Var(&batchSeed, "seed", 0, "Random seed for reproducible output")
	batchCmd.Flags().BoolVar(&batchHeader, "header", false, "Keep the first row unchanged")

	batchCmd.MarkFlagRequired("input")
	batchCmd.MarkFlagRequired("output")
}
