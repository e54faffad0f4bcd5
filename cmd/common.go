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
	"io"
	"os"
	"path/filepath"

	"github.com/valpere/peredit/internal/orchestrator"
	"github.com/valpere/peredit/internal/rewriter"
	"github.com/valpere/peredit/internal/store"
)

// readInput reads path, or stdin when path is empty or "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

// writeOutput writes text to path, or to stdout when path is empty or "-".
func writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func sameFile(in, out string) bool {
	if in == "" || in == "-" || out == "" || out == "-" {
		return false
	}
	a, errA := filepath.Abs(in)
	b, errB := filepath.Abs(out)
	return errA == nil && errB == nil && a == b
}

// openStore opens the rewrite memory. It returns nil when no database path
// is configured.
func openStore() (*store.Store, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// buildOrchestrator wires the configured backend, the store and the logger.
func buildOrchestrator(db *store.Store, override func(*orchestrator.OrchestratorConfig)) (*orchestrator.Orchestrator, error) {
	service, err := rewriter.New(cfg.Backend, cfg.RewriterConfig())
	if err != nil {
		return nil, err
	}

	oc := cfg.OrchestratorConfig()
	if override != nil {
		override(&oc)
	}

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if db != nil {
		opts = append(opts, orchestrator.WithStore(db))
	}
	return orchestrator.New(service, oc, opts...), nil
}
