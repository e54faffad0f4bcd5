package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with args from an empty working directory,
// so no peredit.yaml or .env on the host leaks into the run.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.Execute()
}

func TestHumanizeCommand_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "draft.txt")
	out := filepath.Join(dir, "out", "final.txt")
	draft := "Many studies show a clear link between sleep and memory [1]. " +
		"The results were good and the method was robust across every group we tested."
	if err := os.WriteFile(in, []byte(draft), 0644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "humanize",
		"-i", in, "-o", out,
		"--seed", "7",
		"--stages", "lexical",
		"--strength", "extreme",
		"--model", "test/model")
	if err != nil {
		t.Fatalf("humanize failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "[1]") {
		t.Errorf("citation lost: %q", got)
	}
	if strings.Contains(got, "⟦") {
		t.Errorf("placeholder left in output: %q", got)
	}

	if cfg == nil {
		t.Fatal("config was not loaded")
	}
	if cfg.OpenRouter.Model != "test/model" {
		t.Errorf("model flag not applied: %q", cfg.OpenRouter.Model)
	}
	if logger == nil {
		t.Error("logger was not built")
	}
}

func TestHumanizeCommand_SameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	if err := os.WriteFile(path, []byte("Sleep helps memory."), 0644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "humanize", "-i", path, "-o", path)
	if err == nil || !strings.Contains(err.Error(), "cannot be the same") {
		t.Fatalf("expected same-file error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "Sleep helps memory." {
		t.Errorf("input was overwritten: %q", data)
	}
}

func TestHumanizeCommand_BadFormat(t *testing.T) {
	in := filepath.Join(t.TempDir(), "paper.txt")
	if err := os.WriteFile(in, []byte("Sleep helps memory."), 0644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "humanize", "-i", in, "-o", filepath.Join(t.TempDir(), "x.txt"), "--format", "rtf")
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected format error, got %v", err)
	}
	humanizeFormat = "text"
}
