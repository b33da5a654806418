package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// resetFlags puts every flag back to its default so runs do not leak
// values into each other.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	simulateCmd.Flags().VisitAll(reset)
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("pacerd %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestSimulateWalksCourse(t *testing.T) {
	got := runCLI(t, "simulate", "--seed", "7", "--steps", "20", "--stride", "1", "--interval", "500ms")

	if !strings.Contains(got, "steps 20  distance 20.00m  cadence 120 spm  pace good") {
		t.Fatalf("unexpected pacer summary:\n%s", got)
	}
	if !strings.Contains(got, "collected 2  remaining 48") {
		t.Fatalf("expected two orbs collected:\n%s", got)
	}
	if strings.Count(got, "orb ") != 2 {
		t.Fatalf("expected one line per collected orb:\n%s", got)
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	args := []string{"simulate", "--seed", "42", "--steps", "80", "--interval", "400ms"}
	a := runCLI(t, args...)
	b := runCLI(t, args...)
	if a != b {
		t.Fatalf("same seed produced different runs:\n%s\n---\n%s", a, b)
	}
}

func TestSimulateRejectsUnknownMode(t *testing.T) {
	resetFlags()
	rootCmd.SetArgs([]string{"simulate", "--mode", "zigzag"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected error for unknown collect mode")
	}
}

func TestSimulateRejectsNonPositiveStride(t *testing.T) {
	t.Cleanup(resetFlags)
	for _, stride := range []string{"0", "-0.5"} {
		resetFlags()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs([]string{"simulate", "--stride=" + stride})
		if err := rootCmd.Execute(); err == nil {
			t.Fatalf("stride %s accepted", stride)
		}
	}
	rootCmd.SetArgs(nil)
}

func TestSimulateReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacerd.yaml")
	yaml := "pacer:\n  stride_length: 1\ncourse:\n  orbs: 4\n  spacing: 1\n  seed: 5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(resetFlags)

	got := runCLI(t, "--config", path, "simulate", "--steps", "6", "--interval", "500ms")
	if !strings.Contains(got, "distance 6.00m") {
		t.Fatalf("stride from config not applied:\n%s", got)
	}
	if !strings.Contains(got, "collected 4  remaining 0") {
		t.Fatalf("course from config not applied:\n%s", got)
	}
}
