package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRun_TestData(t *testing.T) {
	out, err := execute(t, "run", "../../testdata", "--log-level", "error")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"PASS  hello-xml", "PASS  order-json", "PASS  purge-stale", "3 tests, 3 passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_SelectByName(t *testing.T) {
	out, err := execute(t, "run", "../../testdata", "--name", "purge-stale", "--log-level", "error")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if strings.Contains(out, "hello-xml") || !strings.Contains(out, "1 tests, 1 passed") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_FailureSetsExitError(t *testing.T) {
	dir := t.TempDir()
	yaml := `name: mismatch
actions:
  - send:
      endpoint: q
      message:
        payload: <A>1</A>
  - receive:
      endpoint: q
      message:
        payload: <A>2</A>
`
	if err := os.WriteFile(filepath.Join(dir, "fail.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", dir, "--log-level", "error")
	if !errors.Is(err, errTestsFailed) {
		t.Fatalf("expected errTestsFailed, got %v", err)
	}
	if !strings.Contains(out, "FAIL  mismatch [receive]") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_SettingsFile(t *testing.T) {
	settings := filepath.Join(t.TempDir(), "agenix.yaml")
	if err := os.WriteFile(settings, []byte("log_level: error\nreceive_timeout: 1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "run", "../../testdata", "--settings", settings); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"log level", []string{"run", "../../testdata", "--log-level", "loud"}},
		{"missing dir", []string{"run", "/nonexistent/path/that/does/not/exist"}},
		{"missing settings", []string{"run", "../../testdata", "--settings", "/nonexistent/agenix.yaml"}},
		{"too many args", []string{"run", "a", "b"}},
		{"serve args", []string{"serve", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
