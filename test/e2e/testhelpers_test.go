//go:build e2e

package e2e_test

import (
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	inboundhttp "github.com/sophialabs/agenix/internal/infrastructure/inbound/http"
	"github.com/sophialabs/agenix/internal/infrastructure/wiring"
	"github.com/sophialabs/agenix/internal/testutil"
)

func projectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	// file = <root>/test/e2e/testhelpers_test.go, go up 2 levels
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// setupE2E wires the whole stack for rootDir with the system clock and
// serves the queue bridge from an httptest server.
func setupE2E(t *testing.T, rootDir string) (*wiring.Container, *httptest.Server) {
	t.Helper()

	c, err := wiring.New(wiring.Params{
		RootDir:         rootDir,
		FunctionPrefix:  "agenix:",
		Encoding:        "UTF-8",
		PollingInterval: 50 * time.Millisecond,
		ReceiveTimeout:  5 * time.Second,
		MaskKeywords:    []string{"password"},
		MaskLogs:        true,
		TraceSize:       100,
		Logger:          &testutil.NoopLogger{},
		Settings: func() inboundhttp.Settings {
			return inboundhttp.Settings{MaxReceiveTimeout: 10 * time.Second, TraceLimit: 50}
		},
	})
	if err != nil {
		t.Fatalf("failed to wire container: %v", err)
	}
	t.Cleanup(c.Close)

	ts := httptest.NewServer(c.Server())
	t.Cleanup(ts.Close)
	return c, ts
}
