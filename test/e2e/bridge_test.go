//go:build e2e

package e2e_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sophialabs/agenix/internal/domain/trace"
	"github.com/sophialabs/agenix/internal/infrastructure/usecases"
)

func TestE2E_TestDataPasses(t *testing.T) {
	c, _ := setupE2E(t, filepath.Join(projectRoot(), "testdata"))

	results, err := c.RunTests().Execute(context.Background(), usecases.RunOptions{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, r := range results {
		if r.Failed() {
			t.Errorf("%s failed in %s: %s", r.Name, r.FailedAction, r.ErrorMessage)
		}
	}
}

// TestE2E_RequestReply plays the system under test over HTTP: it consumes
// the request the YAML test sends and publishes the reply the test expects.
func TestE2E_RequestReply(t *testing.T) {
	dir := t.TempDir()
	yaml := `name: request-reply
variables:
  customer: "4711"
actions:
  - send:
      endpoint: requests
      message:
        type: JSON
        payload: '{"customer": "${customer}", "password": "s3cret"}'
        headers:
          Operation: lookup
  - receive:
      endpoint: replies
      timeout: 5s
      selector: "Operation = 'lookupReply'"
      message:
        type: JSON
        payload: '{"customer": "${customer}", "status": "@Matches(''ACTIVE|PENDING'')@"}'
      extract:
        body:
          $.status: status
  - echo: "customer ${customer} is ${status}"
`
	if err := os.WriteFile(filepath.Join(dir, "reply.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, ts := setupE2E(t, dir)

	sutErr := make(chan error, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/queues/requests/messages?timeout=5s")
		if err != nil {
			sutErr <- err
			return
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Operation") != "lookup" {
			sutErr <- &unexpectedResponse{resp.StatusCode, string(body)}
			return
		}

		var req map[string]string
		if err := json.Unmarshal(body, &req); err != nil {
			sutErr <- err
			return
		}
		reply, _ := http.NewRequest(http.MethodPost, ts.URL+"/queues/replies/messages",
			strings.NewReader(`{"customer": "`+req["customer"]+`", "status": "ACTIVE"}`))
		reply.Header.Set("Content-Type", "application/json")
		reply.Header.Set("Operation", "lookupReply")
		resp, err = http.DefaultClient.Do(reply)
		if err != nil {
			sutErr <- err
			return
		}
		resp.Body.Close()
		sutErr <- nil
	}()

	results, err := c.RunTests().Execute(context.Background(), usecases.RunOptions{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := <-sutErr; err != nil {
		t.Fatalf("system under test failed: %v", err)
	}
	if len(results) != 1 || results[0].Failed() {
		t.Fatalf("unexpected results: %+v", results)
	}

	resp, err := http.Get(ts.URL + "/__admin/trace?endpoint=requests")
	if err != nil {
		t.Fatalf("GET trace failed: %v", err)
	}
	defer resp.Body.Close()
	var entries []trace.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected send and receive on requests, got %d entries", len(entries))
	}
	if strings.Contains(entries[0].Payload, "s3cret") {
		t.Errorf("trace payload not masked: %s", entries[0].Payload)
	}
}

type unexpectedResponse struct {
	status int
	body   string
}

func (e *unexpectedResponse) Error() string {
	return http.StatusText(e.status) + ": " + e.body
}
