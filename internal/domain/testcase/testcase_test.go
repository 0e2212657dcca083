package testcase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/agenix/internal/domain/action"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcase"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

func step(name string, fn func(tctx *testcontext.Context) error) action.Action {
	return action.Func{Label: name, Fn: func(_ context.Context, tctx *testcontext.Context) error {
		return fn(tctx)
	}}
}

func TestRunner_Success(t *testing.T) {
	var seen string
	tc := &testcase.TestCase{
		Name:      "greeting",
		Variables: map[string]any{"a": "x", "b": "${a}y"},
		Actions: []action.Action{
			step("read", func(tctx *testcontext.Context) error {
				var err error
				seen, err = tctx.VariableString("b")
				return err
			}),
		},
	}

	r := &testcase.Runner{}
	res := r.Run(context.Background(), tc)
	if res.Status != testcase.StatusSuccess {
		t.Fatalf("status = %s, cause %v", res.Status, res.Cause)
	}
	if seen != "xy" {
		t.Errorf("b = %q, want %q", seen, "xy")
	}
	if res.Name != "greeting" {
		t.Errorf("name = %q", res.Name)
	}
}

func TestRunner_FirstFailureAborts(t *testing.T) {
	ran := 0
	tc := &testcase.TestCase{
		Name: "abort",
		Actions: []action.Action{
			step("ok", func(*testcontext.Context) error { ran++; return nil }),
			step("bad", func(*testcontext.Context) error {
				ran++
				return failure.Mismatch("$.a", "1", "2")
			}),
			step("never", func(*testcontext.Context) error { ran++; return nil }),
		},
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	r := &testcase.Runner{Now: func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}}
	res := r.Run(context.Background(), tc)

	if ran != 2 {
		t.Errorf("ran %d actions, want 2", ran)
	}
	if res.Status != testcase.StatusFailure || !res.Failed() {
		t.Fatalf("status = %s", res.Status)
	}
	if res.FailedAction != "bad" {
		t.Errorf("failed action = %q", res.FailedAction)
	}
	if !failure.IsValidation(res.Cause) {
		t.Errorf("cause = %v, want validation error", res.Cause)
	}
	if res.ErrorMessage == "" {
		t.Error("expected error message")
	}
	if res.Duration != time.Second {
		t.Errorf("duration = %v", res.Duration)
	}
}

func TestRunner_FreshContextPerRun(t *testing.T) {
	tc := &testcase.TestCase{
		Name: "isolated",
		Actions: []action.Action{
			step("check", func(tctx *testcontext.Context) error {
				if tctx.HasVariable("leak") {
					return errors.New("variable leaked")
				}
				tctx.SetVariable("leak", true)
				return nil
			}),
		},
	}
	r := &testcase.Runner{}
	for i := 0; i < 2; i++ {
		if res := r.Run(context.Background(), tc); res.Failed() {
			t.Fatalf("run %d: %v", i, res.Cause)
		}
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tc := &testcase.TestCase{
		Name:    "cancelled",
		Actions: []action.Action{step("never", func(*testcontext.Context) error { return nil })},
	}
	res := (&testcase.Runner{}).Run(ctx, tc)
	if !errors.Is(res.Cause, context.Canceled) {
		t.Errorf("cause = %v, want context.Canceled", res.Cause)
	}
}

func TestRunner_MasksErrorMessage(t *testing.T) {
	tc := &testcase.TestCase{
		Name:    "masked",
		Actions: []action.Action{step("fail", func(*testcontext.Context) error { return errors.New("password=hunter2") })},
	}
	r := &testcase.Runner{NewContext: func() *testcontext.Context {
		return testcontext.New(testcontext.WithMasker(func(s string) string {
			return strings.ReplaceAll(s, "hunter2", "****")
		}))
	}}
	res := r.Run(context.Background(), tc)
	if res.ErrorMessage != "password=****" {
		t.Errorf("message = %q", res.ErrorMessage)
	}
}

func TestSummarize(t *testing.T) {
	results := []testcase.Result{
		{Name: "a", Status: testcase.StatusSuccess},
		{Name: "b", Status: testcase.StatusFailure, Cause: errors.New("boom")},
		testcase.Skipped("c", "filtered"),
	}
	s := testcase.Summarize(results)
	if s.Total != 3 || s.Success != 1 || s.Failure != 1 || s.Skipped != 1 {
		t.Errorf("summary = %+v", s)
	}
	err := testcase.FirstFailure(results)
	if err == nil || !strings.Contains(err.Error(), "test b: boom") {
		t.Errorf("first failure = %v", err)
	}
}

func TestDefinition_Validate(t *testing.T) {
	echo := "hi"
	tests := []struct {
		name    string
		def     testcase.Definition
		wantErr string
	}{
		{
			name: "valid",
			def: testcase.Definition{Name: "ok", Actions: []testcase.ActionDef{
				{Echo: &echo},
				{Send: &testcase.SendDef{Endpoint: "q"}},
				{Conditional: &testcase.ConditionalDef{When: "true", Actions: []testcase.ActionDef{{Echo: &echo}}}},
			}},
		},
		{name: "missing name", def: testcase.Definition{}, wantErr: "name is required"},
		{
			name:    "empty action",
			def:     testcase.Definition{Name: "t", Actions: []testcase.ActionDef{{}}},
			wantErr: "actions[0]: empty action",
		},
		{
			name: "two actions in one entry",
			def: testcase.Definition{Name: "t", Actions: []testcase.ActionDef{
				{Echo: &echo, Sleep: &testcase.SleepDef{Duration: time.Second}},
			}},
			wantErr: "exactly one action",
		},
		{
			name:    "receive without endpoint",
			def:     testcase.Definition{Name: "t", Actions: []testcase.ActionDef{{Receive: &testcase.ReceiveDef{}}}},
			wantErr: "actions[0].receive: endpoint is required",
		},
		{
			name: "nested invalid",
			def: testcase.Definition{Name: "t", Actions: []testcase.ActionDef{
				{Conditional: &testcase.ConditionalDef{When: "true", Actions: []testcase.ActionDef{{}}}},
			}},
			wantErr: "actions[0].conditional.actions[0]: empty action",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestActionDef_Kind(t *testing.T) {
	echo := "x"
	tests := []struct {
		def  testcase.ActionDef
		want string
	}{
		{testcase.ActionDef{Send: &testcase.SendDef{}}, "send"},
		{testcase.ActionDef{Receive: &testcase.ReceiveDef{}}, "receive"},
		{testcase.ActionDef{CreateVariables: map[string]any{}}, "createVariables"},
		{testcase.ActionDef{Echo: &echo}, "echo"},
		{testcase.ActionDef{Sleep: &testcase.SleepDef{}}, "sleep"},
		{testcase.ActionDef{Conditional: &testcase.ConditionalDef{}}, "conditional"},
		{testcase.ActionDef{Purge: &testcase.PurgeDef{}}, "purge"},
		{testcase.ActionDef{}, ""},
	}
	for _, tt := range tests {
		if got := tt.def.Kind(); got != tt.want {
			t.Errorf("Kind() = %q, want %q", got, tt.want)
		}
	}
}
