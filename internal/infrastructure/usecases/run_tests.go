package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/agenix/internal/domain/testcase"
	"github.com/sophialabs/agenix/internal/infrastructure/ports"
	"github.com/sophialabs/agenix/internal/infrastructure/services"
)

// Catalog is the outcome of loading the test directory.
type Catalog struct {
	Index *services.TestIndex
	// Broken holds the compile error of each test that could not be built.
	Broken map[string]error
	// Order lists every test name, broken ones included, in load order.
	Order []string
}

// RunOptions selects which tests run and how.
type RunOptions struct {
	// Names restricts the run to these tests. Empty runs all.
	Names []string
	// FailFast skips the remaining tests after the first failure.
	FailFast bool
}

// RunTestsUseCase loads, compiles and runs YAML tests.
type RunTestsUseCase struct {
	repo     testcase.Repository
	compiler *services.Compiler
	runner   *testcase.Runner
	logger   ports.Logger
}

// NewRunTestsUseCase creates a new use case.
func NewRunTestsUseCase(repo testcase.Repository, compiler *services.Compiler, runner *testcase.Runner, logger ports.Logger) *RunTestsUseCase {
	return &RunTestsUseCase{
		repo:     repo,
		compiler: compiler,
		runner:   runner,
		logger:   logger,
	}
}

// Load reads and compiles every test. Duplicate test names fail the load;
// tests that do not compile are reported in Catalog.Broken.
func (uc *RunTestsUseCase) Load(ctx context.Context) (*Catalog, error) {
	defs, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}

	uc.logger.Info("loaded tests from repository", "count", len(defs))

	seen := make(map[string]string, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			continue
		}
		src := source(d)
		if prev, ok := seen[d.Name]; ok {
			return nil, fmt.Errorf("duplicate test name %q in %s (first defined in %s)", d.Name, src, prev)
		}
		seen[d.Name] = src
	}

	cat := &Catalog{
		Index:  services.NewTestIndex(),
		Broken: make(map[string]error),
	}
	for _, d := range defs {
		name := d.Name
		if name == "" {
			// Unnamed tests fail validation; report them by source.
			name = source(d)
		}
		cat.Order = append(cat.Order, name)

		tc, err := uc.compiler.Compile(d)
		if err != nil {
			cat.Broken[name] = err
			uc.logger.Warn("failed to compile test", "test", name, "source", source(d), "error", err)
			continue
		}
		if err := cat.Index.Add(tc, source(d)); err != nil {
			return nil, err
		}
		uc.logger.Debug("compiled test", "test", tc.Name, "actions", len(tc.Actions))
	}

	if len(cat.Broken) > 0 {
		uc.logger.Warn("some tests failed to compile", "errors", len(cat.Broken))
	}
	return cat, nil
}

// Execute runs the selected tests in load order and returns one result per
// test. The error reports load problems and unknown test names only; test
// failures are in the results.
func (uc *RunTestsUseCase) Execute(ctx context.Context, opts RunOptions) ([]testcase.Result, error) {
	cat, err := uc.Load(ctx)
	if err != nil {
		return nil, err
	}

	names, err := selectNames(cat, opts.Names)
	if err != nil {
		return nil, err
	}

	results := make([]testcase.Result, 0, len(names))
	var stopReason string
	for _, name := range names {
		if stopReason == "" && ctx.Err() != nil {
			stopReason = "run cancelled"
		}
		if stopReason != "" {
			results = append(results, testcase.Skipped(name, stopReason))
			continue
		}

		res := uc.runOne(ctx, cat, name)
		results = append(results, res)
		if res.Failed() && opts.FailFast {
			stopReason = fmt.Sprintf("skipped after failure of %s", name)
		}
	}

	sum := testcase.Summarize(results)
	uc.logger.Info("test run finished",
		"total", sum.Total, "success", sum.Success, "failure", sum.Failure, "skipped", sum.Skipped)
	return results, nil
}

func (uc *RunTestsUseCase) runOne(ctx context.Context, cat *Catalog, name string) testcase.Result {
	if err, broken := cat.Broken[name]; broken {
		return testcase.Result{
			Name:         name,
			Status:       testcase.StatusFailure,
			Cause:        err,
			ErrorMessage: err.Error(),
			FailedAction: "compile",
		}
	}
	tc, _ := cat.Index.Lookup(name)
	uc.logger.Info("running test", "test", name)
	return uc.runner.Run(ctx, tc)
}

func selectNames(cat *Catalog, wanted []string) ([]string, error) {
	if len(wanted) == 0 {
		return cat.Order, nil
	}
	known := make(map[string]bool, len(cat.Order))
	for _, n := range cat.Order {
		known[n] = true
	}
	for _, n := range wanted {
		if !known[n] {
			return nil, fmt.Errorf("test %q: %w", n, testcase.ErrNotFound)
		}
	}
	return wanted, nil
}

func source(d *testcase.Definition) string {
	if d.SourceIndex < 0 {
		return d.SourceFile
	}
	return fmt.Sprintf("%s[%d]", d.SourceFile, d.SourceIndex)
}
