package app

import (
	"fmt"
	"io"
	"time"

	"github.com/sophialabs/agenix/internal/domain/testcase"
)

// WriteReport prints one line per result followed by a summary line and
// returns the summary.
func WriteReport(w io.Writer, results []testcase.Result) testcase.Summary {
	for _, r := range results {
		switch r.Status {
		case testcase.StatusSuccess:
			fmt.Fprintf(w, "PASS  %s (%s)\n", r.Name, r.Duration.Round(time.Millisecond))
		case testcase.StatusFailure:
			fmt.Fprintf(w, "FAIL  %s [%s]: %s\n", r.Name, r.FailedAction, r.ErrorMessage)
		default:
			fmt.Fprintf(w, "SKIP  %s: %s\n", r.Name, r.ErrorMessage)
		}
	}

	sum := testcase.Summarize(results)
	fmt.Fprintf(w, "\n%d tests, %d passed, %d failed, %d skipped\n", sum.Total, sum.Success, sum.Failure, sum.Skipped)
	return sum
}
