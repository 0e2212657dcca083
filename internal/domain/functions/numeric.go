package functions

import (
	"math"
	"strconv"

	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

func numericFunctions() []testcontext.Function {
	return []testcontext.Function{
		ranged("Sum", 1, testcontext.Unbounded, fold("Sum", func(acc, v float64) float64 { return acc + v })),
		ranged("Max", 1, testcontext.Unbounded, fold("Max", math.Max)),
		ranged("Min", 1, testcontext.Unbounded, fold("Min", math.Min)),
		ranged("Avg", 1, testcontext.Unbounded, func(ctx *testcontext.Context, args []string) (string, error) {
			sum, err := fold("Avg", func(acc, v float64) float64 { return acc + v })(ctx, args)
			if err != nil {
				return "", err
			}
			total, _ := strconv.ParseFloat(sum, 64)
			return formatNumber(total / float64(len(args))), nil
		}),
		fixed("Round", 1, unary("Round", math.Round)),
		fixed("Floor", 1, unary("Floor", math.Floor)),
		fixed("Ceiling", 1, unary("Ceiling", math.Ceil)),
		fixed("Absolute", 1, unary("Absolute", math.Abs)),
	}
}

func fold(name string, op func(acc, v float64) float64) func(*testcontext.Context, []string) (string, error) {
	return func(_ *testcontext.Context, args []string) (string, error) {
		acc, err := parseNumber(name, args[0])
		if err != nil {
			return "", err
		}
		for _, a := range args[1:] {
			v, err := parseNumber(name, a)
			if err != nil {
				return "", err
			}
			acc = op(acc, v)
		}
		return formatNumber(acc), nil
	}
}

func unary(name string, op func(float64) float64) func(*testcontext.Context, []string) (string, error) {
	return func(_ *testcontext.Context, args []string) (string, error) {
		v, err := parseNumber(name, args[0])
		if err != nil {
			return "", err
		}
		return formatNumber(op(v)), nil
	}
}

func parseNumber(fn, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, usage(fn, "%q is not a number", s)
	}
	return v, nil
}

// formatNumber renders whole numbers without a fraction.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
