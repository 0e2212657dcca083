package functions

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

const (
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
	digits       = "0123456789"
)

func randomFunctions() []testcontext.Function {
	return []testcontext.Function{
		fixed("RandomUUID", 0, func(_ *testcontext.Context, _ []string) (string, error) {
			return uuid.NewString(), nil
		}),
		ranged("RandomNumber", 1, 2, randomNumber),
		ranged("RandomString", 1, 3, randomString),
		ranged("RandomEnumValue", 1, testcontext.Unbounded, func(_ *testcontext.Context, args []string) (string, error) {
			return args[rand.IntN(len(args))], nil
		}),
	}
}

// randomNumber returns a number with the given count of digits. Leading
// zeros are kept when the optional padding flag is true.
func randomNumber(_ *testcontext.Context, args []string) (string, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return "", usage("RandomNumber", "invalid length %q", args[0])
	}
	padding := true
	if len(args) == 2 {
		padding, err = strconv.ParseBool(args[1])
		if err != nil {
			return "", usage("RandomNumber", "invalid padding flag %q", args[1])
		}
	}

	var b strings.Builder
	for i := range n {
		d := digits[rand.IntN(10)]
		if i == 0 && !padding {
			d = digits[1+rand.IntN(9)]
		}
		b.WriteByte(d)
	}
	return b.String(), nil
}

// randomString returns n random letters. The optional mode is UPPERCASE,
// LOWERCASE or MIXED (default); the optional flag adds digits to the alphabet.
func randomString(_ *testcontext.Context, args []string) (string, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return "", usage("RandomString", "invalid length %q", args[0])
	}

	alphabet := upperLetters + lowerLetters
	if len(args) > 1 {
		switch strings.ToUpper(args[1]) {
		case "UPPERCASE":
			alphabet = upperLetters
		case "LOWERCASE":
			alphabet = lowerLetters
		case "MIXED":
		default:
			return "", usage("RandomString", "unknown mode %q", args[1])
		}
	}
	if len(args) > 2 {
		withDigits, err := strconv.ParseBool(args[2])
		if err != nil {
			return "", usage("RandomString", "invalid number flag %q", args[2])
		}
		if withDigits {
			alphabet += digits
		}
	}

	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(out), nil
}
