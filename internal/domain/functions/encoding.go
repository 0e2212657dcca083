package functions

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"net/url"

	"github.com/sophialabs/agenix/internal/domain/convert"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

func encodingFunctions() []testcontext.Function {
	return []testcontext.Function{
		ranged("EncodeBase64", 1, 2, func(ctx *testcontext.Context, args []string) (string, error) {
			engine := ctx.Converter()
			if len(args) == 2 {
				engine = convert.New(convert.WithCharset(args[1]))
			}
			encoded, err := convert.To[convert.Base64](engine, args[0])
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		}),
		ranged("DecodeBase64", 1, 2, func(ctx *testcontext.Context, args []string) (string, error) {
			engine := ctx.Converter()
			if len(args) == 2 {
				engine = convert.New(convert.WithCharset(args[1]))
			}
			raw, err := convert.To[[]byte](engine, convert.Base64(args[0]))
			if err != nil {
				return "", usage("DecodeBase64", "%v", err)
			}
			return engine.ToString(raw), nil
		}),
		fixed("UrlEncode", 1, func(_ *testcontext.Context, args []string) (string, error) {
			return url.QueryEscape(args[0]), nil
		}),
		fixed("UrlDecode", 1, func(_ *testcontext.Context, args []string) (string, error) {
			out, err := url.QueryUnescape(args[0])
			if err != nil {
				return "", usage("UrlDecode", "%v", err)
			}
			return out, nil
		}),
		fixed("Md5Hex", 1, func(_ *testcontext.Context, args []string) (string, error) {
			sum := md5.Sum([]byte(args[0]))
			return hex.EncodeToString(sum[:]), nil
		}),
		fixed("DigestBase64", 1, func(_ *testcontext.Context, args []string) (string, error) {
			sum := md5.Sum([]byte(args[0]))
			return base64.StdEncoding.EncodeToString(sum[:]), nil
		}),
	}
}
