package indexer

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/dshills/localrag-mcp/pkg/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errInvalidUTF8 = errors.New("invalid UTF-8")

// decodeStrategy converts raw file bytes to text.
type decodeStrategy struct {
	name   string
	decode func([]byte) (string, error)
}

// decodeStrategies are tried in order; the first success wins.
var decodeStrategies = []decodeStrategy{
	{name: "utf-8", decode: decodeUTF8},
	{name: "iso-8859-1", decode: decodeLatin1},
}

func decodeUTF8(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return "", errInvalidUTF8
	}
	return string(b), nil
}

func decodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decode returns the text of b using the first strategy that succeeds, and
// the strategy name.
func decode(b []byte) (string, string, error) {
	return decodeWith(decodeStrategies, b)
}

func decodeWith(strategies []decodeStrategy, b []byte) (string, string, error) {
	var errs []error
	for _, s := range strategies {
		text, err := s.decode(b)
		if err == nil {
			return text, s.name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return "", "", fmt.Errorf("%w: %w", types.ErrDecode, errors.Join(errs...))
}
