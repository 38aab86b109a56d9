package store

// decode.go turns raw file bytes into text.
//
// Encodings are tried in order and the first one that decodes without error
// is used:
//
//  1. UTF-8 with a byte-order mark (spreadsheet exports)
//  2. UTF-16 with a byte-order mark
//  3. plain UTF-8
//  4. Windows-1252, which accepts any byte sequence
//
// Only the UTF-8 variants are safe to append to in place; a table read
// through any other decoder is rewritten as UTF-8 before the next append.

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	encUTF8BOM     = "utf-8-bom"
	encUTF16       = "utf-16"
	encUTF8        = "utf-8"
	encWindows1252 = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

var (
	errNoBOM       = errors.New("no byte-order mark")
	errInvalidUTF8 = errors.New("invalid UTF-8")
)

type textDecoder struct {
	name   string
	decode func([]byte) (string, error)
}

var decoders = []textDecoder{
	{name: encUTF8BOM, decode: decodeUTF8BOM},
	{name: encUTF16, decode: decodeUTF16},
	{name: encUTF8, decode: decodeUTF8},
	{name: encWindows1252, decode: decodeWith(charmap.Windows1252)},
}

// decodeText returns data as text and the name of the encoding that decoded it.
func decodeText(data []byte) (string, string, error) {
	var errs []error
	for _, d := range decoders {
		text, err := d.decode(data)
		if err == nil {
			return text, d.name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
	}
	return "", "", errors.Join(errs...)
}

// appendSafe reports whether a file in the named encoding can take appended
// UTF-8 rows without being rewritten.
func appendSafe(enc string) bool {
	return enc == encUTF8 || enc == encUTF8BOM
}

func decodeUTF8BOM(data []byte) (string, error) {
	if !bytes.HasPrefix(data, bomUTF8) {
		return "", errNoBOM
	}
	return decodeUTF8(data[len(bomUTF8):])
}

func decodeUTF16(data []byte) (string, error) {
	if !bytes.HasPrefix(data, bomUTF16LE) && !bytes.HasPrefix(data, bomUTF16BE) {
		return "", errNoBOM
	}
	// ExpectBOM lets the mark pick the byte order and strips it.
	out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}

func decodeWith(enc encoding.Encoding) func([]byte) (string, error) {
	return func(data []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
