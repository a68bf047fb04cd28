package language

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names the decoder that produced a text.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF8BOM     Encoding = "utf-8-sig"
	EncodingWindows1252 Encoding = "cp1252"
	EncodingLatin1      Encoding = "latin-1"
	EncodingLossy       Encoding = "utf-8-replace"
)

// ErrBinaryContent is returned by Decode for data that is not text under any encoding.
var ErrBinaryContent = errors.New("binary content")

// binarySniffSize is how many leading bytes IsBinaryContent inspects.
const binarySniffSize = 8000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsBinaryContent reports whether data looks binary: a NUL byte within the first
// 8000 bytes, the same heuristic git uses.
func IsBinaryContent(data []byte) bool {
	checkSize := binarySniffSize
	if len(data) < checkSize {
		checkSize = len(data)
	}
	return bytes.IndexByte(data[:checkSize], 0) >= 0
}

// Decode turns raw file bytes into text, trying UTF-8, UTF-8 with a byte order mark,
// Windows-1252, ISO-8859-1 and finally UTF-8 with invalid sequences replaced.
func Decode(data []byte) (string, Encoding, error) {
	if IsBinaryContent(data) {
		return "", "", ErrBinaryContent
	}

	if bytes.HasPrefix(data, utf8BOM) {
		if rest := data[len(utf8BOM):]; utf8.Valid(rest) {
			return string(rest), EncodingUTF8BOM, nil
		}
	} else if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	if text, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil && !bytes.ContainsRune(text, utf8.RuneError) {
		return string(text), EncodingWindows1252, nil
	}

	if text, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return string(text), EncodingLatin1, nil
	}

	return strings.ToValidUTF8(string(data), "�"), EncodingLossy, nil
}
