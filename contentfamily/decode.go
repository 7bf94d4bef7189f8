package contentfamily

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

var errInvalidCharset = errors.New("contentfamily: body is not valid text for the declared charset")

// Blob wraps bytes that were not decoded to a logical value, carrying a
// synthesized filename derived from the family (e.g. "file.png"),
// mirroring original_source/parsers.py's BytesIO(...).name convention.
type Blob struct {
	Name string
	Data []byte
}

func (b *Blob) Bytes() []byte { return b.Data }

// Decode decodes raw bytes according to the family classified from the
// Content-Type header, first trying Sniff when the declared type is
// absent or generic. The returned value is one of: map[string]any,
// []any, string, or *Blob.
func Decode(contentType string, body []byte) (any, Family, error) {
	ct := ParseContentType(contentType)
	ct = Sniff(ct, body)
	family := Classify(ct)

	switch {
	case family == FamilyJSON:
		return decodeJSON(ct, body)
	case IsBinary(family):
		return decodeBinary(family, ct, body), family, nil
	case IsText(family):
		return decodeText(ct, body), family, nil
	default:
		return decodeText(ct, body), family, nil
	}
}

func decodeJSON(ct ContentType, body []byte) (any, Family, error) {
	text, err := decodeCharset(ct.Charset, body)
	if err != nil {
		// Fall back to treating the raw bytes as best-effort UTF-8.
		text = string(body)
	}

	clean := stripCSRFPrefix(strings.TrimLeft(text, " \t\r\n"))

	var obj map[string]any
	if err := sonic.UnmarshalString(clean, &obj); err == nil {
		return obj, FamilyJSON, nil
	}

	var arr []any
	if err := sonic.UnmarshalString(clean, &arr); err == nil {
		return arr, FamilyJSON, nil
	}

	// Parse failure: fall back to the decoded string, per spec.
	return text, FamilyJSON, nil
}

func decodeBinary(family Family, ct ContentType, body []byte) *Blob {
	ext, ok := binaryExt[family]
	if !ok {
		ext = ".bin"
	}
	if mainExt := extensionFromMainType(ct.MainType); mainExt != "" {
		ext = mainExt
	}
	return &Blob{Name: "file" + ext, Data: body}
}

var mainTypeExt = map[string]string{
	"image/jpeg":       ".jpg",
	"image/jpg":        ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/svg+xml":    ".svg",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"audio/mpeg":       ".mp3",
	"audio/ogg":        ".ogg",
	"font/woff":        ".woff",
	"font/woff2":       ".woff2",
	"application/pdf":  ".pdf",
	"application/zip":  ".zip",
	"application/gzip": ".gz",
}

func extensionFromMainType(mainType string) string {
	return mainTypeExt[mainType]
}

func decodeText(ct ContentType, body []byte) any {
	text, err := decodeCharset(ct.Charset, body)
	if err != nil {
		return &Blob{Name: "file.bin", Data: body}
	}
	return text
}

// decodeCharset decodes body as text. Only UTF-8 and its ASCII subset are
// decoded directly (the overwhelming majority of real traffic); any other
// declared charset is accepted as-is if it happens to already be valid
// UTF-8, and rejected otherwise so the caller can fall back to a Blob.
// This repo does not carry a full charset-transcoding library (none of
// the example repos import one); see DESIGN.md.
func decodeCharset(charset string, body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	return "", errInvalidCharset
}
