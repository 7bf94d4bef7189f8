// Package contentfamily maps Content-Type header values to a logical
// content family and decodes response bodies accordingly (C1).
package contentfamily

import "strings"

// Family classifies a response body by its Content-Type main type.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyJSON
	FamilyHTML
	FamilyCSS
	FamilyJS
	FamilyImage
	FamilyVideo
	FamilyAudio
	FamilyFont
	FamilyApplication
	FamilyArchive
	FamilyText
	FamilyAny // predicate-only wildcard, never returned by Classify
)

func (f Family) String() string {
	switch f {
	case FamilyJSON:
		return "json"
	case FamilyHTML:
		return "html"
	case FamilyCSS:
		return "css"
	case FamilyJS:
		return "js"
	case FamilyImage:
		return "image"
	case FamilyVideo:
		return "video"
	case FamilyAudio:
		return "audio"
	case FamilyFont:
		return "font"
	case FamilyApplication:
		return "application"
	case FamilyArchive:
		return "archive"
	case FamilyText:
		return "text"
	case FamilyAny:
		return "any"
	default:
		return "unknown"
	}
}

// binaryExt maps a Family to the filename extension used when the
// body is wrapped as an opaque Blob.
var binaryExt = map[Family]string{
	FamilyImage:       ".png",
	FamilyVideo:       ".mp4",
	FamilyAudio:       ".mp3",
	FamilyFont:        ".woff",
	FamilyApplication: ".bin",
	FamilyArchive:     ".zip",
}

// exactMainTypes maps a normalised main-type (e.g. "application/json") to
// a Family. Classify falls back to the bare top-level type (e.g. "image")
// for main-types not listed here.
var exactMainTypes = map[string]Family{
	"application/json":       FamilyJSON,
	"application/ld+json":    FamilyJSON,
	"text/html":              FamilyHTML,
	"application/xhtml+xml":  FamilyHTML,
	"text/css":               FamilyCSS,
	"application/javascript": FamilyJS,
	"text/javascript":        FamilyJS,
	"application/zip":        FamilyArchive,
	"application/gzip":       FamilyArchive,
	"application/x-tar":      FamilyArchive,
	"application/x-gzip":     FamilyArchive,
}

// ContentType is a parsed Content-Type header.
type ContentType struct {
	MainType string // lowercased, e.g. "image/png"
	Charset  string // defaults to "utf-8"
	Params   map[string]string
}

// ParseContentType parses a Content-Type header value, tolerating the
// malformed/duplicated-parameter values real servers send. Case is
// normalised; charset defaults to utf-8 when absent.
func ParseContentType(raw string) ContentType {
	ct := ContentType{Charset: "utf-8", Params: map[string]string{}}
	if raw == "" {
		return ct
	}

	lowered := strings.ToLower(strings.ReplaceAll(raw, " ", ""))
	parts := strings.Split(lowered, ";")
	ct.MainType = parts[0]

	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			key := part[:eq]
			value := strings.Trim(part[eq+1:], `"'`)
			ct.Params[key] = value
			if key == "charset" {
				ct.Charset = value
			}
		} else {
			ct.Params[part] = ""
		}
	}
	return ct
}

// Classify maps a parsed Content-Type to a content Family. When mainType
// carries no recognisable family (e.g. it is empty or generic), callers
// should fall back to Sniff.
func Classify(ct ContentType) Family {
	if fam, ok := exactMainTypes[ct.MainType]; ok {
		return fam
	}

	topLevel, _, _ := strings.Cut(ct.MainType, "/")
	switch topLevel {
	case "image":
		return FamilyImage
	case "video":
		return FamilyVideo
	case "audio":
		return FamilyAudio
	case "font":
		return FamilyFont
	case "text":
		return FamilyText
	case "application":
		return FamilyApplication
	}

	if strings.Contains(ct.MainType, "javascript") {
		return FamilyJS
	}

	return FamilyUnknown
}

// IsBinary reports whether a family's content is an opaque blob rather
// than parsed text/JSON.
func IsBinary(f Family) bool {
	switch f {
	case FamilyImage, FamilyVideo, FamilyAudio, FamilyFont, FamilyApplication, FamilyArchive:
		return true
	default:
		return false
	}
}

// IsText reports whether a family decodes to a string.
func IsText(f Family) bool {
	switch f {
	case FamilyHTML, FamilyCSS, FamilyJS, FamilyText, FamilyUnknown:
		return true
	default:
		return false
	}
}
