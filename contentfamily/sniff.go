package contentfamily

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// genericMainTypes are Content-Type values too generic to classify on
// their own; Sniff is tried on them first. When sniffing finds nothing,
// the declared type is classified as is (application/* types become
// FamilyApplication, the others FamilyUnknown).
var genericMainTypes = map[string]bool{
	"":                           true,
	"application/octet-stream":   true,
	"binary/octet-stream":        true,
	"application/x-octet-stream": true,
}

// Sniff inspects the body bytes with mimetype when the declared
// Content-Type is absent or too generic to trust. The teacher's own
// stack pulls in gabriel-vasile/mimetype indirectly (via gin/readability);
// this promotes it to a direct dependency used on the CDN
// "application/octet-stream" responses a real browser session hits
// constantly and which the Python original never handles.
func Sniff(ct ContentType, body []byte) ContentType {
	if !genericMainTypes[ct.MainType] {
		return ct
	}
	if len(body) == 0 {
		return ct
	}

	detected := mimetype.Detect(body)
	main := strings.ToLower(strings.Split(detected.String(), ";")[0])
	if main == "" || main == "application/octet-stream" {
		return ct
	}

	sniffed := ct
	sniffed.MainType = main
	return sniffed
}
