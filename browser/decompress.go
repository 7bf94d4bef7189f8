package browser

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeContentEncoding reverses the encodings listed in the
// Content-Encoding header, in the order the server applied them (RFC
// 9110 §8.4.1 lists an encoding as the rightmost one applied last, so it
// must be undone first). httpClient.Do does not decompress here: this
// Fetch path builds its own net/http.Request and copies the routed
// request's real Accept-Encoding header onto it (so origin servers see
// the same negotiation a real browser would), which per net/http's
// Transport docs disables Transport's own automatic gzip handling once
// the caller sets Accept-Encoding itself. Decompression has to happen
// here instead.
func decodeContentEncoding(encoding string, body []byte) ([]byte, error) {
	if encoding == "" {
		return body, nil
	}

	encodings := strings.Split(encoding, ",")
	for i := len(encodings) - 1; i >= 0; i-- {
		enc := strings.ToLower(strings.TrimSpace(encodings[i]))
		switch enc {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			r, err := gzip.NewReader(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("browser: gzip decode: %w", err)
			}
			defer r.Close()
			decoded, err := io.ReadAll(r)
			if err != nil {
				return nil, fmt.Errorf("browser: gzip read: %w", err)
			}
			body = decoded
		case "deflate":
			decoded, err := inflate(body)
			if err != nil {
				return nil, fmt.Errorf("browser: deflate decode: %w", err)
			}
			body = decoded
		case "br":
			decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
			if err != nil {
				return nil, fmt.Errorf("browser: brotli decode: %w", err)
			}
			body = decoded
		default:
			return nil, fmt.Errorf("browser: unsupported content-encoding %q", enc)
		}
	}
	return body, nil
}

// inflate handles both the zlib-wrapped and raw deflate streams seen in
// the wild under Content-Encoding: deflate — most servers send the
// zlib-wrapped form despite the header name, a handful send raw DEFLATE.
func inflate(body []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		defer zr.Close()
		if decoded, err := io.ReadAll(zr); err == nil {
			return decoded, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return io.ReadAll(fr)
}
