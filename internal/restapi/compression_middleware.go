package restapi

import (
	"compress/gzip"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// gzipMinSize keeps small error bodies uncompressed.
const gzipMinSize = 1024

// newGzipMiddleware compresses responses for clients that accept gzip.
func newGzipMiddleware() (func(http.Handler) http.Handler, error) {
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(gzipMinSize),
		gzhttp.CompressionLevel(gzip.DefaultCompression),
	)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler { return wrapper(next) }, nil
}
