package middleware

import (
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compressibleTypes are the content types the Compress stage encodes.
var compressibleTypes = []string{
	"text/plain",
	"text/html",
	"application/json",
	"application/problem+json",
	"application/openmetrics-text",
}

// Compress negotiates a response encoding from Accept-Encoding. zstd is
// preferred, then gzip, then deflate; all three use klauspost/compress.
// level is a 1-9 style level shared by the three encoders.
func Compress(level int) func(http.Handler) http.Handler {
	c := chimw.NewCompressor(level, compressibleTypes...)

	// SetEncoder gives the most recently set encoding top precedence.
	c.SetEncoder("deflate", func(w io.Writer, level int) io.Writer {
		fw, err := flate.NewWriter(w, level)
		if err != nil {
			return nil
		}
		return fw
	})
	c.SetEncoder("gzip", func(w io.Writer, level int) io.Writer {
		gw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil
		}
		return gw
	})
	c.SetEncoder("zstd", func(w io.Writer, level int) io.Writer {
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil
		}
		return zw
	})

	return c.Handler
}
