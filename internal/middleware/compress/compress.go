package compress

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type compressWriter struct {
	gin.ResponseWriter
	zw *gzip.Writer
}

func newCompressWriter(w gin.ResponseWriter) *compressWriter {
	return &compressWriter{
		ResponseWriter: w,
		zw:             gzip.NewWriter(w),
	}
}

func (c *compressWriter) Write(p []byte) (int, error) {
	c.Header().Del("Content-Length")
	return c.zw.Write(p)
}

func (c *compressWriter) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// Close flushes buffered data and the gzip footer.
func (c *compressWriter) Close() error {
	return c.zw.Close()
}

// compressReader transparently inflates gzip request bodies.
type compressReader struct {
	io.ReadCloser
	zr *gzip.Reader
}

func newCompressReader(r io.ReadCloser) (*compressReader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	return &compressReader{
		ReadCloser: r,
		zr:         zr,
	}, nil
}

func (c *compressReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

func (c *compressReader) Close() error {
	if err := c.zr.Close(); err != nil {
		return err
	}
	return c.ReadCloser.Close()
}

func Compress(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.Contains(c.Request.Header.Get("Content-Encoding"), "gzip") {
			cr, err := newCompressReader(c.Request.Body)
			if err != nil {
				logger.Errorf("error reading gzip body: %v", err)
				c.AbortWithStatus(http.StatusBadRequest)
				return
			}
			c.Request.Body = cr
			defer cr.Close()
		}

		if strings.Contains(c.Request.Header.Get("Accept-Encoding"), "gzip") {
			c.Header("Content-Encoding", "gzip")
			c.Header("Vary", "Accept-Encoding")
			cw := newCompressWriter(c.Writer)
			c.Writer = cw
			defer func() {
				if err := cw.Close(); err != nil {
					logger.Errorf("error closing gzip writer: %v", err)
				}
			}()
		}

		c.Next()
	}
}
