// Package gzippedhttp transparently handles gzip-compressed HTTP request
// bodies and compresses responses for clients that accept it.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type compressedReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newCompressedReader(body io.ReadCloser) (*compressedReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &compressedReader{
		body: body,
		zr:   zr,
	}, nil
}

func (c *compressedReader) Read(p []byte) (int, error) {
	return c.zr.Read(p)
}

func (c *compressedReader) Close() error {
	if err := c.body.Close(); err != nil {
		return err
	}
	return c.zr.Close()
}

type compressedResponseWriter struct {
	w  http.ResponseWriter
	zw *gzip.Writer
}

func newCompressedResponseWriter(w http.ResponseWriter) *compressedResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)

	// Every body passes through the gzip writer, error responses included,
	// so the encoding must be declared before the headers are flushed.
	w.Header().Set("Content-Encoding", "gzip")

	return &compressedResponseWriter{
		w:  w,
		zw: zw,
	}
}

func (c *compressedResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *compressedResponseWriter) WriteHeader(statusCode int) {
	c.w.WriteHeader(statusCode)
}

func (c *compressedResponseWriter) Write(p []byte) (int, error) {
	return c.zw.Write(p)
}

func (c *compressedResponseWriter) Close() error {
	if err := c.zw.Close(); err != nil {
		return err
	}
	gzipWriterPool.Put(c.zw)
	return nil
}

// GzipResponse compresses the response body when the client's
// Accept-Encoding allows it.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		finalResponse := response

		if strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			compressed := newCompressedResponseWriter(response)
			finalResponse = compressed
			defer compressed.Close()
		}

		h.ServeHTTP(finalResponse, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a decompressing
// reader before the request reaches the next handler.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			decompressed, err := newCompressedReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			request.Body = decompressed
			defer decompressed.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
