package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gunzip(t *testing.T, compressed []byte) string {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer zr.Close()

	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	return string(body)
}

func TestGzipResponse(t *testing.T) {
	testCases := []struct {
		name         string
		status       int
		body         string
		acceptsGzip  bool
		expectedGzip bool
	}{
		{
			name:         "success_body",
			status:       http.StatusOK,
			body:         "all good",
			acceptsGzip:  true,
			expectedGzip: true,
		},
		{
			name:         "error_body_is_declared_gzip",
			status:       http.StatusConflict,
			body:         "email already registered",
			acceptsGzip:  true,
			expectedGzip: true,
		},
		{
			name:         "client_without_gzip",
			status:       http.StatusOK,
			body:         "all good",
			acceptsGzip:  false,
			expectedGzip: false,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := GzipResponse(http.HandlerFunc(
				func(response http.ResponseWriter, request *http.Request) {
					response.WriteHeader(testCase.status)
					_, err := response.Write([]byte(testCase.body))
					require.NoError(t, err)
				},
			))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.acceptsGzip {
				request.Header.Set("Accept-Encoding", "gzip")
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			result := recorder.Result()
			defer result.Body.Close()
			raw, err := io.ReadAll(result.Body)
			require.NoError(t, err)

			assert.Equal(t, testCase.status, result.StatusCode)
			if testCase.expectedGzip {
				assert.Equal(t, "gzip", result.Header.Get("Content-Encoding"))
				assert.Equal(t, testCase.body, gunzip(t, raw))
			} else {
				assert.Empty(t, result.Header.Get("Content-Encoding"))
				assert.Equal(t, testCase.body, string(raw))
			}
		})
	}
}

func TestUngzipRequest(t *testing.T) {
	var seenBody string
	handler := UngzipRequest(http.HandlerFunc(
		func(response http.ResponseWriter, request *http.Request) {
			body, err := io.ReadAll(request.Body)
			require.NoError(t, err)
			seenBody = string(body)
		},
	))

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte("https://example.com"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	request := httptest.NewRequest(http.MethodPost, "/", &compressed)
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, "https://example.com", seenBody)
}
