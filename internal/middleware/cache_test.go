package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptureWriter(limit int64) (*captureWriter, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: limit}, rec
}

func TestCaptureWriterForwardsFullBody(t *testing.T) {
	cw, rec := newCaptureWriter(4)

	n, err := cw.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	// The client always gets the whole body; only the capture is capped.
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Equal(t, "0123", cw.buf.String())
	assert.Equal(t, int64(10), cw.size)
}

func TestStoreableRejectsTruncatedBody(t *testing.T) {
	cw, _ := newCaptureWriter(8)
	_, err := cw.Write([]byte("0123"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("456789"))
	require.NoError(t, err)

	// Truncated captures must never be cached as complete responses.
	assert.False(t, storeable(cw, 8))
}

func TestStoreableAcceptsFullBody(t *testing.T) {
	cw, _ := newCaptureWriter(16)
	_, err := cw.Write([]byte("0123456789"))
	require.NoError(t, err)

	assert.True(t, storeable(cw, 16))
	assert.Equal(t, "0123456789", cw.buf.String())
}

func TestStoreableUnlimited(t *testing.T) {
	cw, _ := newCaptureWriter(0)
	_, err := cw.Write([]byte("0123456789"))
	require.NoError(t, err)

	assert.True(t, storeable(cw, 0))
}

func TestStoreableRejectsNon200(t *testing.T) {
	cw, _ := newCaptureWriter(0)
	cw.WriteHeader(http.StatusNotFound)

	assert.False(t, storeable(cw, 0))
}
