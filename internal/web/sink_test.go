package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/docconvert/internal/core"
)

func testResponse(download bool) *core.Response {
	return core.BuildResponse(core.FormatText, nil, download, "a.b.odt")
}

func TestResponseSinkBuffersSmallOutput(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newResponseSink(rec, testResponse(true), "id-1", 16)

	_, err := sink.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = sink.Write([]byte("world"))
	require.NoError(t, err)
	assert.False(t, sink.Committed())
	assert.Zero(t, rec.Body.Len())

	require.NoError(t, sink.Release(nil))
	assert.True(t, sink.Committed())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="a_b_odt.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id-1", rec.Header().Get("X-Conversion-ID"))
	assert.Equal(t, int64(11), sink.Written())
}

func TestResponseSinkCommitsPastLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newResponseSink(rec, testResponse(false), "id-2", 4)

	_, err := sink.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = sink.Write([]byte("defgh"))
	require.NoError(t, err)

	assert.True(t, sink.Committed())
	assert.Equal(t, "abcdefgh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	require.NoError(t, sink.Release(nil))
	assert.Equal(t, int64(8), sink.Written())
}

func TestResponseSinkDropsOutputOnFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newResponseSink(rec, testResponse(false), "id-3", 64)

	_, err := sink.Write([]byte(strings.Repeat("x", 10)))
	require.NoError(t, err)
	require.NoError(t, sink.Release(errors.New("boom")))

	assert.False(t, sink.Committed())
	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, rec.Header().Get("Content-Type"))
	assert.Zero(t, sink.Written())
}

func TestResponseSinkEmptySuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := newResponseSink(rec, testResponse(false), "id-4", 64)

	require.NoError(t, sink.Release(nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("Content-Length"))
}
