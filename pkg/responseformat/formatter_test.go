package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Header []string `json:"header"`
	Rows   [][]any  `json:"data"`
}

func TestWriteResponseJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/aws/data", nil)

	err := NewFormatter().WriteResponse(rr, req, http.StatusOK, payload{Header: []string{"a"}, Rows: [][]any{{1}}})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, rr.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, []any{"a"}, got["header"])
}

func TestWriteResponseMsgPack(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/aws/data?format=msgpack", nil)

	err := NewFormatter().WriteResponse(rr, req, http.StatusOK, payload{Header: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeMsgPack, rr.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(rr.Body.Bytes(), &got))
	assert.Contains(t, got, "header")
	assert.Contains(t, got, "data")
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/aws/data", nil)

	err := NewFormatter().WriteError(rr, req, http.StatusBadRequest, ErrorBody{Error: "bad", Missing: []string{"stations"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"bad","missing":["stations"]}`, rr.Body.String())
}
