package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest(strings.NewReader(`{"jsonrpc":"2.0","method":"get_scan","params":{"id":1},"id":1}`))
	require.NoError(t, err)
	require.Equal(t, "get_scan", req.Method)
	require.Equal(t, json.RawMessage(`{"id":1}`), req.Params)
	require.EqualValues(t, 1, req.ID)
}

func TestParseRequest_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
		code int
	}{
		{name: "truncated", body: `{"jsonrpc":"2.0",`, want: ErrMalformedRequest, code: CodeParse},
		{name: "not an object", body: `[1,2]`, want: ErrMalformedRequest, code: CodeParse},
		{name: "missing method", body: `{"jsonrpc":"2.0","id":1}`, want: ErrInvalidEnvelope, code: CodeInvalidRequest},
		{name: "wrong version", body: `{"jsonrpc":"1.0","method":"get_last_scan","id":1}`, want: ErrInvalidEnvelope, code: CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(tt.body))
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.code, parseErrorCode(err))
		})
	}
}

func TestParseRequest_BodyLimit(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"get_scan","params":{"pad":"` + strings.Repeat("x", maxRequestBytes) + `"}}`
	_, err := ParseRequest(strings.NewReader(body))
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 1, CodeInvalidParams, "bad params", map[string]string{"code": "INVALID_INPUT"})

	require.Equal(t, 200, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Result)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidParams, resp.Error.Code)
	require.Equal(t, "bad params", resp.Error.Message)
}

func TestWriteResult(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResult(rec, "req-1", map[string]int{"count": 2})

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "2.0", resp.JSONRPC)
	require.Equal(t, "req-1", resp.ID)
	require.Nil(t, resp.Error)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
