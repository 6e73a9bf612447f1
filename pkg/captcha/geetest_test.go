package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validParams = Params{LotNumber: "lot-1", CaptchaOutput: "out", PassToken: "pass", GenTime: "1700000000"}

func TestNewWithoutIDIsNoop(t *testing.T) {
	v := New("", "", "")
	assert.IsType(t, Noop{}, v)
	assert.NoError(t, v.Verify(context.Background(), Params{}))
}

func TestGeetestVerifySuccess(t *testing.T) {
	client := NewGeetestClient("cid", "ckey", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cid", r.URL.Query().Get("captcha_id"))
		assert.Equal(t, client.signToken("lot-1"), r.PostForm.Get("sign_token"))
		_, _ = w.Write([]byte(`{"status":"success","result":"success"}`))
	}))
	defer srv.Close()
	client.apiServer = srv.URL

	assert.NoError(t, client.Verify(context.Background(), validParams))
}

func TestGeetestVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","result":"fail","reason":"pass_token expire"}`))
	}))
	defer srv.Close()

	err := NewGeetestClient("cid", "ckey", srv.URL).Verify(context.Background(), validParams)
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestGeetestVerifyMissingParams(t *testing.T) {
	err := NewGeetestClient("cid", "ckey", "http://127.0.0.1:1").Verify(context.Background(), Params{})
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestSignTokenIsDeterministic(t *testing.T) {
	c := NewGeetestClient("cid", "key", "")
	assert.Equal(t, c.signToken("abc"), c.signToken("abc"))
	assert.NotEqual(t, c.signToken("abc"), c.signToken("abd"))
	assert.Len(t, c.signToken("abc"), 64)
}
