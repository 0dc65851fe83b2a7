package vault

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/domain"
)

func TestRoundTrip(t *testing.T) {
	cfgs := []domain.SyncConfig{
		{Secret: "ntn_abc123", CollectionID: "0123456789abcdef"},
		{Secret: "secret_ünïcødé", CollectionID: "db-with-dashes"},
		{},
	}

	for _, cfg := range cfgs {
		token, err := Encode(cfg)
		require.NoError(t, err)

		got, err := Decode(token)
		require.NoError(t, err)
		assert.Equal(t, cfg.Secret, got.Secret)
		assert.Equal(t, cfg.CollectionID, got.CollectionID)
	}
}

func TestEncode_WireFormat(t *testing.T) {
	token, err := Encode(domain.SyncConfig{Secret: "k", CollectionID: "d"})
	require.NoError(t, err)

	data, err := base64.StdEncoding.DecodeString(reverse(token))
	require.NoError(t, err)
	assert.JSONEq(t, `{"apiKey":"k","databaseId":"d"}`, string(data))
}

func TestDecode_Invalid(t *testing.T) {
	for _, token := range []string{"", "   ", "!!!not base64!!!", reverse(base64.StdEncoding.EncodeToString([]byte("not json")))} {
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}
