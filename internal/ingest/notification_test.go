package ingest_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-agent/internal/ingest"
)

func TestDecodeNotification(t *testing.T) {
	payload := `{"emailAddress": "me@example.com", "historyId": 123456}`

	t.Run("padded", func(t *testing.T) {
		n, err := ingest.DecodeNotification(base64.URLEncoding.EncodeToString([]byte(payload)))
		require.NoError(t, err)

		assert.Equal(t, "me@example.com", n.EmailAddress)
		assert.Equal(t, uint64(123456), n.HistoryID)
	})

	t.Run("unpadded", func(t *testing.T) {
		n, err := ingest.DecodeNotification(base64.RawURLEncoding.EncodeToString([]byte(payload)))
		require.NoError(t, err)

		assert.Equal(t, uint64(123456), n.HistoryID)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := ingest.DecodeNotification("!!! not base64 !!!")
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ingest.DecodeNotification(base64.URLEncoding.EncodeToString([]byte("not json")))
		assert.Error(t, err)
	})
}
