package utils_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"bluewar-ledger/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noSuchKeyXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>missing.json</Key><RequestId>tx1</RequestId></Error>`

func TestObjectStoreGet(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/seeds/blue_records.json":
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"users":{"1":{"wins":2}}}`))
		case "/seeds/broken.json":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<Error><Code>AccessDenied</Code><Message>nope</Message></Error>`))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(noSuchKeyXML))
		}
	}))
	defer srv.Close()

	store, err := utils.NewObjectStore(context.Background(), utils.ObjectStoreConfig{
		Bucket:          "seeds",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Endpoint:        srv.URL,
	})
	require.NoError(t, err)
	ctx := context.Background()

	body, err := store.Get(ctx, "blue_records.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":{"1":{"wins":2}}}`, string(body))

	_, err = store.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, utils.ErrObjectNotFound)

	_, err = store.Get(ctx, "broken.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, utils.ErrObjectNotFound)
}
