package blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret", "http://localhost:3000", 0)

	u, err := s.URL("abc123", "front door.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:3000/blobs/"))
	assert.True(t, strings.HasSuffix(u, "/front%20door.jpg"))

	again, err := s.URL("abc123", "front door.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, u, again, "URLs without a TTL are stable")

	token, err := s.Token("abc123", "front door.jpg", "image/jpeg")
	require.NoError(t, err)
	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", claims.Subject)
	assert.Equal(t, "front door.jpg", claims.Filename)
	assert.Equal(t, "image/jpeg", claims.ContentType)
}

func TestSignerRejectsForeignAndExpiredTokens(t *testing.T) {
	s := NewSigner("secret", "", time.Minute)
	token, err := s.Token("abc123", "a.jpg", "image/jpeg")
	require.NoError(t, err)

	_, err = NewSigner("other", "", 0).Verify(token)
	assert.Error(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Verify(token)
	assert.Error(t, err)

	_, err = s.Verify("garbage")
	assert.Error(t, err)
}

func TestDiskStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	key := NewKey()
	n, err := store.Put(ctx, key, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	r, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, key), "deleting a missing blob is not an error")
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape", strings.NewReader("x"))
	assert.Error(t, err)
}
