package storage_test

import (
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("questions/q1/heart.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "questions/q1/heart.png", key)

	rc, err := s.Get(key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	u, err := s.SignedURL(key)
	require.NoError(t, err)
	assert.Equal(t, "/assets/questions/q1/heart.png", u)
}

func TestFSStoreKeysStayInside(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key)

	_, err = s.Put("", strings.NewReader("x"))
	assert.ErrorIs(t, err, storage.ErrBadKey)
}

func TestSignedURLs(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir(), storage.WithSigner(storage.NewURLSigner("secret", time.Hour)))
	require.NoError(t, err)

	raw, err := s.SignedURL("questions/q1/heart.png")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/assets/questions/q1/heart.png", u.Path)
	tok := u.Query().Get("token")
	require.NotEmpty(t, tok)

	assert.NoError(t, s.Verify("questions/q1/heart.png", tok))
	assert.ErrorIs(t, s.Verify("questions/q1/other.png", tok), storage.ErrBadSignature)
	assert.ErrorIs(t, s.Verify("questions/q1/heart.png", tok+"x"), storage.ErrBadSignature)

	other, err := storage.NewFSStore(t.TempDir(), storage.WithSigner(storage.NewURLSigner("different", time.Hour)))
	require.NoError(t, err)
	assert.ErrorIs(t, other.Verify("questions/q1/heart.png", tok), storage.ErrBadSignature)

	unsigned, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	assert.ErrorIs(t, unsigned.Verify("questions/q1/heart.png", tok), storage.ErrBadSignature)
}
