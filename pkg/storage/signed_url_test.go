package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("export-1", "reports/file.csv", "text/csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	claims, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "export-1", claims.ID)
	require.Equal(t, "reports/file.csv", claims.Path)
	require.Equal(t, "text/csv", claims.ContentType)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	signer.ttl = -time.Minute
	token, _, err := signer.Generate("export-1", "reports/file.csv", "text/csv")
	require.NoError(t, err)

	_, err = signer.Parse(token, false)
	require.Error(t, err)

	claims, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "reports/file.csv", claims.Path)
}

func TestSignedURLSignerRejectsForeignSecret(t *testing.T) {
	token, _, err := NewSignedURLSigner("secret", time.Hour).Generate("export-1", "a.csv", "text/csv")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("other", time.Hour).Parse(token, true)
	require.Error(t, err)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("reports/jss1a.csv", []byte("a,b\n"))
	require.NoError(t, err)
	require.Equal(t, "reports/jss1a.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	info, err := file.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(4), info.Size())
	require.NoError(t, file.Close())

	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.csv", "", "/etc/passwd", "a/../../b"} {
		_, err := store.Save(name, []byte("x"))
		require.ErrorIs(t, err, ErrInvalidPath, name)
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.pdf", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.pdf"}, deleted)
}
