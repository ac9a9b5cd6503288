package storage_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/helpers/storage"
)

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newStore(t *testing.T, maxBytes, maxDim int) (*storage.ImageStore, string) {
	t.Helper()
	root := t.TempDir()
	return storage.NewImageStore(storage.Options{
		Root:          root,
		MaxBytes:      maxBytes,
		MaxDimension:  maxDim,
		DecodeTimeout: 5 * time.Second,
	}), root
}

func TestSaveBase64_WritesScopedWebP(t *testing.T) {
	t.Parallel()

	store, root := newStore(t, 1<<20, 10)
	rel, err := store.SaveBase64(context.Background(), 7, 42, "data:image/png;base64,"+pngBase64(t, 40, 20))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rel, "attendance/7/42/"), rel)
	assert.True(t, strings.HasSuffix(rel, ".webp"), rel)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)
}

func TestSaveBase64_FilenamesDoNotCollide(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, 1<<20, 100)
	payload := pngBase64(t, 4, 4)
	a, err := store.SaveBase64(context.Background(), 1, 1, payload)
	require.NoError(t, err)
	b, err := store.SaveBase64(context.Background(), 1, 1, payload)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSaveBase64_Rejections(t *testing.T) {
	t.Parallel()

	store, root := newStore(t, 512, 100)

	_, err := store.SaveBase64(context.Background(), 1, 1, pngBase64(t, 200, 200))
	assert.ErrorIs(t, err, storage.ErrImageTooLarge)

	_, err = store.SaveBase64(context.Background(), 1, 1, base64.StdEncoding.EncodeToString([]byte("hello, this is plain text")))
	assert.ErrorIs(t, err, storage.ErrUnsupportedImage)

	_, err = store.SaveBase64(context.Background(), 1, 1, "%%%not-base64%%%")
	assert.ErrorIs(t, err, storage.ErrInvalidImage)

	_, err = store.SaveBase64(context.Background(), 1, 1, "  ")
	assert.ErrorIs(t, err, storage.ErrInvalidImage)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected images must not touch the disk")
}

func TestRemoveUser(t *testing.T) {
	t.Parallel()

	store, root := newStore(t, 1<<20, 100)
	_, err := store.SaveBase64(context.Background(), 3, 9, pngBase64(t, 4, 4))
	require.NoError(t, err)

	require.NoError(t, store.RemoveUser(3, 9))
	_, err = os.Stat(filepath.Join(root, "attendance", "3", "9"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove("attendance/3/9/missing.webp"))
}
