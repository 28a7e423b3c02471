package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "leaf-10.jpg", "ten")
	writeFile(t, dir, "leaf-2.jpeg", "two")
	writeFile(t, dir, "cover.PNG", "cover")
	writeFile(t, dir, "notes.txt", "skip")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	images, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, "cover.PNG", filepath.Base(images[0].Path))
	assert.Equal(t, -1, images[0].Frame)
	assert.Equal(t, 2, images[1].Frame)
	assert.Equal(t, []byte("two"), images[1].Data)
	assert.Equal(t, 10, images[2].Frame)

	_, err = LoadDirectoryImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestReadImageFiles(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.jpg", "b")
	a := writeFile(t, dir, "a.jpg", "a")

	files, err := ReadImageFiles([]string{b, a})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, b, files[0].Path, "order is preserved")

	_, err = ReadImageFiles([]string{filepath.Join(dir, "missing.jpg")})
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.JPG"))
	assert.True(t, IsImageFile("a.webp"))
	assert.False(t, IsImageFile("a.onnx"))
	assert.False(t, IsImageFile("jpg"))
}

func TestStageModel(t *testing.T) {
	src := writeFile(t, t.TempDir(), "best.onnx", "model-bytes")
	dst := filepath.Join(t.TempDir(), "models")

	path, err := StageModel(src, dst)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "best.onnx"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "model-bytes", string(data))

	// Already staged: left untouched.
	require.NoError(t, os.Chmod(path, 0o400))
	again, err := StageModel(src, dst)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	leftovers, err := filepath.Glob(filepath.Join(dst, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	_, err = StageModel(filepath.Join(t.TempDir(), "missing.onnx"), dst)
	assert.Error(t, err)
	_, err = StageModel(dst, t.TempDir())
	assert.Error(t, err)
}
