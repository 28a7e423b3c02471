package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// StageModel copies a packaged model artifact into dstDir unless a file of the
// same name and size is already there.
//
// Arguments:
//   - src: The packaged artifact.
//   - dstDir: A writable directory, created if missing.
//
// Returns:
//   - string: The path of the staged artifact.
//   - error: An error if the source cannot be read or the copy fails.
func StageModel(src, dstDir string) (path string, err error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", errors.Wrapf(err, "model artifact %s", src)
	}
	if info.IsDir() {
		return "", errors.Errorf("model artifact %s is a directory", src)
	}

	path = filepath.Join(dstDir, filepath.Base(src))
	if existing, statErr := os.Stat(path); statErr == nil && existing.Size() == info.Size() {
		return path, nil
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", dstDir)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", src)
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	// Write to a temporary file first so a partial copy is never picked up.
	tmp, err := os.CreateTemp(dstDir, filepath.Base(src)+".*.tmp")
	if err != nil {
		return "", errors.Wrapf(err, "failed to stage %s", src)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		return "", multierr.Combine(
			errors.Wrapf(err, "failed to copy %s", src),
			tmp.Close(),
			os.Remove(tmp.Name()),
		)
	}
	if err := tmp.Close(); err != nil {
		return "", multierr.Append(errors.Wrap(err, "failed to flush staged model"), os.Remove(tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", multierr.Append(errors.Wrap(err, "failed to move staged model"), os.Remove(tmp.Name()))
	}
	return path, nil
}
