// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

// Package atomicfile writes files atomically: data goes to a temporary
// file in the target directory, which is renamed over the destination
// only after a fully successful write. A failed or abandoned write leaves
// an existing destination untouched.
package atomicfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Writer returns a writer backed by a temporary file that replaces
// filename upon Commit. An existing file keeps its permission bits,
// otherwise perm is used.
func Writer(filename string, perm os.FileMode) (*AtomicWriter, error) {
	out, err := os.CreateTemp(filepath.Dir(filename), ".*~")
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(filename); err == nil {
		perm = st.Mode()
	} else if !os.IsNotExist(err) {
		out.Close()
		os.Remove(out.Name())
		return nil, err
	}
	if err := out.Chmod(perm); err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, err
	}

	return &AtomicWriter{out, filename}, nil
}

type AtomicWriter struct {
	*os.File
	filename string
}

// Close discards a pending write. Closing after a Commit is a no-op.
func (a *AtomicWriter) Close() error {
	defer os.Remove(a.Name())
	return a.File.Close()
}

// Commit flushes the pending write and moves it into place.
func (a *AtomicWriter) Commit() error {
	defer a.Close()
	if err := a.File.Sync(); err != nil {
		return err
	}
	return os.Rename(a.Name(), a.filename)
}

// WriteFrom writes everything from r into filename atomically.
func WriteFrom(filename string, r io.Reader, perm os.FileMode) error {
	w, err := Writer(filename, perm)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		return err
	}
	return w.Commit()
}

// WriteFile is a drop-in replacement for os.WriteFile that writes the
// file atomically.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return WriteFrom(filename, bytes.NewReader(data), perm)
}
