// Package pkg provides utilities shared by the twister commands.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Journal is an append-only gob stream of items of type T kept in one file.
type Journal[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Range(f func(index uint64, item T) error) error
	Close() error
}

type journal[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// CreateJournal truncates or creates the journal at path for writing.
func CreateJournal[T any](path string) (Journal[T], error) {
	// #nosec G304 - path is the configured reports location
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Error("failed to create journal", "path", path, "error", err)
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}

	slog.Debug("created journal", "path", path)

	return &journal[T]{path: path, file: file, encoder: gob.NewEncoder(file)}, nil
}

// OpenJournal opens an existing journal for reading.
func OpenJournal[T any](path string) (Journal[T], error) {
	j := &journal[T]{path: path}

	err := j.decodeAll(func(uint64, T) error {
		j.length++
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("opened journal", "path", path, "length", j.length)

	return j, nil
}

// Append implements Journal.
func (j *journal[T]) Append(item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.encoder == nil {
		return fmt.Errorf("journal %s is read-only", j.path)
	}

	if err := j.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", j.path, "index", j.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	j.length++

	return nil
}

// Path implements Journal.
func (j *journal[T]) Path() string {
	return j.path
}

// Len implements Journal.
func (j *journal[T]) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.length
}

// Close implements Journal.
func (j *journal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	err := j.file.Close()
	j.file, j.encoder = nil, nil

	if err != nil {
		slog.Error("failed to close journal", "path", j.path, "error", err)
		return err
	}

	slog.Debug("closed journal", "path", j.path, "length", j.length)

	return nil
}

// Range implements Journal. Items appended so far are visible even while
// the journal is still open for writing.
func (j *journal[T]) Range(fn func(index uint64, item T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.decodeAll(fn)
}

func (j *journal[T]) decodeAll(fn func(index uint64, item T) error) error {
	// #nosec G304 - path is the configured reports location
	file, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close journal", "path", j.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := uint64(0); ; i++ {
		var item T
		if err := decoder.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			slog.Error("failed to decode item", "path", j.path, "index", i, "error", err)

			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}
}
