// Package state provides atomic, versioned JSON persistence for learned
// model state and the paper trading ledger.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "intraday-trader/internal/errors"
)

// envelope wraps every snapshot with a schema version so stale files from
// older releases are detected instead of misread.
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// ErrSchemaMismatch is returned by Load when the on-disk snapshot carries a
// different schema version than the caller expects.
var ErrSchemaMismatch = apperrors.New("snapshot schema version mismatch")

// Save writes v to path atomically: marshal, write to a temp file in the
// same directory, fsync, then rename over the target. A crash mid-write
// leaves the previous snapshot intact. A failed write is retried once
// before the error is surfaced; callers treat surfaced errors as fatal.
func Save(path string, version int, v interface{}) error {
	err := save(path, version, v)
	if err != nil {
		err = save(path, version, v)
	}
	return err
}

func save(path string, version int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewPersistenceError(filepath.Base(path), "marshal", err)
	}
	payload, err := json.MarshalIndent(envelope{Version: version, Data: data}, "", "  ")
	if err != nil {
		return apperrors.NewPersistenceError(filepath.Base(path), "marshal", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewPersistenceError(filepath.Base(path), "mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewPersistenceError(filepath.Base(path), "create temp", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewPersistenceError(filepath.Base(path), "write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewPersistenceError(filepath.Base(path), "sync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewPersistenceError(filepath.Base(path), "close", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewPersistenceError(filepath.Base(path), "rename", err)
	}
	return nil
}

// Load reads a snapshot into v. It returns os.ErrNotExist when no snapshot
// exists and ErrSchemaMismatch when the version differs; callers are
// expected to reinitialize with a warning in both cases.
func Load(path string, version int, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return apperrors.NewPersistenceError(filepath.Base(path), "read", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperrors.NewPersistenceError(filepath.Base(path), "unmarshal", err)
	}
	if env.Version != version {
		return fmt.Errorf("%w: have %d, want %d", ErrSchemaMismatch, env.Version, version)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return apperrors.NewPersistenceError(filepath.Base(path), "unmarshal", err)
	}
	return nil
}
