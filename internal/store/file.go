package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// File keeps one JSON object per (profile, table) under a base directory,
// e.g. <dir>/journey/events.json. An absent file is an empty table.
type File struct {
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (s *File) path(profile, table string) string {
	return filepath.Join(s.dir, profile, table+".json")
}

func (s *File) Get(_ context.Context, profile, table string) (map[string]string, error) {
	data, err := os.ReadFile(s.path(profile, table))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: reading %s/%s", profile, table)
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "store: decoding %s/%s", profile, table)
	}
	return m, nil
}

func (s *File) Put(_ context.Context, profile, table string, m map[string]string) error {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "store: encoding %s/%s", profile, table)
	}

	path := s.path(profile, table)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "store: creating dir for %s", profile)
	}

	// Write-then-rename so a crash mid-write never leaves a torn table.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+table+"-*")
	if err != nil {
		return errors.Wrapf(err, "store: writing %s/%s", profile, table)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "store: writing %s/%s", profile, table)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "store: writing %s/%s", profile, table)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "store: replacing %s/%s", profile, table)
	}
	return nil
}

func (s *File) DeleteKey(ctx context.Context, profile, table, key string) error {
	m, err := s.Get(ctx, profile, table)
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.Put(ctx, profile, table, m)
}
