package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/resonately/resonately-scribe-sub000/entities"
)

// FileStore persists the recording set as a single JSON document. The write
// goes to a temp file first and is renamed into place so a crash mid-write
// never leaves a torn document behind.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]entities.Recording, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []entities.Recording{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []entities.Recording{}, nil
	}

	var recordings []entities.Recording
	if err := json.Unmarshal(data, &recordings); err != nil {
		return nil, err
	}
	return recordings, nil
}

func (s *FileStore) Save(ctx context.Context, recordings []entities.Recording) error {
	if recordings == nil {
		recordings = []entities.Recording{}
	}
	data, err := json.Marshal(recordings)
	if err != nil {
		return errors.Join(ErrStoreWrite, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), os.ModePerm); err != nil {
		return errors.Join(ErrStoreWrite, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Join(ErrStoreWrite, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Join(ErrStoreWrite, err)
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
