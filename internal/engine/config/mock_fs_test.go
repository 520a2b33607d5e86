package config

import (
	"errors"
	"io/fs"
)

// MockFileSystem is an in-memory FileSystem for tests.
type MockFileSystem struct {
	Files       map[string][]byte
	ReadErrors  map[string]error
	UserHome    string
	UserHomeErr error
}

// NewMockFileSystem creates an empty MockFileSystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:      map[string][]byte{},
		ReadErrors: map[string]error{},
	}
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if err, ok := m.ReadErrors[name]; ok {
		return nil, err
	}
	if content, ok := m.Files[name]; ok {
		return content, nil
	}
	return nil, fs.ErrNotExist
}

func (m *MockFileSystem) UserHomeDir() (string, error) {
	return m.UserHome, m.UserHomeErr
}

func (m *MockFileSystem) IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
