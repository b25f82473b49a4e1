package conversion

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const workbookExt = ".xlsx"

// Storage defines the interface for rendered workbook storage
type Storage interface {
	// Save saves a file and returns the path/key it was stored under
	Save(filename string, data []byte) (string, error)

	// Get retrieves a file by path
	Get(path string) ([]byte, error)

	// Delete removes a file
	Delete(path string) error
}

// LocalStorage keeps workbooks in one directory on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save stores a workbook under the base path. The name always ends in .xlsx and an existing
// workbook is never replaced: a taken name becomes stem_N.xlsx. It returns the name used.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	name := workbookName(filename)
	stem := strings.TrimSuffix(name, workbookExt)
	for n := 1; ; n++ {
		err := createExclusive(filepath.Join(l.basePath, name), data)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("writing file: %w", err)
		}
		name = fmt.Sprintf("%s_%d%s", stem, n, workbookExt)
	}
}

// workbookName strips directories and forces a lower-case .xlsx extension
func workbookName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}
	if strings.EqualFold(filepath.Ext(name), workbookExt) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if name == "" {
		name = "faktura"
	}
	return name + workbookExt
}

func createExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(path)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from local storage
func (l *LocalStorage) Delete(path string) error {
	if err := os.Remove(filepath.Join(l.basePath, filepath.Base(path))); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
