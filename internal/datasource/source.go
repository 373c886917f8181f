// Package datasource loads incidents for the timeline from JSON documents or
// SQLite databases. The source type is detected from the file extension.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSON is a single JSON incident document
	SourceTypeJSON SourceType = "json"
	// SourceTypeSQLite is a SQLite database with records and nodes tables
	SourceTypeSQLite SourceType = "sqlite"
)

// ErrUnknownSource is returned for files whose extension maps to no reader.
var ErrUnknownSource = errors.New("unknown incident source")

// DataSource describes an incident file on disk
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	return fmt.Sprintf("%s (%s, mod=%s, %d bytes)", s.Path, s.Type, s.ModTime.Format(time.RFC3339), s.Size)
}

// TypeForPath maps a file extension to a source type.
func TypeForPath(path string) (SourceType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SourceTypeJSON, nil
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, path)
	}
}

// Detect stats path and returns its DataSource.
func Detect(path string) (DataSource, error) {
	typ, err := TypeForPath(path)
	if err != nil {
		return DataSource{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat incident source: %w", err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("incident source %s is a directory", abs)
	}
	return DataSource{
		Type:    typ,
		Path:    abs,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}
