package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonesrussell/listing-crawler/internal/atomicfile"
)

// Table formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const backupTimeLayout = "20060102_150405"

// ErrUnknownFormat is returned for an unsupported table format.
var ErrUnknownFormat = errors.New("unknown table format")

// Table persists a whole sheet. Load on a missing target returns an empty sheet.
type Table interface {
	Load(ctx context.Context) (*Sheet, error)
	Save(ctx context.Context, sheet *Sheet) error
	Location() string
}

// Backuper writes a sheet to a side file when Save fails.
type Backuper interface {
	Backup(ctx context.Context, sheet *Sheet, at time.Time) (string, error)
}

// Codec reads and writes one file format.
type Codec interface {
	Decode(r io.Reader) (*Sheet, error)
	Encode(w io.Writer, sheet *Sheet) error
}

// FileTable is a Table stored in a single local file.
type FileTable struct {
	path  string
	codec Codec
}

// NewFileTable returns a table at path. An empty format is inferred from the extension.
func NewFileTable(path, format string) (*FileTable, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	var codec Codec
	switch format {
	case FormatXLSX:
		codec = XLSXCodec{}
	case FormatCSV:
		codec = CSVCodec{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return &FileTable{path: path, codec: codec}, nil
}

// Location returns the file path.
func (t *FileTable) Location() string {
	return t.path
}

// Load implements Table.
func (t *FileTable) Load(_ context.Context) (*Sheet, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Sheet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	sheet, err := t.codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.path, err)
	}
	return sheet, nil
}

// Save implements Table with an atomic replace of the file.
func (t *FileTable) Save(_ context.Context, sheet *Sheet) error {
	return atomicfile.Write(t.path, func(w io.Writer) error {
		return t.codec.Encode(w, sheet)
	})
}

// Backup implements Backuper. The file is named <name>_backup_YYYYMMDD_HHMMSS.<ext>.
func (t *FileTable) Backup(_ context.Context, sheet *Sheet, at time.Time) (string, error) {
	ext := filepath.Ext(t.path)
	name := strings.TrimSuffix(t.path, ext) + "_backup_" + at.Format(backupTimeLayout) + ext

	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("create backup %s: %w", name, err)
	}
	if err := t.codec.Encode(f, sheet); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write backup %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("sync backup %s: %w", name, err)
	}
	return name, f.Close()
}
