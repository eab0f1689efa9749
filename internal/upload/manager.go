// Package upload turns a raw upload into a normalized dataset file.
package upload

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/link-review/backend/internal/dataset"
	"github.com/link-review/backend/internal/models"
	"github.com/link-review/backend/internal/parser"
	"github.com/link-review/backend/internal/storage"
	"go.uber.org/zap"
)

// ErrTooLarge is returned when a compressed upload inflates past the limit.
var ErrTooLarge = errors.New("decompressed upload exceeds size limit")

// Store defines the interface needed from storage layer.
type Store interface {
	SaveUpload(partition, name string, r io.Reader) (*models.FileInfo, error)
	Write(path string, d *dataset.Dataset) error
	Remove(path string) error
}

// Result describes a successful ingestion.
type Result struct {
	File          *models.FileInfo
	Parser        string
	Total         int
	Duplicates    int
	ResetStatuses int
}

// Manager runs the ingestion pipeline: save, decompress, parse, normalize.
type Manager struct {
	store    Store
	registry *parser.Registry
	maxBytes int64
	logger   *zap.Logger
}

// NewManager creates a new ingestion manager. maxBytes bounds the size of a
// decompressed upload; zero disables the check.
func NewManager(store Store, registry *parser.Registry, maxBytes int64, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		registry: registry,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Ingest stores the upload in the partition and writes its normalized copy.
// On failure nothing is left behind in the partition.
func (m *Manager) Ingest(ctx context.Context, partition, name string, r io.Reader) (*Result, error) {
	info, err := m.store.SaveUpload(partition, name, r)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	log := m.logger.With(zap.String("partition", partition), zap.String("file", info.RawPath))

	res, err := m.process(ctx, info, log)
	if err != nil {
		if rmErr := m.store.Remove(info.RawPath); rmErr != nil {
			log.Warn("failed to remove rejected upload", zap.Error(rmErr))
		}
		log.Info("upload rejected", zap.Error(err))
		return nil, err
	}

	log.Info("upload ingested",
		zap.String("parser", res.Parser),
		zap.Int("rows", res.Total),
		zap.Int("duplicates", res.Duplicates))
	return res, nil
}

func (m *Manager) process(ctx context.Context, info *models.FileInfo, log *zap.Logger) (*Result, error) {
	compressed, err := isGzip(info.RawPath)
	if err != nil {
		return nil, err
	}
	if compressed {
		path, size, err := m.decompressFile(info.RawPath)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress upload: %w", err)
		}
		log.Debug("decompressed upload", zap.Int64("compressed", info.Size), zap.Int64("size", size))
		info.RawPath = path
		info.Size = size
	}

	p, err := m.registry.FindParser(info.RawPath)
	if err != nil {
		return nil, err
	}
	tbl, err := p.Parse(ctx, info.RawPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", info.Name, err)
	}

	d, norm, err := dataset.Normalize(tbl)
	if err != nil {
		return nil, err
	}

	reviewed := storage.ReviewedPath(info.RawPath)
	if err := m.store.Write(reviewed, d); err != nil {
		return nil, fmt.Errorf("writing reviewed copy: %w", err)
	}
	info.ReviewedPath = reviewed

	return &Result{
		File:          info,
		Parser:        p.Name(),
		Total:         d.Len(),
		Duplicates:    norm.Duplicates,
		ResetStatuses: norm.ResetStatuses,
	}, nil
}

func isGzip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, 2)
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return n == 2 && magic[0] == 0x1f && magic[1] == 0x8b, nil
}

// decompressFile inflates a gzip file next to itself. A ".gz" suffix is
// dropped from the name; otherwise the file is replaced in place.
func (m *Manager) decompressFile(path string) (string, int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	reader, err := gzip.NewReader(in)
	if err != nil {
		return "", 0, err
	}
	defer reader.Close()

	target := path
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		target = path[:len(path)-len(".gz")]
	}

	tempPath := target + ".decompressing"
	out, err := os.Create(tempPath)
	if err != nil {
		return "", 0, err
	}

	var src io.Reader = reader
	if m.maxBytes > 0 {
		src = io.LimitReader(reader, m.maxBytes+1)
	}
	written, err := io.Copy(out, src)
	out.Close()
	if err != nil {
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("read error: %w", err)
	}
	if m.maxBytes > 0 && written > m.maxBytes {
		os.Remove(tempPath)
		return "", 0, ErrTooLarge
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return "", 0, err
	}
	if target != path {
		os.Remove(path)
	}
	return target, written, nil
}
