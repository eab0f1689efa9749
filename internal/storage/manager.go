package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/link-review/backend/internal/dataset"
	"github.com/link-review/backend/internal/models"
	"github.com/patrickmn/go-cache"
)

// ReviewedSuffix is appended to the stem of a normalized dataset file.
const ReviewedSuffix = "_reviewed"

var (
	// ErrForeignPath is returned when a path lies outside the caller's partition.
	ErrForeignPath = errors.New("path outside partition")
	// ErrInvalidPartition is returned for identifiers that are not UUIDs.
	ErrInvalidPartition = errors.New("invalid partition id")
)

// lockTTL bounds how long an idle per-file lock is remembered.
const lockTTL = 25 * time.Hour

// Partition describes one per-user directory.
type Partition struct {
	ID      string
	Path    string
	ModTime time.Time
}

// LocalStore keeps per-user partitions of dataset files on the local filesystem.
type LocalStore struct {
	root string

	mu    sync.Mutex
	locks *cache.Cache // cleaned path -> *sync.Mutex
}

// NewLocalStore creates a new LocalStore rooted at uploadDir.
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	abs, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("resolving upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &LocalStore{
		root:  abs,
		locks: cache.New(lockTTL, time.Hour),
	}, nil
}

// Root returns the absolute upload directory.
func (s *LocalStore) Root() string {
	return s.root
}

// NewPartitionID returns a fresh partition identifier.
func NewPartitionID() string {
	return uuid.New().String()
}

// PartitionDir returns the directory of a partition without creating it.
func (s *LocalStore) PartitionDir(partition string) (string, error) {
	id, err := uuid.Parse(partition)
	if err != nil || id.String() != partition {
		return "", fmt.Errorf("%w: %q", ErrInvalidPartition, partition)
	}
	return filepath.Join(s.root, partition), nil
}

// SaveUpload stores a raw upload in the partition under a timestamp-qualified
// name, creating the partition directory on first use.
func (s *LocalStore) SaveUpload(partition, name string, r io.Reader) (*models.FileInfo, error) {
	dir, err := s.PartitionDir(partition)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating partition directory: %w", err)
	}

	now := time.Now().UTC()
	path := filepath.Join(dir, timestampedName(SanitizeFilename(name), now))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	return &models.FileInfo{
		Partition:  partition,
		Name:       name,
		RawPath:    path,
		Size:       size,
		UploadedAt: now,
	}, nil
}

// ReviewedPath returns the path of the normalized copy of a raw upload.
func ReviewedPath(rawPath string) string {
	ext := filepath.Ext(rawPath)
	return strings.TrimSuffix(rawPath, ext) + ReviewedSuffix + ".csv"
}

// Owns reports whether path lies inside the partition directory.
func (s *LocalStore) Owns(partition, path string) bool {
	dir, err := s.PartitionDir(partition)
	if err != nil || path == "" {
		return false
	}
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Resolve checks ownership and existence of a dataset path.
func (s *LocalStore) Resolve(partition, path string) (string, error) {
	if !s.Owns(partition, path) {
		return "", ErrForeignPath
	}
	clean := filepath.Clean(path)
	if _, err := os.Stat(clean); err != nil {
		return "", err
	}
	return clean, nil
}

// Load reads a dataset file.
func (s *LocalStore) Load(path string) (*dataset.Dataset, error) {
	l := s.lockFor(path)
	l.Lock()
	defer l.Unlock()
	return readDataset(path)
}

// Write replaces a dataset file.
func (s *LocalStore) Write(path string, d *dataset.Dataset) error {
	l := s.lockFor(path)
	l.Lock()
	defer l.Unlock()
	return writeDataset(path, d)
}

// Update runs a read-modify-write cycle on a dataset file while holding the
// file's lock, so concurrent requests for the same file cannot lose updates.
func (s *LocalStore) Update(path string, fn func(*dataset.Dataset) error) (*dataset.Dataset, error) {
	l := s.lockFor(path)
	l.Lock()
	defer l.Unlock()

	d, err := readDataset(path)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := writeDataset(path, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Remove deletes a single file inside the store.
func (s *LocalStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	s.locks.Delete(filepath.Clean(path))
	return nil
}

// Partitions lists partition directories, oldest first.
func (s *LocalStore) Partitions() ([]Partition, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}

	var list []Partition
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		list = append(list, Partition{
			ID:      e.Name(),
			Path:    filepath.Join(s.root, e.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ModTime.Before(list[j].ModTime)
	})
	return list, nil
}

// RemovePartition recursively deletes a partition directory.
func (s *LocalStore) RemovePartition(id string) error {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidPartition, id)
	}
	dir := filepath.Join(s.root, id)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting partition %s: %w", id, err)
	}

	prefix := dir + string(filepath.Separator)
	for key := range s.locks.Items() {
		if strings.HasPrefix(key, prefix) {
			s.locks.Delete(key)
		}
	}
	return nil
}

func (s *LocalStore) lockFor(path string) *sync.Mutex {
	key := filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.locks.Get(key); ok {
		s.locks.Set(key, v, cache.DefaultExpiration)
		return v.(*sync.Mutex)
	}
	l := &sync.Mutex{}
	s.locks.Set(key, l, cache.DefaultExpiration)
	return l
}

func readDataset(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.Read(f)
}

// writeDataset writes to a temp file in the same directory and renames it
// over the target.
func writeDataset(path string, d *dataset.Dataset) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := d.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing dataset: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFilename reduces an uploaded file name to a safe base name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// timestampedName inserts a UTC timestamp before the extension. A trailing
// .gz is kept together with the inner extension.
func timestampedName(name string, t time.Time) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if strings.EqualFold(ext, ".gz") {
		if inner := filepath.Ext(stem); inner != "" {
			stem = strings.TrimSuffix(stem, inner)
			ext = inner + ext
		}
	}
	if stem == "" {
		stem = "upload"
	}
	return fmt.Sprintf("%s_%s%s", stem, t.Format("20060102T150405.000000000"), ext)
}
