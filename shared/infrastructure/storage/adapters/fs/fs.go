package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"pgmirror/shared/application/ports"
)

const metadataSuffix = ".metadata.json"

// Storage implements ports.Storage on a directory tree. Buckets are
// sub-directories of the base path; the empty bucket is the base path.
type Storage struct {
	fs       afero.Fs
	basePath string
	logger   ports.Logger
	metrics  ports.Metrics
}

// NewStorage creates the base directory on fsys when missing.
func NewStorage(fsys afero.Fs, basePath string, logger ports.Logger, metrics ports.Metrics) (*Storage, error) {
	if err := fsys.MkdirAll(basePath, 0o755); err != nil {
		logger.Error("Failed to create base path", "path", basePath, "error", err)
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", basePath)

	return &Storage{
		fs:       fsys,
		basePath: basePath,
		logger:   logger.WithFields(map[string]interface{}{"storage": "filesystem"}),
		metrics:  metrics.WithTags(map[string]string{"storage": "filesystem"}),
	}, nil
}

// Put writes the object to a temporary file and renames it into place, so
// readers never observe a partial object.
func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	start := time.Now()
	objectPath := s.objectPath(bucket, key)

	if err := s.fs.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "mkdir"})
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp, err := afero.TempFile(s.fs, filepath.Dir(objectPath), "."+filepath.Base(objectPath)+".*")
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "create"})
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: reader})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tmpName)
		s.logger.Error("Failed to write object", "key", key, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "write"})
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	if err := s.fs.Rename(tmpName, objectPath); err != nil {
		_ = s.fs.Remove(tmpName)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "rename"})
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}

	metadata.ContentLength = written
	metadata.LastModified = time.Now().UTC()
	if err := s.saveMetadata(objectPath, metadata); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "metadata"})
		return fmt.Errorf("failed to save metadata for %s: %w", key, err)
	}

	duration := time.Since(start)
	s.logger.Info("Object stored", "bucket", bucket, "key", key, "bytes", written, "duration_ms", duration.Milliseconds())
	s.metrics.IncrementCounter("storage.put.success", nil)
	s.metrics.RecordHistogram("storage.put.bytes", float64(written), nil)
	s.metrics.RecordHistogram("storage.put.duration_ms", float64(duration.Milliseconds()), nil)
	return nil
}

func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	file, err := s.fs.Open(s.objectPath(bucket, key))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			s.metrics.IncrementCounter("storage.get.not_found", nil)
			return nil, fmt.Errorf("%w: %s/%s", ports.ErrObjectNotFound, bucket, key)
		}
		s.metrics.IncrementCounter("storage.get.errors", nil)
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	s.metrics.IncrementCounter("storage.get.success", nil)
	return file, nil
}

func (s *Storage) GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *ports.ObjectMetadata, error) {
	reader, err := s.Get(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}

	metadata, err := s.loadMetadata(s.objectPath(bucket, key))
	if err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("failed to load metadata for %s: %w", key, err)
	}
	return reader, metadata, nil
}

func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	objectPath := s.objectPath(bucket, key)

	if err := s.fs.Remove(objectPath); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		s.metrics.IncrementCounter("storage.delete.errors", nil)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	_ = s.fs.Remove(objectPath + metadataSuffix)

	s.logger.Info("Object deleted", "bucket", bucket, "key", key)
	s.metrics.IncrementCounter("storage.delete.success", nil)
	return nil
}

func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.objectPath(bucket, key))
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return ok, nil
}

func (s *Storage) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	root := s.bucketPath(bucket)

	var objects []ports.ObjectInfo
	err := afero.Walk(s.fs, root, func(p string, info iofs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasSuffix(p, metadataSuffix) || strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		objects = append(objects, ports.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		s.metrics.IncrementCounter("storage.list.errors", nil)
		return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	s.metrics.IncrementCounter("storage.list.success", nil)
	return objects, nil
}

func (s *Storage) bucketPath(bucket string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(clean(bucket)))
}

// objectPath confines key to the bucket directory.
func (s *Storage) objectPath(bucket, key string) string {
	return filepath.Join(s.bucketPath(bucket), filepath.FromSlash(clean(key)))
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *Storage) saveMetadata(objectPath string, metadata ports.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, objectPath+metadataSuffix, data, 0o644)
}

func (s *Storage) loadMetadata(objectPath string) (*ports.ObjectMetadata, error) {
	data, err := afero.ReadFile(s.fs, objectPath+metadataSuffix)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return &ports.ObjectMetadata{}, nil
		}
		return nil, err
	}

	var metadata ports.ObjectMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
