// Package remote mirrors the persisted index to an S3-compatible object
// store so a user's cloud storage can hold the index between sessions.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autorag/autorag/rag/store"
)

// ErrRemoteStorage means a remote index fetch or store failed. Query flows
// recover by falling back to the local copy when one exists.
var ErrRemoteStorage = errors.New("remote index storage failed")

// Store mirrors an index directory to an object store bucket prefix.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// Config holds the object store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// New creates a remote index store. Missing connection settings surface as
// ErrRemoteStorage so callers can fall back to local storage.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: missing endpoint or credentials", ErrRemoteStorage)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteStorage, err)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "index"
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}, nil
}

// Download fetches the remote index into localDir. The fetch stages into a
// temporary directory which is removed in every path, so a failed transfer
// never corrupts the local index. A remote with no index data maps to
// store.ErrIndexNotFound.
func (s *Store) Download(ctx context.Context, localDir string) (err error) {
	staging, err := os.MkdirTemp("", "autorag-remote-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create staging dir: %v", ErrRemoteStorage, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			s.logger.Warn("failed to remove staging dir", "dir", staging, "error", rmErr)
		}
	}()

	found := false
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("%w: list objects: %v", ErrRemoteStorage, obj.Err)
		}

		rel := strings.TrimPrefix(obj.Key, s.prefix+"/")
		if rel == "" {
			continue
		}
		found = true

		local := filepath.Join(staging, filepath.FromSlash(rel))
		if err := s.client.FGetObject(ctx, s.bucket, obj.Key, local, minio.GetObjectOptions{}); err != nil {
			return fmt.Errorf("%w: fetch %s: %v", ErrRemoteStorage, obj.Key, err)
		}
	}

	if !found {
		return store.ErrIndexNotFound
	}

	// The manifest side file must have made the trip, otherwise the remote
	// copy is unusable.
	if _, err := store.ReadManifest(staging); err != nil {
		if errors.Is(err, store.ErrIndexNotFound) {
			return store.ErrIndexNotFound
		}
		return fmt.Errorf("%w: %v", ErrRemoteStorage, err)
	}

	if err := os.RemoveAll(localDir); err != nil {
		return fmt.Errorf("%w: failed to clear local index: %v", ErrRemoteStorage, err)
	}
	if err := copyDir(staging, localDir); err != nil {
		return fmt.Errorf("%w: failed to install index: %v", ErrRemoteStorage, err)
	}

	s.logger.Info("remote index downloaded", "bucket", s.bucket, "prefix", s.prefix, "dir", localDir)
	return nil
}

// Upload mirrors localDir to the remote bucket prefix, replacing what was
// there.
func (s *Store) Upload(ctx context.Context, localDir string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: bucket check: %v", ErrRemoteStorage, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrRemoteStorage, err)
		}
	}

	err = filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		key := s.prefix + "/" + filepath.ToSlash(rel)

		if _, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{}); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteStorage, err)
	}

	s.logger.Info("remote index uploaded", "bucket", s.bucket, "prefix", s.prefix)
	return nil
}

// copyDir copies a directory tree. Rename is avoided because the staging
// directory may live on a different filesystem.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
