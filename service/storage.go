package service

import (
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/airbusgeo/geocube/interface/storage"
	"github.com/airbusgeo/geocube/interface/storage/uri"
	"github.com/mholt/archiver"
)

// Extension of a downloaded product
type Extension string

// Supported archive extensions
const (
	NoExtension    Extension = "" // Extracted product (directory)
	ExtensionTGZ   Extension = "tgz"
	ExtensionTarGz Extension = "tar.gz"
	ExtensionTar   Extension = "tar"
	ExtensionZIP   Extension = "zip"
)

// ErrFileNotFound is returned by ImportArchive when the archive is not in the storage
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}

func isErrNotFound(err error) bool {
	var epath *os.PathError
	return errors.Is(err, storage.ErrFileNotFound) ||
		errors.Is(err, gstorage.ErrObjectNotExist) ||
		(errors.As(err, &epath) && os.IsNotExist(epath))
}

// Storage is a service to export and retrieve downloaded products
type Storage interface {
	// SaveArchive persists the file or the directory into the storage and returns the uri.
	// A directory is stored as a zip file.
	SaveArchive(ctx context.Context, localPath string) (string, error)
	// ImportArchive imports the file from the storage to the given localdir
	// Raise ErrFileNotFound
	ImportArchive(ctx context.Context, filename, localdir string) error
}

// StorageStrategy implements Storage using geocube.Strategy
type StorageStrategy struct {
	storage storage.Strategy
	uri     uri.DefaultUri
}

// NewStorageStrategy creates a new StorageStrategy (local path, gs:// or s3:// uri)
func NewStorageStrategy(ctx context.Context, storageURI string) (*StorageStrategy, error) {
	uri, err := uri.ParseUri(storageURI)
	if err != nil {
		return nil, fmt.Errorf("NewStorageStrategy.ParseURI: %w", err)
	}

	storageClient, err := uri.NewStorageStrategy(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStorageStrategy: %w", err)
	}

	return &StorageStrategy{storage: storageClient, uri: uri}, nil
}

// SaveArchive implements Storage
func (ss *StorageStrategy) SaveArchive(ctx context.Context, localPath string) (string, error) {
	src := strings.TrimSuffix(localPath, "/")
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("SaveArchive.Stat: %w", err)
	}

	if info.IsDir() {
		dst := src + "." + string(ExtensionZIP)
		zipper := archiver.NewZip()
		zipper.CompressionLevel = flate.BestSpeed
		zipper.OverwriteExisting = true
		if err := zipper.Archive([]string{src}, dst); err != nil {
			return "", fmt.Errorf("SaveArchive.Archive: %w", err)
		}
		defer os.Remove(dst)
		src = dst
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("SaveArchive.Open: %w", err)
	}
	defer f.Close()

	dst := ss.getPath(filepath.Base(src))
	if err := ss.storage.UploadFile(ctx, dst, f); err != nil {
		return "", fmt.Errorf("SaveArchive.UploadFile to %s: %w", dst, err)
	}
	return dst, nil
}

// ImportArchive implements Storage
func (ss *StorageStrategy) ImportArchive(ctx context.Context, filename, localdir string) error {
	srcFile := ss.getPath(filename)
	dstFile := path.Join(localdir, filename)
	if err := ss.storage.DownloadToFile(ctx, srcFile, dstFile); err != nil {
		if isErrNotFound(err) {
			return ErrFileNotFound{srcFile}
		}
		return fmt.Errorf("ImportArchive.DownloadToFile from %s: %w", srcFile, err)
	}
	return nil
}

func (ss *StorageStrategy) getPath(filename string) string {
	uri := ss.uri.String()
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri + filename
}

// WithExt replaces the extension of the file (handles double extensions such as tar.gz)
func WithExt(filePath string, ext Extension) string {
	filePath = strings.TrimSuffix(filePath, "."+string(ExtensionTarGz))
	filePath = strings.TrimSuffix(filePath, filepath.Ext(filePath))
	if ext != "" {
		return fmt.Sprintf("%s.%s", filePath, string(ext))
	}
	return filePath
}

// GetExt returns the extension of the file, without the dot
func GetExt(filePath string) Extension {
	if strings.HasSuffix(filePath, "."+string(ExtensionTarGz)) {
		return ExtensionTarGz
	}
	ext := path.Ext(filePath)
	if ext == "" {
		return NoExtension
	}
	return Extension(ext[1:])
}
