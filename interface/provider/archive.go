package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/m2m-client/m2m"
	"github.com/airbusgeo/m2m-client/service"
	"github.com/airbusgeo/m2m-client/service/log"
	"github.com/cavaliercoder/grab"
)

// ArchiveSaver saves the archive served by the download url of a staged download
type ArchiveSaver struct {
	dir     string
	storage service.Storage
	client  *grab.Client

	// Ext is the extension of the archive (default: tgz)
	Ext service.Extension
	// Layout is an optional sub-directory of dir, formatted with the fields of the product name
	// e.g. "{COLLECTION}/{PATH}/{ROW}"
	Layout string
}

// NewArchiveSaver creates a new ArchiveSaver writing into dir.
// If storage is not nil, the saved product is also exported to the storage.
func NewArchiveSaver(dir string, storage service.Storage) *ArchiveSaver {
	client := grab.NewClient()
	client.UserAgent = "m2m-client"
	client.HTTPClient.CheckRedirect = checkRedirect
	return &ArchiveSaver{
		dir:     dir,
		storage: storage,
		client:  client,
		Ext:     service.ExtensionTGZ,
	}
}

// Name of the saver
func (s *ArchiveSaver) Name() string {
	return "Archive (" + s.dir + ")"
}

// Save implements downloader.Saver
// The archive is written to <dir>/<displayId>.<ext>. If extract is true, it is unpacked
// into <dir>/<displayId> and removed.
// An archive previously exported to the storage is imported instead of being downloaded.
func (s *ArchiveSaver) Save(ctx context.Context, d m2m.Download, extract bool) error {
	if d.URL == "" {
		return ErrProductNotFound{Product: sceneName(d)}
	}
	ext := s.Ext
	if ext == service.NoExtension {
		ext = service.ExtensionTGZ
	}
	dir, err := productDir(s.dir, s.Layout, d)
	if err != nil {
		return fmt.Errorf("ArchiveSaver.%w", err)
	}
	localFile := sceneFilePath(dir, sceneName(d), ext)

	imported, err := s.restore(ctx, localFile)
	if err != nil {
		return fmt.Errorf("ArchiveSaver.%w", err)
	}
	if !imported {
		req, err := grab.NewRequest(localFile, d.URL)
		if err != nil {
			return fmt.Errorf("ArchiveSaver.NewRequest: %w", err)
		}
		req = req.WithContext(ctx)

		log.Logger(ctx).Sugar().Infof("downloading %s to %s", sceneName(d), localFile)
		n, err := download(ctx, s.client, req, "Archive:"+sceneName(d))
		if err != nil {
			return fmt.Errorf("ArchiveSaver.%w", err)
		}
		downloadedBytes.WithLabelValues("archive").Add(float64(n))
	}

	saved := localFile
	if extract {
		saved = service.WithExt(localFile, service.NoExtension)
		if err := unarchive(localFile, saved); err != nil {
			return fmt.Errorf("ArchiveSaver.unarchive[%s]: %w", localFile, err)
		}
		if err := os.Remove(localFile); err != nil {
			log.Logger(ctx).Sugar().Warnf("ArchiveSaver: unable to remove %s: %v", localFile, err)
		}
	}

	if imported && !extract {
		return nil
	}
	if err := export(ctx, s.storage, saved); err != nil {
		return fmt.Errorf("ArchiveSaver.%w", err)
	}
	return nil
}

// restore imports the archive from the storage, if it has already been exported
func (s *ArchiveSaver) restore(ctx context.Context, localFile string) (bool, error) {
	if s.storage == nil {
		return false, nil
	}
	err := s.storage.ImportArchive(ctx, filepath.Base(localFile), filepath.Dir(localFile))
	if err != nil {
		if errors.As(err, &service.ErrFileNotFound{}) {
			return false, nil
		}
		return false, fmt.Errorf("restore: %w", service.MakeTemporary(err))
	}
	log.Logger(ctx).Sugar().Infof("%s imported from the storage", filepath.Base(localFile))
	return true, nil
}
