package provider

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/airbusgeo/m2m-client/common"
	"github.com/airbusgeo/m2m-client/m2m"
	"github.com/airbusgeo/m2m-client/service"
	"github.com/airbusgeo/m2m-client/service/log"
	"github.com/cavaliercoder/grab"
	"github.com/mholt/archiver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrProductNotFound is an error returned when a product is not found or available
type ErrProductNotFound struct {
	Product string
}

func (e ErrProductNotFound) Error() string {
	return fmt.Sprintf("Product not found or unavailable: %s", e.Product)
}

var downloadedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "m2m_download_bytes_total",
	Help: "Number of bytes written by the savers.",
}, []string{"saver"})

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Infof("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				for progress < resp.Progress() {
					progress += progressPeriod
				}
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

// download a file with display every 5%
func download(ctx context.Context, client *grab.Client, req *grab.Request, displayPrefix string) (int64, error) {
	resp := client.Do(req)

	displayProgress(ctx, displayPrefix, resp, 0.05)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("download[%s]: %w", req.URL(), err)
		if resp.HTTPResponse == nil {
			return 0, service.MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case 408, 429, 500, 501, 502, 503, 504:
			return 0, service.MakeTemporary(err)
		default:
			return 0, err
		}
	}
	return resp.BytesComplete(), nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	return nil
}

// unarchive file into dstDir with basic check. All errors are temporary.
func unarchive(archive, dstDir string) error {
	tmpdir, err := os.MkdirTemp(filepath.Dir(dstDir), filepath.Base(archive))
	if err != nil {
		return service.MakeTemporary(err)
	}
	defer os.RemoveAll(tmpdir)
	if err := archiver.Unarchive(archive, tmpdir); err != nil {
		return service.MakeTemporary(err)
	}
	files, err := os.ReadDir(tmpdir)
	if err != nil {
		return service.MakeTemporary(err)
	}
	if len(files) == 0 {
		return service.MakeTemporary(fmt.Errorf("empty archive"))
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return service.MakeTemporary(err)
	}
	for _, f := range files {
		if err := os.Rename(filepath.Join(tmpdir, f.Name()), filepath.Join(dstDir, f.Name())); err != nil {
			return service.MakeTemporary(err)
		}
	}
	return nil
}

// sceneFilePath returns the path of the scene, given the directory and the sceneid
func sceneFilePath(dir, sceneID string, ext service.Extension) string {
	if ext == service.NoExtension {
		return path.Join(dir, sceneID)
	}
	return path.Join(dir, sceneID+"."+string(ext))
}

// sceneName returns the name of the product on disk
func sceneName(d m2m.Download) string {
	if d.DisplayID != "" {
		return d.DisplayID
	}
	if d.EntityID != "" {
		return d.EntityID
	}
	return "download-" + d.ID()
}

// productDir returns the directory where the product must be written, creating it if needed.
// layout is formatted with the fields parsed from the name of the product (see common.Info)
func productDir(dir, layout string, d m2m.Download) (string, error) {
	if layout != "" {
		info, err := common.Info(sceneName(d))
		if err != nil {
			info = map[string]string{"SCENE": sceneName(d)}
		}
		dir = path.Join(dir, common.FormatBrackets(layout, info, map[string]string{
			"DATASET":  d.CollectionName,
			"ENTITY":   d.EntityID,
			"PRODUCT":  d.ProductCode,
			"DOWNLOAD": d.ID(),
		}))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("productDir: %w", err)
	}
	return dir, nil
}

// export copies the product to the storage, if any
func export(ctx context.Context, storage service.Storage, localPath string) error {
	if storage == nil {
		return nil
	}
	uri, err := storage.SaveArchive(ctx, localPath)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	log.Logger(ctx).Sugar().Infof("%s exported to %s", filepath.Base(localPath), uri)
	return nil
}
