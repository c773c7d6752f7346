package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/airbusgeo/m2m-client/downloader"
	"github.com/airbusgeo/m2m-client/interface/credentials"
	"github.com/airbusgeo/m2m-client/interface/provider"
	"github.com/airbusgeo/m2m-client/m2m"
	"github.com/airbusgeo/m2m-client/service"
	"github.com/airbusgeo/m2m-client/service/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type config struct {
	BaseURL  string
	Username string
	Password string
	LogLevel string

	Dataset       string
	StartDate     string
	EndDate       string
	MinCloudCover int
	MaxCloudCover int
	GeometryFile  string
	GeoJSONFilter bool
	PageSize      int
	MaxScenes     int

	WorkingDir string
	StorageURI string
	Layout     string
	Extract    bool
	AllOptions bool

	PollInterval     time.Duration
	PollTimeout      time.Duration
	RequireAvailable bool

	LandsatAwsAccessKeyId     string
	LandsatAwsSecretAccessKey string
	WithLandsatAws            bool

	Manifest    bool
	MetricsAddr string
}

func newAppConfig() (*config, error) {
	config := config{}
	// Global config
	flag.StringVar(&config.BaseURL, "url", os.Getenv("EE_URL"), "base url of the M2M API (default: EE_URL or "+m2m.DefaultBaseURL+")")
	flag.StringVar(&config.Username, "username", "", "EarthExplorer username (default: EE_USER, or prompted)")
	flag.StringVar(&config.Password, "password", "", "EarthExplorer password (default: EE_PASS, or prompted)")
	flag.StringVar(&config.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Search
	flag.StringVar(&config.Dataset, "dataset", "landsat_ot_c2_l1", "name of the dataset to search")
	flag.StringVar(&config.StartDate, "start", "", "start of the acquisition date range (optional)")
	flag.StringVar(&config.EndDate, "end", "", "end of the acquisition date range (optional)")
	flag.IntVar(&config.MinCloudCover, "min-cloud", 0, "minimum cloud cover (percent)")
	flag.IntVar(&config.MaxCloudCover, "max-cloud", 100, "maximum cloud cover (percent)")
	flag.StringVar(&config.GeometryFile, "geometry", "", "file containing the area of interest (geojson or wkt, optional)")
	flag.BoolVar(&config.GeoJSONFilter, "geojson-filter", false, "search with the geometry itself instead of its bounding box")
	flag.IntVar(&config.PageSize, "page-size", m2m.DefaultMaxResults, "number of scenes per page")
	flag.IntVar(&config.MaxScenes, "max-scenes", 10, "maximum number of scenes to download (0: no limit)")

	// Download
	flag.StringVar(&config.WorkingDir, "workdir", ".", "directory where the products are saved")
	flag.StringVar(&config.StorageURI, "storage-uri", "", "storage uri (currently supported: local, gs) to export the saved products (optional)")
	flag.StringVar(&config.Layout, "layout", "", `sub-directory of workdir, e.g. "{COLLECTION}/{PATH}/{ROW}".
	Identifiers must be one of SCENE, MISSION_ID, SENSOR, DATE(YEAR/MONTH/DAY), PATH, ROW, COLLECTION, DATASET, ENTITY, PRODUCT, DOWNLOAD`)
	flag.BoolVar(&config.Extract, "extract", false, "extract the archives")
	flag.BoolVar(&config.AllOptions, "all-options", false, "request every download option, not only the available bulk ones")
	flag.DurationVar(&config.PollInterval, "poll-interval", downloader.DefaultPollInterval, "interval between two polls of the download queue")
	flag.DurationVar(&config.PollTimeout, "poll-timeout", 0, "maximum duration of the polling (0: no limit)")
	flag.BoolVar(&config.RequireAvailable, "require-available", false, "wait for all the downloads to be staged before saving")

	// Alternative provider
	flag.BoolVar(&config.WithLandsatAws, "with-landsat-aws", false, "fallback to the usgs-landsat requester-pays bucket")
	flag.StringVar(&config.LandsatAwsAccessKeyId, "landsat-aws-access-key-id", os.Getenv("LANDSAT_AWS_ACCESS_KEY_ID"), "aws access key id (optional, default credentials chain otherwise)")
	flag.StringVar(&config.LandsatAwsSecretAccessKey, "landsat-aws-secret-access-key", os.Getenv("LANDSAT_AWS_SECRET_ACCESS_KEY"), "aws secret access key")

	flag.BoolVar(&config.Manifest, "manifest", false, "write the list of the saved downloads in workdir/<label>.json")
	flag.StringVar(&config.MetricsAddr, "metrics-addr", "", "address to expose prometheus metrics, e.g. :9000 (optional)")

	flag.Parse()

	if config.Dataset == "" {
		return nil, fmt.Errorf("missing dataset config flag")
	}
	if config.WorkingDir == "" {
		return nil, fmt.Errorf("missing workdir config flag")
	}
	if config.MinCloudCover < 0 || config.MaxCloudCover > 100 || config.MinCloudCover > config.MaxCloudCover {
		return nil, fmt.Errorf("invalid cloud cover range [%d, %d]", config.MinCloudCover, config.MaxCloudCover)
	}
	return &config, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	_ = godotenv.Load(".env")

	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func setLogLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	log.SetLogger(l)
	return nil
}

// sceneFilter returns nil if no criterion is configured
func sceneFilter(config *config) (*m2m.SceneFilter, error) {
	filter := &m2m.SceneFilter{}
	if config.StartDate != "" || config.EndDate != "" {
		acquisition, err := m2m.ParseDateRange(config.StartDate, config.EndDate)
		if err != nil {
			return nil, err
		}
		filter.AcquisitionFilter = &acquisition
	}
	if config.MinCloudCover > 0 || config.MaxCloudCover < 100 {
		filter.CloudCoverFilter = &m2m.CloudCoverFilter{Min: config.MinCloudCover, Max: config.MaxCloudCover}
	}
	if config.GeometryFile != "" {
		g, err := service.LoadGeometry(config.GeometryFile)
		if err != nil {
			return nil, err
		}
		if config.GeoJSONFilter {
			filter.SpatialFilter = m2m.NewGeoJSONFilter(g)
		} else if filter.SpatialFilter, err = m2m.MBRFilterFromGeometry(g); err != nil {
			return nil, err
		}
	}
	if filter.AcquisitionFilter == nil && filter.CloudCoverFilter == nil && filter.SpatialFilter == nil {
		return nil, nil
	}
	return filter, nil
}

// searchScenes accumulates the downloadable scenes page after page, up to maxScenes
func searchScenes(ctx context.Context, dataset *m2m.Dataset, q *m2m.SceneSearchQuery, maxScenes int) ([]m2m.Scene, error) {
	page, err := dataset.Scenes(ctx, q)
	if err != nil {
		return nil, err
	}
	log.Logger(ctx).Sugar().Infof("%d scenes found in %s", page.TotalHits, dataset.DatasetAlias)

	var scenes []m2m.Scene
	for {
		scenes = append(scenes, page.Downloadable()...)
		if maxScenes > 0 && len(scenes) >= maxScenes {
			return scenes[:maxScenes], nil
		}
		if page.Exhausted() {
			return scenes, nil
		}
		if page, err = page.Next(ctx); err != nil {
			return nil, err
		}
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	if config.LogLevel != "" {
		if err := setLogLevel(config.LogLevel); err != nil {
			return fmt.Errorf("log-level: %w", err)
		}
	}

	if config.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(config.MetricsAddr, mux); err != nil {
				log.Logger(ctx).Warn("metrics server", zap.Error(err))
			}
		}()
	}

	filter, err := sceneFilter(config)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	var storageService service.Storage
	if config.StorageURI != "" {
		ss, err := service.NewStorageStrategy(ctx, config.StorageURI)
		if err != nil {
			return fmt.Errorf("storage %s: %w", config.StorageURI, err)
		}
		storageService = ss
	}

	// Load savers
	archiveSaver := provider.NewArchiveSaver(config.WorkingDir, storageService)
	archiveSaver.Layout = config.Layout
	savers := []provider.Saver{archiveSaver}
	if config.WithLandsatAws {
		awsSaver := provider.NewLandsatAwsSaver(config.WorkingDir, storageService, config.LandsatAwsAccessKeyId, config.LandsatAwsSecretAccessKey)
		awsSaver.Layout = config.Layout
		savers = append(savers, awsSaver)
	}
	saverNames := make([]string, len(savers))
	for i, s := range savers {
		saverNames[i] = s.Name()
	}

	creds, err := credentials.Resolve(credentials.Credentials{Username: config.Username, Password: config.Password},
		credentials.NewTerminalPrompter(os.Stdin, os.Stderr))
	if err != nil {
		return err
	}

	client := m2m.New(m2m.Config{BaseURL: config.BaseURL})
	ctx = log.With(ctx, "label", client.Label())
	if err := client.Login(ctx, creds.Username, creds.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() {
		if err := client.Logout(context.Background()); err != nil {
			log.Logger(ctx).Warn("logout", zap.Error(err))
		}
	}()

	dataset, err := client.Dataset(ctx, config.Dataset)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", config.Dataset, err)
	}

	q := m2m.NewSceneSearchQuery(dataset.DatasetAlias, filter)
	q.MaxResults = config.PageSize
	scenes, err := searchScenes(ctx, dataset, q, config.MaxScenes)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(scenes) == 0 {
		log.Logger(ctx).Info("no downloadable scene")
		return nil
	}

	selection := downloader.EligibleOnly
	if config.AllOptions {
		selection = downloader.AllOptions
	}
	orchestrator := downloader.New(client, provider.Chain(savers...),
		downloader.WithSelection(selection),
		downloader.WithPollPolicy(downloader.PollPolicy{
			Interval:         config.PollInterval,
			Timeout:          config.PollTimeout,
			RequireAvailable: config.RequireAvailable,
		}))

	log.Logger(ctx).Sugar().Infof("downloading %d scenes of %s with %s to %s", len(scenes), dataset.DatasetAlias, strings.Join(saverNames, ", "), config.WorkingDir)
	req, err := orchestrator.Download(ctx, downloader.RefsOf(scenes)...)
	if err != nil {
		return err
	}
	if req == nil {
		log.Logger(ctx).Info("no download option available")
		return nil
	}

	for orchestrator.State() != downloader.Saved {
		if err := orchestrator.Start(ctx, config.Extract); err != nil {
			if ctx.Err() != nil || service.Fatal(err) || !service.Temporary(err) {
				return err
			}
			log.Logger(ctx).Warn("temporary failure", zap.Error(err))
		}
		if orchestrator.State() == downloader.Saved {
			break
		}
		select {
		case <-time.After(config.PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	log.Logger(ctx).Sugar().Infof("successfully saved %d downloads", req.Size())
	if config.Manifest {
		if err := service.ToJSON(req.Downloads(), config.WorkingDir, client.Label()+".json"); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
	}
	return nil
}
