package provider

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/airbusgeo/m2m-client/common"
	"github.com/airbusgeo/m2m-client/m2m"
	"github.com/airbusgeo/m2m-client/service"
	"github.com/airbusgeo/m2m-client/service/log"
	"github.com/mholt/archiver"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	landsatAwsBucket         = "usgs-landsat"
	landsatAwsPrefixTemplate = "collection02/level-1/standard/{COLLECTION}/{YEAR}/{PATH}/{ROW}/{SCENE}/"
	landsatAwsRegion         = "us-west-2"
)

// LandsatAwsSaver saves Landsat collection-2 products from the requester-pays bucket of the USGS.
// The files of the product are listed under the prefix of the display id, so that the staged
// download is not used: it's a fallback when the url of the download is not reachable.
type LandsatAwsSaver struct {
	dir             string
	storage         service.Storage
	accessKeyId     string
	secretAccessKey string

	// Layout is an optional sub-directory of dir, formatted with the fields of the product name
	Layout string
}

// Name of the saver
func (s *LandsatAwsSaver) Name() string {
	return "LandsatAws"
}

// NewLandsatAwsSaver creates a new LandsatAwsSaver writing into dir.
// If accessKeyId is empty, the default credential chain of aws is used.
func NewLandsatAwsSaver(dir string, storage service.Storage, accessKeyId, secretAccessKey string) *LandsatAwsSaver {
	return &LandsatAwsSaver{
		dir:             dir,
		storage:         storage,
		accessKeyId:     accessKeyId,
		secretAccessKey: secretAccessKey,
	}
}

// landsatAwsPrefix returns the prefix of the files of the product in the bucket
func landsatAwsPrefix(sceneName string) (string, error) {
	switch common.GetConstellationFromProductId(sceneName) {
	case common.Landsat89, common.Landsat47, common.Landsat15:
	default:
		return "", ErrProductNotFound{Product: sceneName + " (constellation not supported)"}
	}

	info, err := common.Info(sceneName)
	if err != nil {
		return "", fmt.Errorf("common.Info: %w", err)
	}
	return common.FormatBrackets(landsatAwsPrefixTemplate, info), nil
}

func (s *LandsatAwsSaver) s3Client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(landsatAwsRegion)}
	if s.accessKeyId != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.accessKeyId, s.secretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDefaultConfig: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Save implements downloader.Saver
// The files are written into <dir>/<displayId>. If extract is false, they are packed into <dir>/<displayId>.tgz.
func (s *LandsatAwsSaver) Save(ctx context.Context, d m2m.Download, extract bool) error {
	name := sceneName(d)
	prefix, err := landsatAwsPrefix(name)
	if err != nil {
		return fmt.Errorf("LandsatAwsSaver.%w", err)
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return fmt.Errorf("LandsatAwsSaver.%w", err)
	}

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = 10 * 1024 * 1024 // 10MB per part
	})

	paginator := s3.NewListObjectsV2Paginator(client,
		&s3.ListObjectsV2Input{
			Bucket:       aws.String(landsatAwsBucket),
			Prefix:       aws.String(prefix),
			RequestPayer: "requester",
		},
		func(o *s3.ListObjectsV2PaginatorOptions) {
			o.Limit = 200 // much more than the typical number of files in a Landsat product
		},
	)

	dir, err := productDir(s.dir, s.Layout, d)
	if err != nil {
		return fmt.Errorf("LandsatAwsSaver.%w", err)
	}
	productPath := sceneFilePath(dir, name, service.NoExtension)
	if err := os.MkdirAll(productPath, 0755); err != nil {
		return fmt.Errorf("LandsatAwsSaver.MkdirAll: %w", err)
	}

	nfiles := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return service.MakeTemporary(fmt.Errorf("LandsatAwsSaver.NextPage: %w", err))
		}

		for _, object := range page.Contents {
			objectKey := aws.ToString(object.Key)
			localFilePath := path.Join(productPath, objectKey[strings.LastIndex(objectKey, "/")+1:])

			n, err := downloadSingleObjectToFile(ctx, downloader, landsatAwsBucket, objectKey, localFilePath)
			if err != nil {
				return fmt.Errorf("LandsatAwsSaver.%w", err)
			}
			downloadedBytes.WithLabelValues("landsataws").Add(float64(n))
			nfiles++
		}
	}
	if nfiles == 0 {
		os.Remove(productPath)
		return fmt.Errorf("LandsatAwsSaver: %w", ErrProductNotFound{Product: name})
	}
	log.Logger(ctx).Sugar().Infof("LandsatAwsSaver: %d files of %s downloaded", nfiles, name)

	saved := productPath
	if !extract {
		saved = sceneFilePath(dir, name, service.ExtensionTGZ)
		if err := archiver.NewTarGz().Archive([]string{productPath}, saved); err != nil {
			return fmt.Errorf("LandsatAwsSaver.Archive: %w", err)
		}
		if err := os.RemoveAll(productPath); err != nil {
			log.Logger(ctx).Sugar().Warnf("LandsatAwsSaver: unable to remove %s: %v", productPath, err)
		}
	}

	if err := export(ctx, s.storage, saved); err != nil {
		return fmt.Errorf("LandsatAwsSaver.%w", err)
	}
	return nil
}

func downloadSingleObjectToFile(ctx context.Context, downloader *manager.Downloader, bucketName string, objectKey string, localPath string) (int64, error) {
	file, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("downloadSingleObjectToFile: failed to create file %s: %w", localPath, err)
	}
	defer file.Close()

	n, err := downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket:       aws.String(bucketName),
		Key:          aws.String(objectKey),
		RequestPayer: "requester",
	})
	if err != nil {
		return 0, fmt.Errorf("downloadSingleObjectToFile: failed to download object %s:%s: %w",
			bucketName, objectKey, err)
	}

	return n, nil
}
