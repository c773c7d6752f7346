package provider

import (
	"context"

	"github.com/airbusgeo/m2m-client/downloader"
	"github.com/airbusgeo/m2m-client/m2m"
	"github.com/airbusgeo/m2m-client/service/log"
)

// Saver is a downloader.Saver with a name
type Saver interface {
	downloader.Saver

	// Name of the saver
	Name() string
}

var (
	_ Saver = (*ArchiveSaver)(nil)
	_ Saver = (*LandsatAwsSaver)(nil)
)

// Chain returns a saver trying each saver in turn until one succeeds
func Chain(savers ...Saver) downloader.Savers {
	chain := make(downloader.Savers, len(savers))
	for i, s := range savers {
		chain[i] = downloader.SaverFunc(func(ctx context.Context, d m2m.Download, extract bool) error {
			log.Logger(ctx).Sugar().Debugf("saving %s with %s", d.DisplayID, s.Name())
			return s.Save(ctx, d, extract)
		})
	}
	return chain
}
