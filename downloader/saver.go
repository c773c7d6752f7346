package downloader

import (
	"context"
	"fmt"

	"github.com/airbusgeo/m2m-client/m2m"
	"github.com/airbusgeo/m2m-client/service"
	"github.com/airbusgeo/m2m-client/service/log"
)

// Saver persists a staged download.
// It returns nil only once the file has been completely written.
type Saver interface {
	Save(ctx context.Context, d m2m.Download, extract bool) error
}

// SaverFunc adapts a function to a Saver
type SaverFunc func(ctx context.Context, d m2m.Download, extract bool) error

// Save implements Saver
func (f SaverFunc) Save(ctx context.Context, d m2m.Download, extract bool) error {
	return f(ctx, d, extract)
}

// Savers tries each saver in turn until one succeeds
type Savers []Saver

// Save implements Saver
func (ss Savers) Save(ctx context.Context, d m2m.Download, extract bool) error {
	var err error
	for _, s := range ss {
		e := s.Save(ctx, d, extract)
		if err = service.MergeErrors(false, err, e); err == nil {
			return nil
		}
		log.Logger(ctx).Sugar().Warnf("%v", e)
	}
	if err != nil {
		return fmt.Errorf("Savers[%s].%w", d.DisplayID, err)
	}
	return fmt.Errorf("Savers[%s]: no saver", d.DisplayID)
}
