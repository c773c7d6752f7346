package m2m

import (
	"context"
	"encoding/json"
)

// Binding associates a decoded item with the query it comes from and the client
// that executed it. It does not own any of them.
type Binding struct {
	client *Client
	query  Request
}

// Client returns the client that fetched the item (nil if the item was not fetched)
func (b *Binding) Client() *Client { return b.client }

// Query returns the query that fetched the item
func (b *Binding) Query() Request { return b.query }

func (b *Binding) bind(c *Client, q Request) {
	b.client = c
	b.query = q
}

type binder interface {
	bind(c *Client, q Request)
}

func bind(v interface{}, c *Client, q Request) {
	if b, ok := v.(binder); ok {
		b.bind(c, q)
	}
}

// Dataset describes a collection of scenes
type Dataset struct {
	Binding
	DatasetID             string          `json:"datasetId"`
	DatasetAlias          string          `json:"datasetAlias"`
	AbstractText          string          `json:"abstractText,omitempty"`
	AcquisitionStart      string          `json:"acquisitionStart,omitempty"`
	AcquisitionEnd        string          `json:"acquisitionEnd,omitempty"`
	Catalogs              []string        `json:"catalogs,omitempty"`
	CollectionName        string          `json:"collectionName,omitempty"`
	CollectionLongName    string          `json:"collectionLongName,omitempty"`
	DatasetCategoryName   string          `json:"datasetCategoryName,omitempty"`
	DataOwner             string          `json:"dataOwner,omitempty"`
	DateUpdated           string          `json:"dateUpdated,omitempty"`
	DOINumber             string          `json:"doiNumber,omitempty"`
	IngestFrequency       string          `json:"ingestFrequency,omitempty"`
	Keywords              string          `json:"keywords,omitempty"`
	LegacyID              FlexString      `json:"legacyId,omitempty"`
	SceneCount            FlexString      `json:"sceneCount,omitempty"`
	SpatialBounds         json.RawMessage `json:"spatialBounds,omitempty"`
	TemporalCoverage      json.RawMessage `json:"temporalCoverage,omitempty"`
	SupportCloudCover     bool            `json:"supportCloudCover"`
	SupportDeletionSearch bool            `json:"supportDeletionSearch"`
}

// Scenes searches the scenes of the dataset. q may be nil.
func (d *Dataset) Scenes(ctx context.Context, q *SceneSearchQuery) (*Page[Scene], error) {
	if q == nil {
		q = &SceneSearchQuery{}
	}
	q.DatasetName = d.DatasetAlias
	if d.client == nil {
		return nil, configError("dataset %s is not bound to a client", d.DatasetAlias)
	}
	return FetchPage[Scene](ctx, d.client, q)
}

// BulkProducts lists the products of the dataset available for bulk download
func (d *Dataset) BulkProducts(ctx context.Context) ([]BulkProduct, error) {
	if d.client == nil {
		return nil, configError("dataset %s is not bound to a client", d.DatasetAlias)
	}
	res, err := Fetch[BulkProduct](ctx, d.client, &DatasetBulkProductsQuery{DatasetName: d.DatasetAlias})
	if err != nil {
		return nil, err
	}
	return res.All(), nil
}

// SceneOptions are the download capabilities of a scene
type SceneOptions struct {
	Bulk      bool `json:"bulk"`
	Download  bool `json:"download"`
	Order     bool `json:"order"`
	Secondary bool `json:"secondary"`
}

// Scene is one item of a dataset, identified by its entity id
type Scene struct {
	Binding
	EntityID         string          `json:"entityId"`
	DisplayID        string          `json:"displayId"`
	OrderingID       string          `json:"orderingId,omitempty"`
	CloudCover       FlexString      `json:"cloudCover,omitempty"`
	PublishDate      string          `json:"publishDate,omitempty"`
	Options          SceneOptions    `json:"options"`
	Browse           json.RawMessage `json:"browse,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Selected         json.RawMessage `json:"selected,omitempty"`
	SpatialBounds    json.RawMessage `json:"spatialBounds,omitempty"`
	SpatialCoverage  json.RawMessage `json:"spatialCoverage,omitempty"`
	TemporalCoverage json.RawMessage `json:"temporalCoverage,omitempty"`
}

// Downloadable returns true if the scene can be bulk downloaded
func (s *Scene) Downloadable() bool {
	return s.Options.Download && s.Options.Bulk
}

// DatasetName returns the name of the dataset the scene was searched in
func (s *Scene) DatasetName() string {
	if q, ok := s.query.(*SceneSearchQuery); ok {
		return q.DatasetName
	}
	return ""
}

// DownloadOptions retrieves the download options of the scene
func (s *Scene) DownloadOptions(ctx context.Context) ([]DownloadOption, error) {
	if s.client == nil {
		return nil, configError("scene %s is not bound to a client", s.EntityID)
	}
	res, err := Fetch[DownloadOption](ctx, s.client, &DownloadOptionsQuery{DatasetName: s.DatasetName(), EntityIDs: []string{s.EntityID}})
	if err != nil {
		return nil, err
	}
	return res.All(), nil
}

// Dataset retrieves the dataset of the scene
func (s *Scene) Dataset(ctx context.Context) (*Dataset, error) {
	if s.client == nil {
		return nil, configError("scene %s is not bound to a client", s.EntityID)
	}
	return FetchOne[Dataset](ctx, s.client, &DatasetQuery{DatasetName: s.DatasetName()})
}

// DownloadOption is the eligibility of a scene to a product download
type DownloadOption struct {
	Binding
	ID                 FlexString      `json:"id"`
	DisplayID          string          `json:"displayId"`
	EntityID           string          `json:"entityId"`
	DatasetID          string          `json:"datasetId"`
	Available          bool            `json:"available"`
	Filesize           int64           `json:"filesize"`
	ProductName        string          `json:"productName"`
	ProductCode        string          `json:"productCode"`
	BulkAvailable      bool            `json:"bulkAvailable"`
	DownloadSystem     string          `json:"downloadSystem"`
	SecondaryDownloads json.RawMessage `json:"secondaryDownloads,omitempty"`
}

// Ref returns the item to put in a download request
func (o *DownloadOption) Ref() DownloadRef {
	return DownloadRef{EntityID: o.EntityID, ProductID: string(o.ID)}
}

// BulkProduct is a product of a dataset available for bulk download
type BulkProduct struct {
	Binding
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`
}
