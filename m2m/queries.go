package m2m

// Default values of the scene search
const (
	DefaultMaxResults   = 100
	DefaultMetadataType = "full"
)

// Sort directions
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// DatasetQuery retrieves one dataset by name or id
type DatasetQuery struct {
	DatasetName string `json:"datasetName,omitempty"`
	DatasetID   string `json:"datasetId,omitempty"`
}

func (*DatasetQuery) Endpoint() string { return "dataset" }
func (*DatasetQuery) Shape() Shape     { return ShapeRecord }
func (*DatasetQuery) model() Dataset   { return Dataset{} }

// DatasetSearchQuery searches the datasets
type DatasetSearchQuery struct {
	DatasetName           string          `json:"datasetName,omitempty"`
	Catalog               string          `json:"catalog,omitempty"`
	CategoryID            string          `json:"categoryId,omitempty"`
	SpatialFilter         *SpatialFilter  `json:"spatialFilter,omitempty"`
	TemporalFilter        *TemporalFilter `json:"temporalFilter,omitempty"`
	IncludeMessages       *bool           `json:"includeMessages,omitempty"`
	PublicOnly            *bool           `json:"publicOnly,omitempty"`
	IncludeUnknownSpatial *bool           `json:"includeUnknownSpatial,omitempty"`
}

func (*DatasetSearchQuery) Endpoint() string { return "dataset-search" }
func (*DatasetSearchQuery) Shape() Shape     { return ShapeList }
func (*DatasetSearchQuery) model() Dataset   { return Dataset{} }

// SceneSearchQuery searches the scenes of a dataset.
// The response is paginated: see Page.Next.
type SceneSearchQuery struct {
	DatasetName               string       `json:"datasetName"`
	SceneFilter               *SceneFilter `json:"sceneFilter,omitempty"`
	SortField                 string       `json:"sortField,omitempty"`
	SortDirection             string       `json:"sortDirection,omitempty"`
	CompareListName           string       `json:"compareListName,omitempty"`
	BulkListName              string       `json:"bulkListName,omitempty"`
	OrderListName             string       `json:"orderListName,omitempty"`
	ExcludeListName           string       `json:"excludeListName,omitempty"`
	IncludeNullMetadataValues *bool        `json:"includeNullMetadataValues,omitempty"`
	// "full" or "summary"
	MetadataType string `json:"metadataType,omitempty"`
	Cursor
}

// NewSceneSearchQuery creates a scene search with the default pagination
func NewSceneSearchQuery(datasetName string, filter *SceneFilter) *SceneSearchQuery {
	q := &SceneSearchQuery{DatasetName: datasetName, SceneFilter: filter}
	q.setDefaults()
	return q
}

func (q *SceneSearchQuery) setDefaults() {
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	if q.StartingNumber <= 0 {
		q.StartingNumber = 1
	}
	if q.MetadataType == "" {
		q.MetadataType = DefaultMetadataType
	}
}

func (*SceneSearchQuery) Endpoint() string { return "scene-search" }
func (*SceneSearchQuery) Shape() Shape     { return ShapePage }
func (*SceneSearchQuery) model() Scene     { return Scene{} }

// DownloadOptionsQuery retrieves the download options of a set of scenes
type DownloadOptionsQuery struct {
	DatasetName string   `json:"datasetName"`
	EntityIDs   []string `json:"entityIds,omitempty"`
	ListID      string   `json:"listId,omitempty"`
}

func (*DownloadOptionsQuery) Endpoint() string      { return "download-options" }
func (*DownloadOptionsQuery) Shape() Shape          { return ShapeList }
func (*DownloadOptionsQuery) model() DownloadOption { return DownloadOption{} }

// DownloadRequestQuery submits a bulk download request
type DownloadRequestQuery struct {
	Downloads []DownloadRef `json:"downloads,omitempty"`
	Label     string        `json:"label,omitempty"`
}

func (*DownloadRequestQuery) Endpoint() string       { return "download-request" }
func (*DownloadRequestQuery) Shape() Shape           { return ShapeRecord }
func (*DownloadRequestQuery) model() DownloadRequest { return DownloadRequest{} }

// DownloadRetrieveQuery retrieves the state of the downloads of a session label
type DownloadRetrieveQuery struct {
	Label string `json:"label,omitempty"`
}

func (*DownloadRetrieveQuery) Endpoint() string         { return "download-retrieve" }
func (*DownloadRetrieveQuery) Shape() Shape             { return ShapeRecord }
func (*DownloadRetrieveQuery) model() DownloadRetrieval { return DownloadRetrieval{} }

// DatasetBulkProductsQuery lists the products available for bulk download
type DatasetBulkProductsQuery struct {
	DatasetName string `json:"datasetName,omitempty"`
}

func (*DatasetBulkProductsQuery) Endpoint() string   { return "dataset-bulk-products" }
func (*DatasetBulkProductsQuery) Shape() Shape       { return ShapeList }
func (*DatasetBulkProductsQuery) model() BulkProduct { return BulkProduct{} }
