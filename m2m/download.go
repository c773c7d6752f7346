package m2m

import (
	"encoding/json"

	"github.com/airbusgeo/m2m-client/service"
)

// DownloadRef identifies a product of a scene in a download request
type DownloadRef struct {
	EntityID  string `json:"entityId"`
	ProductID string `json:"productId"`
}

// Download is a file staged (or being staged) by the service
type Download struct {
	Binding
	DownloadID     FlexString `json:"downloadId"`
	CollectionName string     `json:"collectionName,omitempty"`
	DatasetID      string     `json:"datasetId,omitempty"`
	DisplayID      string     `json:"displayId"`
	EntityID       string     `json:"entityId"`
	EulaCode       string     `json:"eulaCode,omitempty"`
	Filesize       FlexString `json:"filesize,omitempty"`
	Label          string     `json:"label,omitempty"`
	ProductCode    string     `json:"productCode,omitempty"`
	ProductName    string     `json:"productName,omitempty"`
	StatusCode     string     `json:"statusCode,omitempty"`
	StatusText     string     `json:"statusText,omitempty"`
	URL            string     `json:"url,omitempty"`
}

// ID returns the download id
func (d *Download) ID() string { return string(d.DownloadID) }

// DownloadRetrieval is the state of the downloads of a session label:
// "available" are staged, "requested" are still being prepared.
type DownloadRetrieval struct {
	Binding
	Available []Download      `json:"available"`
	Requested []Download      `json:"requested"`
	QueueSize int             `json:"queueSize"`
	Eulas     json.RawMessage `json:"eulas,omitempty"`
}

// Merge appends the downloads of other
func (r *DownloadRetrieval) Merge(other *DownloadRetrieval) {
	if other == nil {
		return
	}
	r.Available = append(r.Available, other.Available...)
	r.Requested = append(r.Requested, other.Requested...)
	r.QueueSize += other.QueueSize
}

// Items returns the available downloads followed by the requested ones
func (r *DownloadRetrieval) Items() []Download {
	items := make([]Download, 0, len(r.Available)+len(r.Requested))
	items = append(items, r.Available...)
	return append(items, r.Requested...)
}

// IDs returns the ids of the available and requested downloads
func (r *DownloadRetrieval) IDs() service.StringSet {
	ids := service.NewStringSet()
	for _, d := range r.Items() {
		ids.Push(d.ID())
	}
	return ids
}

// AvailableIDs returns the ids of the available downloads
func (r *DownloadRetrieval) AvailableIDs() service.StringSet {
	ids := service.NewStringSet()
	for _, d := range r.Available {
		ids.Push(d.ID())
	}
	return ids
}

// DownloadRequest is the response to a download-request.
// The requested ids (available and preparing downloads at submission) never change.
// Only the retrieval snapshot and the saved flags are updated afterwards.
type DownloadRequest struct {
	Binding
	Failed             []json.RawMessage `json:"failed"`
	NewRecords         FlexMap           `json:"newRecords"`
	NumInvalidScenes   int               `json:"numInvalidScenes"`
	DuplicateProducts  FlexMap           `json:"duplicateProducts"`
	AvailableDownloads []Download        `json:"availableDownloads"`
	PreparingDownloads []Download        `json:"preparingDownloads"`

	requested service.StringSet
	saved     service.StringSet
	retrieval *DownloadRetrieval
}

// UnmarshalJSON implements json.Unmarshaler and captures the requested ids
func (r *DownloadRequest) UnmarshalJSON(b []byte) error {
	type plain DownloadRequest
	if err := json.Unmarshal(b, (*plain)(r)); err != nil {
		return err
	}
	r.requested = service.NewStringSet()
	for _, d := range r.AvailableDownloads {
		r.requested.Push(d.ID())
	}
	for _, d := range r.PreparingDownloads {
		r.requested.Push(d.ID())
	}
	r.saved = service.NewStringSet()
	r.retrieval = nil
	return nil
}

// RequestedIDs returns the ids of the downloads requested at submission
func (r *DownloadRequest) RequestedIDs() service.StringSet {
	if r.requested == nil {
		r.requested = service.NewStringSet()
	}
	return r.requested
}

// Size returns the number of requested downloads
func (r *DownloadRequest) Size() int {
	return len(r.RequestedIDs())
}

// DuplicateLabels returns the session labels owning the duplicate products
func (r *DownloadRequest) DuplicateLabels() []string {
	labels := make([]string, 0, len(r.DuplicateProducts))
	for _, label := range r.DuplicateProducts {
		labels = append(labels, label)
	}
	return labels
}

// Retrieval returns the last retrieval snapshot (nil if never polled)
func (r *DownloadRequest) Retrieval() *DownloadRetrieval {
	return r.retrieval
}

// SetRetrieval replaces the retrieval snapshot
func (r *DownloadRequest) SetRetrieval(snapshot *DownloadRetrieval) {
	r.retrieval = snapshot
}

// Ready returns true if every requested id is either available or requested in the snapshot
func (r *DownloadRequest) Ready() bool {
	if r.retrieval == nil {
		return r.Size() == 0
	}
	return r.retrieval.IDs().Contains(r.RequestedIDs())
}

// Available returns true if every requested id is available in the snapshot
func (r *DownloadRequest) Available() bool {
	if r.retrieval == nil {
		return r.Size() == 0
	}
	return r.retrieval.AvailableIDs().Contains(r.RequestedIDs())
}

// Downloads returns the downloads of the snapshot that belong to the request, once per id.
// An available download takes precedence over a requested one.
func (r *DownloadRequest) Downloads() []Download {
	if r.retrieval == nil {
		return nil
	}
	requested := r.RequestedIDs()
	seen := service.NewStringSet()
	var downloads []Download
	for _, d := range r.retrieval.Items() {
		if id := d.ID(); requested.Exists(id) && !seen.Exists(id) {
			seen.Push(id)
			downloads = append(downloads, d)
		}
	}
	return downloads
}

// MarkSaved records that the download has been persisted
func (r *DownloadRequest) MarkSaved(downloadID string) {
	if r.saved == nil {
		r.saved = service.NewStringSet()
	}
	r.saved.Push(downloadID)
}

// Saved returns true if the download has been persisted
func (r *DownloadRequest) Saved(downloadID string) bool {
	return r.saved.Exists(downloadID)
}

// Complete returns true if every requested download has been persisted
func (r *DownloadRequest) Complete() bool {
	if r.saved == nil {
		return r.Size() == 0
	}
	return r.saved.Contains(r.RequestedIDs())
}
