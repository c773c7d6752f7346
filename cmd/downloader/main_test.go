package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airbusgeo/m2m-client/m2m"
)

// sceneTransport serves a dataset and a scene search of total scenes, odd scenes being bulk-downloadable
type sceneTransport struct {
	total    int
	searches int
}

func (t *sceneTransport) Post(ctx context.Context, url string, payload []byte, apiKey string) (json.RawMessage, error) {
	switch path.Base(url) {
	case "dataset":
		return json.RawMessage(`{"datasetId":"5e83d0b84df8d8c2","datasetAlias":"landsat_ot_c2_l1"}`), nil
	case "scene-search":
		t.searches++
		var q struct {
			StartingNumber int `json:"startingNumber"`
			MaxResults     int `json:"maxResults"`
		}
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, err
		}
		var results []string
		for i := q.StartingNumber; i < q.StartingNumber+q.MaxResults && i <= t.total; i++ {
			results = append(results, fmt.Sprintf(`{"entityId":"E%d","displayId":"D%d","options":{"download":true,"bulk":%t}}`, i, i, i%2 == 1))
		}
		return json.RawMessage(fmt.Sprintf(`{"results":[%s],"recordsReturned":%d,"totalHits":%d,"startingNumber":%d}`,
			strings.Join(results, ","), len(results), t.total, q.StartingNumber)), nil
	}
	return nil, fmt.Errorf("unexpected endpoint %s", url)
}

func searchAll(t *testing.T, total, pageSize, maxScenes int) ([]m2m.Scene, *sceneTransport) {
	t.Helper()
	ctx := context.Background()
	transport := &sceneTransport{total: total}
	client := m2m.New(m2m.Config{BaseURL: "https://m2m.test/api", Transport: transport, APIKey: "apikey"})
	dataset, err := client.Dataset(ctx, "landsat_ot_c2_l1")
	if err != nil {
		t.Fatal(err)
	}
	q := m2m.NewSceneSearchQuery(dataset.DatasetAlias, nil)
	q.MaxResults = pageSize
	scenes, err := searchScenes(ctx, dataset, q, maxScenes)
	if err != nil {
		t.Fatal(err)
	}
	return scenes, transport
}

func TestSearchScenes(t *testing.T) {
	scenes, transport := searchAll(t, 7, 2, 0)
	if len(scenes) != 4 {
		t.Errorf("expected 4 downloadable scenes, got %d", len(scenes))
	}
	if transport.searches != 4 {
		t.Errorf("expected 4 pages, got %d", transport.searches)
	}
	for _, s := range scenes {
		if s.DatasetName() != "landsat_ot_c2_l1" {
			t.Errorf("%s: unexpected dataset %s", s.EntityID, s.DatasetName())
		}
	}

	scenes, transport = searchAll(t, 7, 2, 2)
	if len(scenes) != 2 || scenes[0].EntityID != "E1" || scenes[1].EntityID != "E3" {
		t.Errorf("expected E1 and E3, got %v", scenes)
	}
	if transport.searches != 2 {
		t.Errorf("expected 2 pages, got %d", transport.searches)
	}
}

func TestSceneFilter(t *testing.T) {
	geometryFile := filepath.Join(t.TempDir(), "aoi.wkt")
	if err := os.WriteFile(geometryFile, []byte("POLYGON((1 43,2 43,2 44,1 44,1 43))"), 0644); err != nil {
		t.Fatal(err)
	}
	filter, err := sceneFilter(&config{
		StartDate:     "2020-06-01",
		EndDate:       "2020-06-30",
		MinCloudCover: 0,
		MaxCloudCover: 30,
		GeometryFile:  geometryFile,
	})
	if err != nil {
		t.Fatal(err)
	}
	if filter.AcquisitionFilter == nil || filter.AcquisitionFilter.Start.Day() != 1 || filter.AcquisitionFilter.End.Day() != 30 {
		t.Errorf("unexpected acquisition filter %+v", filter.AcquisitionFilter)
	}
	if filter.CloudCoverFilter == nil || filter.CloudCoverFilter.Max != 30 {
		t.Errorf("unexpected cloud cover filter %+v", filter.CloudCoverFilter)
	}
	sf := filter.SpatialFilter
	if sf == nil || sf.FilterType != m2m.SpatialFilterMBR || sf.LowerLeft.Longitude != 1 || sf.UpperRight.Latitude != 44 {
		t.Errorf("unexpected spatial filter %+v", sf)
	}

	filter, err = sceneFilter(&config{MaxCloudCover: 100})
	if err != nil {
		t.Fatal(err)
	}
	if filter != nil {
		t.Errorf("expected no filter, got %+v", filter)
	}
	payload, err := m2m.Payload(m2m.NewSceneSearchQuery("landsat_ot_c2_l1", filter))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(payload), "sceneFilter") {
		t.Errorf("expected no sceneFilter in %s", payload)
	}

	if _, err := sceneFilter(&config{StartDate: "2020-06-30", EndDate: "2020-06-01", MaxCloudCover: 100}); err == nil {
		t.Error("expected an error on an inverted date range")
	}
}
