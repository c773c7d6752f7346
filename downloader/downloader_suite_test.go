package downloader_test

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"

	"github.com/airbusgeo/m2m-client/m2m"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// MokeM2M implements m2m.Transport
type MokeM2M struct {
	payloads map[string][]map[string]interface{}
	// responses of download-options by dataset
	options map[string]string
	// response of download-request
	request string
	// successive responses of download-retrieve by label (the last one is repeated)
	retrievals map[string][]string
}

func NewMokeM2M() *MokeM2M {
	return &MokeM2M{
		payloads:   map[string][]map[string]interface{}{},
		options:    map[string]string{},
		retrievals: map[string][]string{},
	}
}

// Post implements m2m.Transport
func (m *MokeM2M) Post(ctx context.Context, url string, payload []byte, apiKey string) (json.RawMessage, error) {
	endpoint := path.Base(url)
	var p map[string]interface{}
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	m.payloads[endpoint] = append(m.payloads[endpoint], p)
	switch endpoint {
	case "download-options":
		return json.RawMessage(m.options[p["datasetName"].(string)]), nil
	case "download-request":
		return json.RawMessage(m.request), nil
	case "download-retrieve":
		label, _ := p["label"].(string)
		responses := m.retrievals[label]
		if len(responses) == 0 {
			return json.RawMessage(`{"available":[],"requested":[],"queueSize":0}`), nil
		}
		r := responses[0]
		if len(responses) > 1 {
			m.retrievals[label] = responses[1:]
		}
		return json.RawMessage(r), nil
	}
	return nil, errors.New("unexpected endpoint " + endpoint)
}

// MokeSaver implements downloader.Saver
type MokeSaver struct {
	saved []string
	fail  map[string]bool
}

// Save implements downloader.Saver
func (s *MokeSaver) Save(ctx context.Context, d m2m.Download, extract bool) error {
	if s.fail[d.ID()] {
		return errors.New("write failed")
	}
	s.saved = append(s.saved, d.ID())
	return nil
}

const label = "m2m-label-test"

var ctx context.Context

func newClient(t m2m.Transport) *m2m.Client {
	return m2m.New(m2m.Config{BaseURL: "https://m2m.test/api", Transport: t, APIKey: "apikey", Label: label})
}

var _ = BeforeSuite(func() {
	ctx = context.Background()
})

func TestDownloader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Downloader Suite")
}
