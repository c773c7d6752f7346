package downloader

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/airbusgeo/m2m-client/m2m"
	"github.com/airbusgeo/m2m-client/service"
	"github.com/airbusgeo/m2m-client/service/log"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SceneRef identifies a scene in a dataset
type SceneRef struct {
	DatasetName string
	EntityID    string
}

// RefsOf returns the references of the scenes
func RefsOf(scenes []m2m.Scene) []SceneRef {
	return lo.Map(scenes, func(s m2m.Scene, _ int) SceneRef {
		return SceneRef{DatasetName: s.DatasetName(), EntityID: s.EntityID}
	})
}

// Orchestrator turns scenes into bulk download requests, waits for the service to stage the files
// and hands them to the Saver.
// An Orchestrator is not safe for concurrent use.
type Orchestrator struct {
	client    *m2m.Client
	saver     Saver
	selection Selection
	policy    PollPolicy

	state       State
	batches     map[string][]string
	outstanding []*m2m.DownloadRequest
}

// New creates an orchestrator. The download requests are labelled with the session label of the client.
func New(client *m2m.Client, saver Saver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		saver:     saver,
		selection: EligibleOnly,
		policy:    DefaultPollPolicy(),
		batches:   map[string][]string{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state
func (o *Orchestrator) State() State { return o.state }

// Outstanding returns the download requests that are not completely saved
func (o *Orchestrator) Outstanding() []*m2m.DownloadRequest { return o.outstanding }

// Batch groups the entity ids by dataset. The ids are unique in each group.
// Successive calls accumulate until the options are resolved.
func (o *Orchestrator) Batch(refs ...SceneRef) map[string][]string {
	o.state = Collecting
	for dataset, group := range lo.GroupBy(refs, func(r SceneRef) string { return r.DatasetName }) {
		ids := lo.Map(group, func(r SceneRef, _ int) string { return r.EntityID })
		o.batches[dataset] = lo.Uniq(append(o.batches[dataset], ids...))
	}
	return o.batches
}

// ResolveOptions fetches the download options of every batch (one request per dataset)
func (o *Orchestrator) ResolveOptions(ctx context.Context) ([]m2m.DownloadOption, error) {
	datasets := lo.Keys(o.batches)
	sort.Strings(datasets)

	var options []m2m.DownloadOption
	for _, dataset := range datasets {
		res, err := m2m.Fetch[m2m.DownloadOption](ctx, o.client, &m2m.DownloadOptionsQuery{DatasetName: dataset, EntityIDs: o.batches[dataset]})
		if err != nil {
			return nil, fmt.Errorf("ResolveOptions[%s].%w", dataset, err)
		}
		options = append(options, res.All()...)
	}
	o.batches = map[string][]string{}
	o.state = OptionsResolved
	log.Logger(ctx).Sugar().Debugf("%d download options resolved for %d datasets", len(options), len(datasets))
	return options, nil
}

// Select returns the options to request according to the selection policy
func (o *Orchestrator) Select(options []m2m.DownloadOption) []m2m.DownloadOption {
	if o.selection == AllOptions {
		return options
	}
	return lo.Filter(options, func(opt m2m.DownloadOption, _ int) bool { return opt.Available })
}

// Queue submits one download request for the selected options and adds it to the outstanding requests.
// It returns nil if no option is selected.
func (o *Orchestrator) Queue(ctx context.Context, options []m2m.DownloadOption) (*m2m.DownloadRequest, error) {
	refs := lo.Map(o.Select(options), func(opt m2m.DownloadOption, _ int) m2m.DownloadRef { return opt.Ref() })
	if len(refs) == 0 {
		log.Logger(ctx).Sugar().Warnf("no download option to queue (%d resolved)", len(options))
		return nil, nil
	}
	req, err := m2m.FetchOne[m2m.DownloadRequest](ctx, o.client, &m2m.DownloadRequestQuery{Downloads: refs, Label: o.client.Label()})
	if err != nil {
		return nil, fmt.Errorf("Queue.%w", err)
	}
	o.outstanding = append(o.outstanding, req)
	o.state = Queued
	log.Logger(ctx).Info("download request queued",
		zap.Int("downloads", len(refs)),
		zap.Int("requested", req.Size()),
		zap.Int("failed", len(req.Failed)),
		zap.Int("duplicates", len(req.DuplicateProducts)),
		zap.Int("invalidScenes", req.NumInvalidScenes))
	return req, nil
}

// Download batches the scenes, resolves their options and queues a download request
func (o *Orchestrator) Download(ctx context.Context, refs ...SceneRef) (*m2m.DownloadRequest, error) {
	o.Batch(refs...)
	options, err := o.ResolveOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download.%w", err)
	}
	req, err := o.Queue(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("Download.%w", err)
	}
	return req, nil
}

// PollOnce retrieves the downloads of the session, merged with the downloads of the sessions
// owning the duplicate products, and returns whether the request is ready.
func (o *Orchestrator) PollOnce(ctx context.Context, req *m2m.DownloadRequest) (bool, error) {
	o.state = Polling
	snapshot, err := o.retrieve(ctx, o.client.Label())
	if err != nil {
		return false, fmt.Errorf("PollOnce.%w", err)
	}
	for _, label := range lo.Uniq(req.DuplicateLabels()) {
		if label == o.client.Label() {
			continue
		}
		log.Logger(ctx).Sugar().Debugf("retrieving duplicate products of %s", label)
		dup, err := o.retrieve(ctx, label)
		if err != nil {
			return false, fmt.Errorf("PollOnce[%s].%w", label, err)
		}
		snapshot.Merge(dup)
	}
	req.SetRetrieval(snapshot)

	ready := req.Ready()
	if o.policy.RequireAvailable {
		ready = req.Available()
	}
	pollsTotal.WithLabelValues(strconv.FormatBool(ready)).Inc()
	if ready {
		o.state = Ready
	}
	return ready, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, label string) (*m2m.DownloadRetrieval, error) {
	snapshot, err := m2m.FetchOne[m2m.DownloadRetrieval](ctx, o.client, &m2m.DownloadRetrieveQuery{Label: label})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Wait polls the request until it is ready, following the poll policy
func (o *Orchestrator) Wait(ctx context.Context, req *m2m.DownloadRequest) error {
	start := time.Now()
	for attempt := 1; ; attempt++ {
		ready, err := o.PollOnce(ctx, req)
		if err != nil {
			return fmt.Errorf("Wait.%w", err)
		}
		if ready {
			return nil
		}
		if o.policy.MaxAttempts > 0 && attempt >= o.policy.MaxAttempts {
			return fmt.Errorf("Wait: %d attempts: %w", attempt, ErrPollExhausted)
		}
		if o.policy.Timeout > 0 && time.Since(start)+o.policy.Interval > o.policy.Timeout {
			return fmt.Errorf("Wait: timeout after %s: %w", time.Since(start).Round(time.Second), ErrPollExhausted)
		}
		log.Logger(ctx).Sugar().Infof("waiting for preparation (%d/%d ready)", len(req.Downloads()), req.Size())
		select {
		case <-time.After(o.policy.Interval):
		case <-ctx.Done():
			return fmt.Errorf("Wait: %w", ctx.Err())
		}
	}
}

// Start waits for every outstanding request and saves the downloads that are not saved yet.
// The requests that are completely saved are removed from the outstanding requests.
// A failure on a request or a download does not stop the others: the errors are merged.
func (o *Orchestrator) Start(ctx context.Context, extract bool) error {
	var err error
	for _, req := range o.outstanding {
		if e := o.Wait(ctx, req); e != nil {
			if ctx.Err() != nil || service.Fatal(e) {
				return fmt.Errorf("Start.%w", e)
			}
			err = service.MergeErrors(true, err, e)
			continue
		}
		for _, d := range req.Downloads() {
			if req.Saved(d.ID()) {
				continue
			}
			if d.URL == "" {
				log.Logger(ctx).Sugar().Debugf("%s is not staged yet", d.DisplayID)
				continue
			}
			log.Logger(ctx).Sugar().Infof("downloading: %s | %s", d.URL, d.EntityID)
			if e := o.saver.Save(ctx, d, extract); e != nil {
				err = service.MergeErrors(true, err, fmt.Errorf("Start[%s].%w", d.DisplayID, e))
				continue
			}
			req.MarkSaved(d.ID())
			savedTotal.Inc()
		}
	}

	o.outstanding = lo.Filter(o.outstanding, func(req *m2m.DownloadRequest, _ int) bool { return !req.Complete() })
	if len(o.outstanding) == 0 {
		o.state = Saved
	}
	return err
}
