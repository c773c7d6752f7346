package downloader_test

import (
	"context"
	"errors"
	"time"

	"github.com/airbusgeo/m2m-client/downloader"
	"github.com/airbusgeo/m2m-client/m2m"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const (
	requestXY = `{"availableDownloads":[{"downloadId":"x"}],"preparingDownloads":[{"downloadId":"y"}],"duplicateProducts":[],"failed":[],"newRecords":[],"numInvalidScenes":0}`
	xAndY     = `{"available":[{"downloadId":"x","displayId":"X","url":"https://dds.test/x"},{"downloadId":"y","displayId":"Y","url":"https://dds.test/y"}],"requested":[]}`
	xOnly     = `{"available":[{"downloadId":"x","displayId":"X","url":"https://dds.test/x"}],"requested":[]}`
	xStagedY  = `{"available":[{"downloadId":"x","displayId":"X","url":"https://dds.test/x"}],"requested":[{"downloadId":"y","displayId":"Y"}]}`
)

var _ = Describe("Orchestrator", func() {
	var (
		moke  *MokeM2M
		saver *MokeSaver
		o     *downloader.Orchestrator
		opts  []downloader.Option
	)

	JustBeforeEach(func() {
		o = downloader.New(newClient(moke), saver, opts...)
	})

	BeforeEach(func() {
		moke = NewMokeM2M()
		saver = &MokeSaver{fail: map[string]bool{}}
		opts = []downloader.Option{downloader.WithPollPolicy(downloader.PollPolicy{Interval: time.Millisecond})}
	})

	Describe("batching", func() {
		It("should group unique entity ids by dataset", func() {
			batches := o.Batch(
				downloader.SceneRef{DatasetName: "A", EntityID: "1"},
				downloader.SceneRef{DatasetName: "B", EntityID: "2"},
				downloader.SceneRef{DatasetName: "A", EntityID: "3"},
				downloader.SceneRef{DatasetName: "A", EntityID: "1"},
			)
			Expect(batches).To(HaveLen(2))
			Expect(batches["A"]).To(ConsistOf("1", "3"))
			Expect(batches["B"]).To(ConsistOf("2"))
			Expect(o.State()).To(Equal(downloader.Collecting))
		})
	})

	Describe("queueing", func() {
		BeforeEach(func() {
			moke.options["A"] = `[{"id":"P1","entityId":"1","available":true},{"id":"P3","entityId":"3","available":false}]`
			moke.options["B"] = `[{"id":"P2","entityId":"2","available":true}]`
			moke.request = requestXY
		})
		refs := []downloader.SceneRef{{DatasetName: "A", EntityID: "1"}, {DatasetName: "B", EntityID: "2"}, {DatasetName: "A", EntityID: "3"}}

		It("should request the eligible options only by default", func() {
			req, err := o.Download(ctx, refs...)
			Expect(err).NotTo(HaveOccurred())
			Expect(req).NotTo(BeNil())
			Expect(moke.payloads["download-options"]).To(HaveLen(2))
			Expect(moke.payloads["download-request"]).To(HaveLen(1))
			payload := moke.payloads["download-request"][0]
			Expect(payload["label"]).To(Equal(label))
			Expect(payload["downloads"]).To(ConsistOf(
				map[string]interface{}{"entityId": "1", "productId": "P1"},
				map[string]interface{}{"entityId": "2", "productId": "P2"},
			))
			Expect(o.Outstanding()).To(HaveLen(1))
			Expect(o.State()).To(Equal(downloader.Queued))
		})

		It("should append one record per request", func() {
			_, err := o.Download(ctx, refs...)
			Expect(err).NotTo(HaveOccurred())
			_, err = o.Download(ctx, refs[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(o.Outstanding()).To(HaveLen(2))
			Expect(moke.payloads["download-options"]).To(HaveLen(3))
		})

		Context("with every option selected", func() {
			BeforeEach(func() {
				opts = append(opts, downloader.WithSelection(downloader.AllOptions))
			})
			It("should request every resolved option", func() {
				_, err := o.Download(ctx, refs...)
				Expect(err).NotTo(HaveOccurred())
				Expect(moke.payloads["download-request"][0]["downloads"]).To(HaveLen(3))
			})
		})

		It("should not submit an empty request", func() {
			moke.options["A"] = `[{"id":"P3","entityId":"3","available":false}]`
			req, err := o.Download(ctx, refs[2])
			Expect(err).NotTo(HaveOccurred())
			Expect(req).To(BeNil())
			Expect(moke.payloads["download-request"]).To(BeEmpty())
			Expect(o.Outstanding()).To(BeEmpty())
		})
	})

	Describe("polling", func() {
		var req *m2m.DownloadRequest

		JustBeforeEach(func() {
			var err error
			req, err = o.Queue(ctx, []m2m.DownloadOption{{ID: "P1", EntityID: "1", Available: true}})
			Expect(err).NotTo(HaveOccurred())
		})

		Context("without duplicate products", func() {
			BeforeEach(func() {
				moke.request = requestXY
			})
			It("should not be ready until every requested id is retrieved", func() {
				moke.retrievals[label] = []string{xOnly, xStagedY}
				ready, err := o.PollOnce(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(ready).To(BeFalse())
				Expect(o.State()).To(Equal(downloader.Polling))

				ready, err = o.PollOnce(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(ready).To(BeTrue())
				Expect(o.State()).To(Equal(downloader.Ready))
			})

			It("should wait until ready", func() {
				moke.retrievals[label] = []string{xOnly, xOnly, xAndY}
				Expect(o.Wait(ctx, req)).To(Succeed())
				Expect(moke.payloads["download-retrieve"]).To(HaveLen(3))
			})

			It("should give up when the attempts are exhausted", func() {
				moke.retrievals[label] = []string{xOnly}
				o = downloader.New(newClient(moke), saver, downloader.WithPollPolicy(downloader.PollPolicy{MaxAttempts: 2}))
				req, _ = o.Queue(ctx, []m2m.DownloadOption{{ID: "P1", EntityID: "1", Available: true}})
				err := o.Wait(ctx, req)
				Expect(errors.Is(err, downloader.ErrPollExhausted)).To(BeTrue())
				Expect(moke.payloads["download-retrieve"]).To(HaveLen(2))
			})

			It("should give up after the timeout", func() {
				moke.retrievals[label] = []string{xOnly}
				o = downloader.New(newClient(moke), saver, downloader.WithPollPolicy(downloader.PollPolicy{Interval: 10 * time.Millisecond, Timeout: 35 * time.Millisecond}))
				req, _ = o.Queue(ctx, []m2m.DownloadOption{{ID: "P1", EntityID: "1", Available: true}})
				err := o.Wait(ctx, req)
				Expect(errors.Is(err, downloader.ErrPollExhausted)).To(BeTrue())
			})

			It("should stop when the context is cancelled", func() {
				moke.retrievals[label] = []string{xOnly}
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				err := o.Wait(cctx, req)
				Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			})
		})

		Context("with duplicate products", func() {
			BeforeEach(func() {
				moke.request = `{"availableDownloads":[{"downloadId":"x"}],"preparingDownloads":[{"downloadId":"y"}],"duplicateProducts":{"P2":"m2m-label-other","P4":"m2m-label-other"}}`
				moke.retrievals[label] = []string{xOnly}
			})
			It("should merge the retrieval of the other session", func() {
				moke.retrievals["m2m-label-other"] = []string{`{"available":[],"requested":[{"downloadId":"y"}]}`}
				ready, err := o.PollOnce(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(ready).To(BeTrue())
				// one retrieval per distinct label
				Expect(moke.payloads["download-retrieve"]).To(HaveLen(2))
				Expect(req.Retrieval().IDs().Slice()).To(ConsistOf("x", "y"))
			})
			It("should not be ready if the other session does not have it", func() {
				ready, err := o.PollOnce(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(ready).To(BeFalse())
			})
		})

		Context("when every download must be available", func() {
			BeforeEach(func() {
				moke.request = requestXY
				opts = []downloader.Option{downloader.WithPollPolicy(downloader.PollPolicy{Interval: time.Millisecond, RequireAvailable: true})}
			})
			It("should wait for the downloads in preparation", func() {
				moke.retrievals[label] = []string{xStagedY, xAndY}
				ready, err := o.PollOnce(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(ready).To(BeFalse())
				ready, err = o.PollOnce(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(ready).To(BeTrue())
			})
		})
	})

	Describe("saving", func() {
		BeforeEach(func() {
			moke.options["A"] = `[{"id":"P1","entityId":"1","available":true},{"id":"P3","entityId":"3","available":true}]`
			moke.request = requestXY
		})
		JustBeforeEach(func() {
			_, err := o.Download(ctx, downloader.SceneRef{DatasetName: "A", EntityID: "1"}, downloader.SceneRef{DatasetName: "A", EntityID: "3"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should remove the request once every download is saved", func() {
			moke.retrievals[label] = []string{xAndY}
			Expect(o.Start(ctx, true)).To(Succeed())
			Expect(saver.saved).To(ConsistOf("x", "y"))
			Expect(o.Outstanding()).To(BeEmpty())
			Expect(o.State()).To(Equal(downloader.Saved))
		})

		It("should keep the request while a download is not saved", func() {
			moke.retrievals[label] = []string{xAndY}
			saver.fail["y"] = true
			Expect(o.Start(ctx, false)).NotTo(Succeed())
			Expect(saver.saved).To(ConsistOf("x"))
			Expect(o.Outstanding()).To(HaveLen(1))

			// Next pass: only the remaining download is saved
			delete(saver.fail, "y")
			Expect(o.Start(ctx, false)).To(Succeed())
			Expect(saver.saved).To(Equal([]string{"x", "y"}))
			Expect(o.Outstanding()).To(BeEmpty())
		})

		It("should skip the downloads that are not staged yet", func() {
			moke.retrievals[label] = []string{xStagedY, xAndY}
			Expect(o.Start(ctx, false)).To(Succeed())
			Expect(saver.saved).To(ConsistOf("x"))
			Expect(o.Outstanding()).To(HaveLen(1))

			Expect(o.Start(ctx, false)).To(Succeed())
			Expect(saver.saved).To(Equal([]string{"x", "y"}))
			Expect(o.Outstanding()).To(BeEmpty())
		})

		It("should keep the request when the poll policy is exhausted", func() {
			moke.retrievals[label] = []string{xOnly}
			o2 := downloader.New(newClient(moke), saver, downloader.WithPollPolicy(downloader.PollPolicy{MaxAttempts: 1}))
			_, err := o2.Download(ctx, downloader.SceneRef{DatasetName: "A", EntityID: "1"})
			Expect(err).NotTo(HaveOccurred())
			err = o2.Start(ctx, false)
			Expect(errors.Is(err, downloader.ErrPollExhausted)).To(BeTrue())
			Expect(o2.Outstanding()).To(HaveLen(1))
			Expect(saver.saved).To(BeEmpty())
		})
	})

	Describe("savers", func() {
		It("should fall back on the next saver", func() {
			first := &MokeSaver{fail: map[string]bool{"x": true}}
			second := &MokeSaver{fail: map[string]bool{}}
			savers := downloader.Savers{first, second}
			Expect(savers.Save(ctx, m2m.Download{DownloadID: "x"}, false)).To(Succeed())
			Expect(first.saved).To(BeEmpty())
			Expect(second.saved).To(ConsistOf("x"))

			second.fail["x"] = true
			Expect(savers.Save(ctx, m2m.Download{DownloadID: "x"}, false)).NotTo(Succeed())
		})
	})
})
