package downloader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m2m_download_polls_total",
		Help: "Total retrievals of download requests by readiness",
	}, []string{"ready"})

	savedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "m2m_downloads_saved_total",
		Help: "Total downloads handed to the saver successfully",
	})
)
