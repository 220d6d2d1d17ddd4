package stats

import "github.com/ethpandaops/runtimeoor/pkg/procexec"

// Usage summarizes the OS-reported resource usage of the timed trials of a
// cell.
type Usage struct {
	MeanUserSeconds   float64 `json:"mean_user_seconds" yaml:"mean_user_seconds"`
	MeanSystemSeconds float64 `json:"mean_system_seconds" yaml:"mean_system_seconds"`
	PeakRSSBytes      int64   `json:"peak_rss_bytes" yaml:"peak_rss_bytes"`
}

// UsageAccumulator folds per-trial outcomes into a Usage summary.
type UsageAccumulator struct {
	count   int
	user    float64
	system  float64
	peakRSS int64
}

// Add records the resource usage of one trial. Launch failures carry no
// usage and are skipped.
func (a *UsageAccumulator) Add(o *procexec.Outcome) {
	if o == nil || (o.UserTime == 0 && o.SystemTime == 0 && o.MaxRSSBytes == 0) {
		return
	}

	a.count++
	a.user += o.UserTime.Seconds()
	a.system += o.SystemTime.Seconds()

	if o.MaxRSSBytes > a.peakRSS {
		a.peakRSS = o.MaxRSSBytes
	}
}

// Summary returns the accumulated usage, or nil when nothing was recorded.
func (a *UsageAccumulator) Summary() *Usage {
	if a.count == 0 {
		return nil
	}

	return &Usage{
		MeanUserSeconds:   a.user / float64(a.count),
		MeanSystemSeconds: a.system / float64(a.count),
		PeakRSSBytes:      a.peakRSS,
	}
}
