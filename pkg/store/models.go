package store

import "time"

// Run is a stored benchmark run.
type Run struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	RunID        string `gorm:"not null;uniqueIndex" json:"run_id"`
	Timestamp    string `gorm:"index" json:"timestamp"`
	TimestampEnd string `json:"timestamp_end,omitempty"`
	NumTrials    int    `json:"num_trials"`
	WarmupRuns   int    `json:"warmup_runs"`
	Platform     string `json:"platform"`
	Hostname     string `json:"hostname,omitempty"`

	// Denormalized counts.
	Workloads int `json:"workloads"`
	Runtimes  int `json:"runtimes"`
	Cells     int `json:"cells"`
	Failures  int `json:"failures"`

	// Ordered runtime descriptions and host info serialized as JSON.
	RuntimesJSON string `gorm:"type:text" json:"-"`
	SystemJSON   string `gorm:"type:text" json:"-"`

	StoredAt time.Time `json:"stored_at"`
}

// Cell is the stored statistics of one (workload, runtime) pair.
type Cell struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    string `gorm:"not null;uniqueIndex:idx_cells_run_cell;index"`
	Workload string `gorm:"not null;uniqueIndex:idx_cells_run_cell"`
	Runtime  string `gorm:"not null;uniqueIndex:idx_cells_run_cell"`

	// Position is the measurement order of the cell within its run.
	Position int

	Average        float64
	Min            float64
	Max            float64
	StdDev         float64
	NumTrials      int
	WarmupRuns     int
	LastReturnCode int
	LastStdout     string `gorm:"type:text"`
	LastStderr     string `gorm:"type:text"`
	Error          string `gorm:"type:text"`

	TimesJSON string `gorm:"type:text"`
	UsageJSON string `gorm:"type:text"`
}
