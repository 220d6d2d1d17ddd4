package progress

import (
	"github.com/sirupsen/logrus"
)

// NewLogObserver renders progress events as structured log lines.
func NewLogObserver(log logrus.FieldLogger) Observer {
	return &logObserver{
		log: log.WithField("component", "progress"),
	}
}

type logObserver struct {
	log logrus.FieldLogger
}

// Ensure interface compliance.
var _ Observer = (*logObserver)(nil)

// Observe implements Observer.
func (o *logObserver) Observe(ev Event) {
	log := o.log
	if ev.Workload != "" {
		log = log.WithField("workload", ev.Workload)
	}

	if ev.Runtime != "" {
		log = log.WithField("runtime", ev.Runtime)
	}

	switch ev.Kind {
	case KindRunStarted:
		log.WithField("cells", ev.Total).Info("Benchmark run started")
	case KindWorkloadStarted:
		log.Info("Running workload")
	case KindRuntimeStarted:
		log.Info("Running workload on runtime")
	case KindWarmupFinished:
		fields := logrus.Fields{
			"warmup": ev.Index,
			"of":     ev.Total,
		}

		if ev.TimedOut {
			log.WithFields(fields).Info("Warmup timed out")

			return
		}

		log.WithFields(fields).Debug("Warmup complete")
	case KindTrialFinished:
		fields := logrus.Fields{
			"trial":     ev.Index,
			"of":        ev.Total,
			"duration":  ev.Duration,
			"exit_code": ev.ExitCode,
		}

		if !ev.Passed() {
			log.WithFields(fields).Warn("Trial failed")

			return
		}

		log.WithFields(fields).Info("Trial complete")
	case KindCellFinished:
		if ev.Err != nil {
			log.WithError(ev.Err).Warn("Cell could not be measured")

			return
		}

		if ev.Cell != nil {
			log.WithFields(logrus.Fields{
				"average":   ev.Cell.Average,
				"std_dev":   ev.Cell.StdDev,
				"trials":    ev.Cell.NumTrials,
				"exit_code": ev.Cell.LastReturnCode,
			}).Info("Cell finished")
		}
	case KindRunFinished:
		log.WithField("cells", ev.Total).Info("Benchmark run finished")
	}
}
