package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Results used to label reaped children.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultSignaled = "signaled"
)

var (
	registry = prometheus.NewRegistry()

	childrenSpawned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coprocess",
		Name:      "children_spawned_total",
		Help:      "Total number of child processes spawned.",
	})

	childrenReaped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coprocess",
		Name:      "children_reaped_total",
		Help:      "Total number of child exits observed, by result.",
	}, []string{"result"})

	exitProbes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coprocess",
		Name:      "exit_probes_total",
		Help:      "Non-blocking exit probes issued to the operating system.",
	})

	exitWakeups = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coprocess",
		Name:      "exit_wakeups_total",
		Help:      "Wake-ups delivered to waiting tasks by the exit notification source.",
	})

	waitRegistrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coprocess",
		Name:      "wait_registrations_total",
		Help:      "Kernel wait registrations created for child handles.",
	})

	waitsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coprocess",
		Name:      "waits_in_flight",
		Help:      "Number of tasks currently suspended waiting for a child to exit.",
	})

	waitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "coprocess",
		Name:      "wait_duration_seconds",
		Help:      "Time spent in Wait until the exit status was known.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "coprocess",
		Name:      "build_info",
		Help:      "Build metadata for the running binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(
		childrenSpawned,
		childrenReaped,
		exitProbes,
		exitWakeups,
		waitRegistrations,
		waitsInFlight,
		waitDuration,
		buildInfo,
	)
}

// Registry returns the Prometheus registry containing all coprocess metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ChildSpawned records a successful spawn.
func ChildSpawned() {
	childrenSpawned.Inc()
}

// ChildReaped records an observed exit with the given result label.
func ChildReaped(result string) {
	if result == "" {
		result = ResultFailure
	}
	childrenReaped.WithLabelValues(result).Inc()
}

// ExitProbe records one non-blocking exit probe.
func ExitProbe() {
	exitProbes.Inc()
}

// ExitWakeup records one wake-up of a waiting task.
func ExitWakeup() {
	exitWakeups.Inc()
}

// WaitRegistered records a kernel wait registration.
func WaitRegistered() {
	waitRegistrations.Inc()
}

// WaitStarted marks a task as suspended in Wait. The returned function marks
// it done and records how long it waited.
func WaitStarted() func() {
	start := time.Now()
	waitsInFlight.Inc()
	return func() {
		waitsInFlight.Dec()
		waitDuration.Observe(time.Since(start).Seconds())
	}
}

// Collectors read back by callers that report on the wait subsystem.
var (
	ExitProbes  prometheus.Counter = exitProbes
	ExitWakeups prometheus.Counter = exitWakeups
	Spawned     prometheus.Counter = childrenSpawned
	InFlight    prometheus.Gauge   = waitsInFlight
)

// Reaped returns the reaped counter for a result label.
func Reaped(result string) prometheus.Counter {
	return childrenReaped.WithLabelValues(result)
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
