package metrics

import (
	"runtime"
	"time"
)

// runtimeGauge is a gauge whose value is read from the Go runtime when the
// registry is scraped, so no collector goroutine is needed.
type runtimeGauge struct {
	name string
	help string
	read func() float64
}

func (g *runtimeGauge) Name() string     { return g.name }
func (g *runtimeGauge) Help() string     { return g.help }
func (g *runtimeGauge) Type() MetricType { return MetricTypeGauge }

func (g *runtimeGauge) Collect() []Sample {
	return []Sample{{Name: g.name, Value: g.read()}}
}

// RegisterRuntime adds Go runtime gauges and an uptime gauge measured from
// start to r.
func RegisterRuntime(r *Registry, start time.Time) {
	heap := func(pick func(*runtime.MemStats) uint64) func() float64 {
		return func() float64 {
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			return float64(pick(&mem))
		}
	}

	for _, g := range []*runtimeGauge{
		{
			name: "mockan_uptime_seconds",
			help: "Server uptime in seconds",
			read: func() float64 { return time.Since(start).Seconds() },
		},
		{
			name: "go_goroutines",
			help: "Number of goroutines that currently exist",
			read: func() float64 { return float64(runtime.NumGoroutine()) },
		},
		{
			name: "go_memstats_heap_alloc_bytes",
			help: "Number of heap bytes allocated and still in use",
			read: heap(func(m *runtime.MemStats) uint64 { return m.HeapAlloc }),
		},
		{
			name: "go_memstats_heap_objects",
			help: "Number of allocated objects",
			read: heap(func(m *runtime.MemStats) uint64 { return m.HeapObjects }),
		},
		{
			name: "go_gc_cycles",
			help: "Number of completed GC cycles",
			read: heap(func(m *runtime.MemStats) uint64 { return uint64(m.NumGC) }),
		},
	} {
		r.register(g)
	}
}
