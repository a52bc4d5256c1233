// Package monitor samples the pipeline process's own resource usage while a
// sample is being processed.
package monitor

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const sampleInterval = 500 * time.Millisecond

// Stats is the resource accounting for one monitored span. Available is
// false when process introspection failed and the values are zero.
type Stats struct {
	DurationSec   float64
	StartMemoryMB float64
	PeakMemoryMB  float64
	AvgMemoryMB   float64
	StartThreads  int
	PeakThreads   int
	Available     bool
}

// Monitor samples the current process's RSS and thread count on a fixed
// interval between Start and Stop.
type Monitor struct {
	proc    *process.Process
	started time.Time
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	samples []float64
	stats   Stats
}

// Start begins sampling. Failure to open the process handle degrades to a
// monitor whose Stats report only the duration.
func Start() *Monitor {
	m := &Monitor{
		started: time.Now(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		close(m.done)
		return m
	}
	m.proc = proc

	if mem, err := proc.MemoryInfo(); err == nil {
		m.stats.StartMemoryMB = float64(mem.RSS) / (1024 * 1024)
		m.stats.PeakMemoryMB = m.stats.StartMemoryMB
		m.samples = append(m.samples, m.stats.StartMemoryMB)
		m.stats.Available = true
	}
	if threads, err := proc.NumThreads(); err == nil {
		m.stats.StartThreads = int(threads)
		m.stats.PeakThreads = int(threads)
	}

	go m.loop()
	return m
}

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	mem, err := m.proc.MemoryInfo()
	if err != nil {
		return
	}
	rssMB := float64(mem.RSS) / (1024 * 1024)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, rssMB)
	if rssMB > m.stats.PeakMemoryMB {
		m.stats.PeakMemoryMB = rssMB
	}
	m.stats.Available = true
	if threads, err := m.proc.NumThreads(); err == nil && int(threads) > m.stats.PeakThreads {
		m.stats.PeakThreads = int(threads)
	}
}

// Stop ends sampling and returns the collected statistics. Safe to call
// once per monitor.
func (m *Monitor) Stop() Stats {
	select {
	case <-m.done:
	default:
		close(m.stop)
		<-m.done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.DurationSec = time.Since(m.started).Seconds()
	if len(m.samples) > 0 {
		var sum float64
		for _, s := range m.samples {
			sum += s
		}
		m.stats.AvgMemoryMB = sum / float64(len(m.samples))
	}
	return m.stats
}
