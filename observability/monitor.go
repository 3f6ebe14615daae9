// Package observability aggregates runtime counters for the stats
// endpoint and the periodic stats log line.
package observability

import (
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is one snapshot of the server's health, served as JSON.
type Stats struct {
	Connections     int     `json:"connections"`
	Rooms           int     `json:"rooms"`
	MessagesSent    uint64  `json:"messages_sent"`
	SendFailures    uint64  `json:"send_failures"`
	Deliveries      uint64  `json:"deliveries"`
	JoinsAccepted   uint64  `json:"joins_accepted"`
	Disconnects     uint64  `json:"disconnects"`
	AllocMemMb      uint64  `json:"alloc_mem_mb"`
	NumGC           uint32  `json:"num_gc"`
	CPUPercent      float64 `json:"cpu_percent"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	SnapshotTakenAt string  `json:"snapshot_taken_at"`
}

// CountsProvider reports live connection and room counts, typically
// backed by the registry.
type CountsProvider func() (connections, rooms int)

type Monitor struct {
	startedAt time.Time
	proc      *process.Process

	messagesSent  atomic.Uint64
	sendFailures  atomic.Uint64
	deliveries    atomic.Uint64
	joinsAccepted atomic.Uint64
	disconnects   atomic.Uint64
}

func NewMonitor() *Monitor {
	// Best effort: the process handle may be unavailable in restricted
	// environments, CPU percent then stays at zero.
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Monitor{startedAt: time.Now(), proc: proc}
}

func (m *Monitor) MessageSent()  { m.messagesSent.Add(1) }
func (m *Monitor) SendFailed()   { m.sendFailures.Add(1) }
func (m *Monitor) Delivered()    { m.deliveries.Add(1) }
func (m *Monitor) JoinAccepted() { m.joinsAccepted.Add(1) }
func (m *Monitor) Disconnected() { m.disconnects.Add(1) }

// Snapshot assembles the current stats, pulling live counts from the
// provided registry view.
func (m *Monitor) Snapshot(counts CountsProvider) Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var cpuPercent float64
	if m.proc != nil {
		if percent, err := m.proc.CPUPercent(); err == nil {
			cpuPercent = percent
		}
	}

	connections, rooms := 0, 0
	if counts != nil {
		connections, rooms = counts()
	}

	return Stats{
		Connections:     connections,
		Rooms:           rooms,
		MessagesSent:    m.messagesSent.Load(),
		SendFailures:    m.sendFailures.Load(),
		Deliveries:      m.deliveries.Load(),
		JoinsAccepted:   m.joinsAccepted.Load(),
		Disconnects:     m.disconnects.Load(),
		AllocMemMb:      mem.Alloc / 1024 / 1024,
		NumGC:           mem.NumGC,
		CPUPercent:      cpuPercent,
		UptimeSeconds:   int64(time.Since(m.startedAt).Seconds()),
		SnapshotTakenAt: time.Now().UTC().Format(time.RFC3339),
	}
}
