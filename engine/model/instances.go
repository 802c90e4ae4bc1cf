package model

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// InstancesProvider produces the per-instance records of one model entry.
// Update is called from a pool worker; the data slice is read afterwards on the render goroutine.
type InstancesProvider interface {
	// Update recomputes every instance for the given frame timestamp.
	//
	// Parameters:
	//   - nowMs: the frame timestamp in milliseconds
	Update(nowMs uint64)

	// InstanceData returns the records computed by the last Update.
	//
	// Returns:
	//   - []InstanceData: the instance records
	InstanceData() []InstanceData

	// InstanceCount returns the number of instances.
	//
	// Returns:
	//   - int: the instance count
	InstanceCount() int
}

// Animation periods of the grid, in milliseconds.
const (
	bobPeriodMs   = 2000
	yawPeriodMs   = 3000
	pitchPeriodMs = 5000
	pulsePeriodMs = 7000
)

const (
	bobAmplitude = 0.5
	pulseMin     = 0.6
	pulseMax     = 1.2
)

type gridInstancesProvider struct {
	mu *sync.Mutex

	perRow       int
	spacing      float32
	globalScale  float32
	displacement mgl32.Vec3
	data         []InstanceData
}

var _ InstancesProvider = &gridInstancesProvider{}

// NewGridInstancesProvider lays out perRow × perRow instances on the XZ plane. Every instance
// bobs, spins and pulses, phase-shifted by its position in the grid.
//
// Parameters:
//   - perRow: instances per grid row
//   - options: functional options for spacing and global scale
//
// Returns:
//   - InstancesProvider: the grid provider, already updated for time 0
func NewGridInstancesProvider(perRow int, options ...GridOption) InstancesProvider {
	perRow = max(perRow, 0)
	g := &gridInstancesProvider{
		mu:          &sync.Mutex{},
		perRow:      perRow,
		spacing:     3,
		globalScale: 0.8,
		displacement: mgl32.Vec3{
			float32(perRow) * 0.5,
			0,
			float32(perRow) * 0.5,
		},
		data: make([]InstanceData, perRow*perRow),
	}
	for _, option := range options {
		option(g)
	}
	g.Update(0)
	return g
}

// phase returns the fraction of period elapsed at nowMs.
func phase(nowMs, periodMs uint64) float32 {
	return float32(nowMs%periodMs) / float32(periodMs)
}

func (g *gridInstancesProvider) Update(nowMs uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	const tau = 2 * math32.Pi
	bob := phase(nowMs, bobPeriodMs)
	yaw := phase(nowMs, yawPeriodMs)
	pitch := phase(nowMs, pitchPeriodMs)
	pulse := phase(nowMs, pulsePeriodMs)

	n := float32(g.perRow)
	total := n * n
	for i := range g.perRow {
		for j := range g.perRow {
			offset := (float32(i)*n + float32(j)) / total

			position := mgl32.Vec3{
				g.spacing * (float32(i) - n/2),
				bobAmplitude * math32.Sin((bob+offset)*tau),
				g.spacing * (float32(j) - n/2),
			}.Sub(g.displacement)
			rotation := mgl32.QuatRotate((yaw+offset)*tau, mgl32.Vec3{0, 1, 0}).
				Mul(mgl32.QuatRotate((pitch+offset)*tau, mgl32.Vec3{1, 0, 0}))
			s := (pulseMin + (pulseMax-pulseMin)*math32.Abs(math32.Sin((pulse+offset)*tau))) * g.globalScale

			g.data[i*g.perRow+j] = NewInstanceData(position, rotation, mgl32.Vec3{s, s, s})
		}
	}
}

func (g *gridInstancesProvider) InstanceData() []InstanceData {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.data
}

func (g *gridInstancesProvider) InstanceCount() int {
	return g.perRow * g.perRow
}
