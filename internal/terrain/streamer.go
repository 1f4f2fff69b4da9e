package terrain

import (
	"math"

	"infinite-flight/internal/geometry/vector"
)

const (
	// ChunkSize is the edge length of one chunk in world units.
	ChunkSize = 1000.0
	// ChunkSegments is the number of lattice segments along each chunk edge.
	ChunkSegments = 40

	// GridWidth is the number of chunks along each axis of the streamed grid.
	GridWidth = 3
	// ChunkCount is the fixed number of chunk slots.
	ChunkCount = GridWidth * GridWidth

	// recenterSlack is how far past one chunk a chunk may drift before it wraps.
	recenterSlack = 1.1
)

// Chunk is one relocatable tile of sampled terrain.
//
// Slot is its identity; OffsetX/OffsetZ and the samples change on recenter.
type Chunk struct {
	Slot     int     `json:"slot" cbor:"slot"`
	OffsetX  float64 `json:"offsetX" cbor:"ox"`
	OffsetZ  float64 `json:"offsetZ" cbor:"oz"`
	Size     float64 `json:"size" cbor:"size"`
	Segments int     `json:"segments" cbor:"seg"`

	// Heights is the (Segments+1)^2 lattice, row-major along z then x.
	Heights []float64 `json:"heights" cbor:"h"`
	// Normals parallels Heights.
	Normals []vector.Vec3 `json:"normals" cbor:"n"`

	// Revision increases every time the chunk is resampled.
	Revision uint64 `json:"revision" cbor:"rev"`
}

// SampleCount returns the number of lattice points along one edge.
func (c *Chunk) SampleCount() int { return c.Segments + 1 }

// LocalSample returns the chunk-local (x, z) of lattice point (i, j).
func (c *Chunk) LocalSample(i, j int) (x, z float64) {
	step := c.Size / float64(c.Segments)
	return -c.Size/2 + float64(i)*step, -c.Size/2 + float64(j)*step
}

// HeightAt returns the stored sample at lattice point (i, j).
func (c *Chunk) HeightAt(i, j int) float64 {
	return c.Heights[j*c.SampleCount()+i]
}

// Contains reports whether world (x, z) lies on this chunk's footprint.
func (c *Chunk) Contains(x, z float64) bool {
	half := c.Size / 2
	return x >= c.OffsetX-half && x <= c.OffsetX+half &&
		z >= c.OffsetZ-half && z <= c.OffsetZ+half
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c *Chunk) Clone() Chunk {
	out := *c
	out.Heights = append([]float64(nil), c.Heights...)
	out.Normals = append([]vector.Vec3(nil), c.Normals...)
	return out
}

// resample moves the chunk and rebuilds its samples and normals.
func (c *Chunk) resample(offsetX, offsetZ float64) {
	c.OffsetX, c.OffsetZ = offsetX, offsetZ
	n := c.SampleCount()
	if len(c.Heights) != n*n {
		c.Heights = make([]float64, n*n)
		c.Normals = make([]vector.Vec3, n*n)
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			lx, lz := c.LocalSample(i, j)
			wx, wz := offsetX+lx, offsetZ+lz
			c.Heights[j*n+i] = Height(wx, wz)
			c.Normals[j*n+i] = Normal(wx, wz)
		}
	}
	c.Revision++
}

// Streamer keeps a fixed 3x3 set of chunks centered on the aircraft's grid cell.
//
// Chunks are created once and only relocated afterwards. Streamer is not safe
// for concurrent use; it belongs to the simulation loop.
type Streamer struct {
	size     float64
	segments int
	chunks   []*Chunk
}

// NewStreamer builds the full grid around the world origin.
func NewStreamer() *Streamer {
	return newStreamer(ChunkSize, ChunkSegments)
}

func newStreamer(size float64, segments int) *Streamer {
	s := &Streamer{size: size, segments: segments}
	slot := 0
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			c := &Chunk{Slot: slot, Size: size, Segments: segments}
			c.resample(float64(x)*size, float64(z)*size)
			s.chunks = append(s.chunks, c)
			slot++
		}
	}
	return s
}

// GridOrigin returns the center of the grid cell containing pos. A position
// exactly on a cell boundary belongs to the cell on its positive side.
func (s *Streamer) GridOrigin(pos vector.Vec3) (x, z float64) {
	return roundHalfUp(pos.X/s.size) * s.size, roundHalfUp(pos.Z/s.size) * s.size
}

// roundHalfUp rounds ties toward +Inf, unlike math.Round.
func roundHalfUp(v float64) float64 { return math.Floor(v + 0.5) }

// Recenter wraps every chunk that drifted too far from the aircraft's grid cell
// to the opposite side and resamples it. It returns the moved slots.
func (s *Streamer) Recenter(pos vector.Vec3) []int {
	gridX, gridZ := s.GridOrigin(pos)

	var moved []int
	for _, c := range s.chunks {
		newX, changedX := s.wrap(c.OffsetX, gridX)
		newZ, changedZ := s.wrap(c.OffsetZ, gridZ)
		if changedX || changedZ {
			c.resample(newX, newZ)
			moved = append(moved, c.Slot)
		}
	}
	return moved
}

// wrap places a too-far chunk on the ring of three cells around origin.
//
// A chunk one cell past the edge lands at origin - sign(offset)*size; larger
// jumps wrap modulo the ring so slots never collide.
func (s *Streamer) wrap(pos, origin float64) (float64, bool) {
	offset := pos - origin
	if math.Abs(offset) <= s.size*recenterSlack {
		return pos, false
	}
	cells := math.Mod(roundHalfUp(offset/s.size), GridWidth)
	switch {
	case cells > 1:
		cells -= GridWidth
	case cells < -1:
		cells += GridWidth
	}
	return origin + cells*s.size, true
}

// Chunks returns the live chunks ordered by slot. Callers must not modify them.
func (s *Streamer) Chunks() []*Chunk {
	return s.chunks
}

// Chunk returns the chunk in slot.
func (s *Streamer) Chunk(slot int) *Chunk {
	return s.chunks[slot]
}

// Snapshot returns deep copies of every chunk.
func (s *Streamer) Snapshot() []Chunk {
	out := make([]Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c.Clone())
	}
	return out
}

// Covers reports whether world (x, z) lies on any streamed chunk.
func (s *Streamer) Covers(x, z float64) bool {
	for _, c := range s.chunks {
		if c.Contains(x, z) {
			return true
		}
	}
	return false
}
