// Package dmx owns the per-universe channel buffers and the rule that places
// pixels onto (universe, address) coordinates.
package dmx

// MaxChannels is the number of channel slots in one universe.
const MaxChannels = 512

// ChannelsPerPixel is the R, G, B channel run every pixel occupies.
const ChannelsPerPixel = 3

// Address is a 1-based (universe, channel) coordinate.
type Address struct {
	Universe int
	Channel  int
}

// Frame is a fixed set of universe buffers starting at a base universe.
// Writes that land outside the allocated buffers are dropped.
type Frame struct {
	base int
	data [][MaxChannels]byte
}

// NewFrame allocates count universes, the first one numbered base.
func NewFrame(base, count int) *Frame {
	if count < 0 {
		count = 0
	}
	return &Frame{base: base, data: make([][MaxChannels]byte, count)}
}

// Len is the number of allocated universes.
func (f *Frame) Len() int { return len(f.data) }

// Set writes v at a 1-based (universe, address). It reports false when the
// coordinate is outside the frame.
func (f *Frame) Set(universe, address int, v byte) bool {
	return f.set(universe-f.base, address-1, v)
}

// SetRun writes vals as consecutive channels starting at (universe, address).
// Channel offsets past the end of a universe continue in the following
// universe: offset o lands o/MaxChannels universes further on, at o%MaxChannels.
func (f *Frame) SetRun(universe, address int, vals ...byte) {
	for c, v := range vals {
		off := address + c - 1
		f.set(universe-f.base+off/MaxChannels, off%MaxChannels, v)
	}
}

// Universe returns the live buffer at index i, or nil when out of range.
func (f *Frame) Universe(i int) []byte {
	if i < 0 || i >= len(f.data) {
		return nil
	}
	return f.data[i][:]
}

// Reset zeroes every buffer.
func (f *Frame) Reset() {
	clear(f.data)
}

// Snapshot copies all buffers.
func (f *Frame) Snapshot() [][]byte {
	out := make([][]byte, len(f.data))
	for i := range f.data {
		out[i] = append([]byte(nil), f.data[i][:]...)
	}
	return out
}

func (f *Frame) set(u, i int, v byte) bool {
	if !f.inRange(u, i) {
		return false
	}
	f.data[u][i] = v
	return true
}

func (f *Frame) inRange(u, i int) bool {
	return u >= 0 && u < len(f.data) && i >= 0 && i < MaxChannels
}
