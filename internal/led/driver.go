package led

// Driver abstracts a local LED output sink mirroring one strip.
type Driver interface {
	// Write pushes an RGB frame. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}
