package dmx

// Place assigns count pixels, in order, to channel runs starting at
// (universe, address). A pixel never starts within two channels of the end of
// a universe; it moves to address 1 of the next universe instead.
func Place(universe, address, count int) []Address {
	if count <= 0 {
		return nil
	}
	if address < 1 {
		address = 1
	}
	out := make([]Address, count)
	for i := range out {
		if address > MaxChannels-2 {
			universe++
			address = 1
		}
		out[i] = Address{Universe: universe, Channel: address}
		address += ChannelsPerPixel
	}
	return out
}
