// Package artnet frames universe buffers as ArtDMX datagrams and sends them
// over UDP.
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/coreman2200/lumanet/internal/dmx"
)

const (
	// Port is the Art-Net UDP port.
	Port = 6454
	// HeaderSize is the ArtDMX header length preceding the channel data.
	HeaderSize = 18
	// MaxData is the largest payload one packet carries.
	MaxData = dmx.MaxChannels

	OpDMX           uint16 = 0x5000
	ProtocolVersion uint16 = 14
)

// ID opens every Art-Net packet.
var ID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

var errShortPacket = errors.New("artnet: short packet")

// Header is the decoded fixed part of an ArtDMX packet.
type Header struct {
	OpCode   uint16
	Version  uint16
	Sequence uint8
	Physical uint8
	Universe uint16
	Length   uint16
}

// Packet builds the ArtDMX datagram for one universe. Data beyond MaxData is
// dropped. The opcode and universe go out low byte first, the protocol
// version and length high byte first.
func Packet(universe uint16, data []byte) []byte {
	if len(data) > MaxData {
		data = data[:MaxData]
	}
	buf := make([]byte, HeaderSize+len(data))
	copy(buf, ID[:])
	binary.LittleEndian.PutUint16(buf[8:], OpDMX)
	binary.BigEndian.PutUint16(buf[10:], ProtocolVersion)
	// 12: sequence, 13: physical; always zero
	binary.LittleEndian.PutUint16(buf[14:], universe)
	binary.BigEndian.PutUint16(buf[16:], uint16(len(data)))
	copy(buf[HeaderSize:], data)
	return buf
}

// Parse splits an ArtDMX packet into header and payload.
func Parse(b []byte) (Header, []byte, error) {
	if len(b) < HeaderSize {
		return Header{}, nil, errShortPacket
	}
	if !bytes.Equal(b[:8], ID[:]) {
		return Header{}, nil, fmt.Errorf("artnet: bad id %q", b[:8])
	}
	h := Header{
		OpCode:   binary.LittleEndian.Uint16(b[8:]),
		Version:  binary.BigEndian.Uint16(b[10:]),
		Sequence: b[12],
		Physical: b[13],
		Universe: binary.LittleEndian.Uint16(b[14:]),
		Length:   binary.BigEndian.Uint16(b[16:]),
	}
	if h.OpCode != OpDMX {
		return h, nil, fmt.Errorf("artnet: unsupported opcode %#04x", h.OpCode)
	}
	if int(h.Length) > len(b)-HeaderSize {
		return h, nil, errShortPacket
	}
	return h, b[HeaderSize : HeaderSize+int(h.Length)], nil
}
