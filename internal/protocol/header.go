// Package protocol implements the Packet Codec: the fixed little-endian
// wire header shared by every packet kind, plus per-kind body
// serialization. Every multi-byte integer is little-endian; floats are
// IEEE-754 LE; vectors are 3 or 4 packed floats; strings are
// length-prefixed UTF-8.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Mode distinguishes who sent the packet.
type Mode uint8

const (
	ModeClient Mode = iota
	ModeServer
)

// Type enumerates the eight packet kinds the wire contract carries
// (spec.md §4.5).
type Type uint8

const (
	TypeClientJoin Type = iota
	TypeServerHandshake
	TypeChunkVoxelsHardUpdate
	TypeClientJoined
	TypeInputState
	TypeGameStateSnapshot
	TypePredictionErrorCorrection
	TypeAckGameStateReception
)

// HeaderSize is the fixed on-wire size of Header: mode(1) + type(1) +
// client_id(2) + total_size(4) + current_tick(8).
const HeaderSize = 1 + 1 + 2 + 4 + 8

// Header is the fixed prefix every packet carries.
type Header struct {
	Mode        Mode
	Type        Type
	ClientID    uint16
	TotalSize   uint32
	CurrentTick uint64
}

func (h Header) encode(buf []byte) {
	buf[0] = byte(h.Mode)
	buf[1] = byte(h.Type)
	binary.LittleEndian.PutUint16(buf[2:4], h.ClientID)
	binary.LittleEndian.PutUint32(buf[4:8], h.TotalSize)
	binary.LittleEndian.PutUint64(buf[8:16], h.CurrentTick)
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("protocol: header truncated: got %d bytes, need %d", len(buf), HeaderSize)
	}
	return Header{
		Mode:        Mode(buf[0]),
		Type:        Type(buf[1]),
		ClientID:    binary.LittleEndian.Uint16(buf[2:4]),
		TotalSize:   binary.LittleEndian.Uint32(buf[4:8]),
		CurrentTick: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}
