package protocol

import "fmt"

// Packet is implemented by every wire packet body.
type Packet interface {
	Type() Type
	encode(w *writer)
	decode(r *reader)
}

// Encode serializes a packet with its header. total_size is computed to
// equal the resulting byte slice's length, which is the datagram-length
// invariant Decode checks on the receiving side.
func Encode(mode Mode, clientID uint16, tick uint64, pkt Packet) []byte {
	w := &writer{}
	pkt.encode(w)

	total := HeaderSize + len(w.buf)
	out := make([]byte, HeaderSize, total)
	h := Header{
		Mode:        mode,
		Type:        pkt.Type(),
		ClientID:    clientID,
		TotalSize:   uint32(total),
		CurrentTick: tick,
	}
	h.encode(out)
	out = append(out, w.buf...)
	return out
}

// Decode parses a header and dispatches to the matching packet body.
// Per spec.md §4.5, a declared total_size that doesn't match the received
// datagram length is a protocol error the caller must treat as a silent
// drop, not a fatal condition.
func Decode(data []byte) (Header, Packet, error) {
	header, err := decodeHeader(data)
	if err != nil {
		return Header{}, nil, err
	}
	if int(header.TotalSize) != len(data) {
		return header, nil, fmt.Errorf("protocol: total_size %d does not match datagram length %d", header.TotalSize, len(data))
	}

	pkt, err := newPacket(header.Type)
	if err != nil {
		return header, nil, err
	}

	r := &reader{buf: data[HeaderSize:]}
	pkt.decode(r)
	if r.err != nil {
		return header, nil, r.err
	}
	return header, pkt, nil
}

func newPacket(t Type) (Packet, error) {
	switch t {
	case TypeClientJoin:
		return &ClientJoin{}, nil
	case TypeServerHandshake:
		return &ServerHandshake{}, nil
	case TypeChunkVoxelsHardUpdate:
		return &ChunkVoxelsHardUpdate{}, nil
	case TypeClientJoined:
		return &ClientJoined{}, nil
	case TypeInputState:
		return &InputState{}, nil
	case TypeGameStateSnapshot:
		return &GameStateSnapshot{}, nil
	case TypePredictionErrorCorrection:
		return &PredictionErrorCorrection{}, nil
	case TypeAckGameStateReception:
		return &AckGameStateReception{}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown packet type %d", t)
	}
}
