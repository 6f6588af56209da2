package mcpr

// encodeVarInt encodes a 32-bit integer as a Minecraft-style VarInt.
// It returns a slice backed by a new allocation of up to 5 bytes.
func encodeVarInt(v int32) []byte {
	return appendVarInt(make([]byte, 0, 5), v)
}

func appendVarInt(out []byte, v int32) []byte {
	uv := uint32(v)
	for {
		b := byte(uv & 0x7F)
		uv >>= 7
		if uv != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if uv == 0 {
			return out
		}
	}
}

// EncodePacket builds a record payload from a protocol packet id and the
// packet body as it appears on the wire after the varint id.
func EncodePacket(packetID int32, body []byte) []byte {
	out := make([]byte, 0, 5+len(body))
	out = appendVarInt(out, packetID)
	return append(out, body...)
}
