package proof

// RawDecoder reads the compatibility layout: byte 0 is a format marker and
// bytes 1..6 carry the six dimension values in fixed order. A blob shorter
// than seven bytes leaves its trailing dimensions at DefaultDimension.
// Bytes past offset 6 are ignored.
//
// The marker value is not interpreted; 0xA6 (a CBOR six-entry map header)
// is what producers conventionally write.
type RawDecoder struct{}

// Marker is the conventional first byte of a raw proof blob.
const Marker byte = 0xA6

// Decode implements Decoder. It never fails on a size-checked blob.
func (RawDecoder) Decode(blob []byte) (Raw, error) {
	raw := DefaultRaw()
	for i := range raw {
		if 1+i >= len(blob) {
			break
		}
		raw[i] = int64(blob[1+i])
	}
	return raw, nil
}

// EncodeRaw produces a raw-layout blob for the given values. Values outside
// a byte are truncated to their low 8 bits.
func EncodeRaw(values Raw) []byte {
	out := make([]byte, 0, 7)
	out = append(out, Marker)
	for _, v := range values {
		out = append(out, byte(v))
	}
	return out
}
