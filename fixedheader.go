package mqtt

// Header is the 2-5 byte fixed header present at the start of every MQTT
// control packet: one byte of Type/Flags followed by a variable length
// RemainingLength integer.
type Header struct {
	Type            PacketType
	Flags           PacketFlags
	RemainingLength uint32
}

// Size returns the number of bytes Pack would need to write this header.
func (h Header) Size() int {
	return 1 + remainingLengthSize(h.RemainingLength)
}

// Pack writes h into the start of buf. It returns the number of bytes
// written, or 0 if buf is too small to hold the header — callers treat
// n == 0 as "try again with more room", not as an error. A non-nil error
// means h itself is not a legal header (unknown type or forbidden flags
// for that type).
func (h Header) Pack(buf []byte) (n int, err error) {
	if !h.Type.valid() {
		return 0, newError(KindControlForbiddenType, h.Type.String())
	}
	if h.Type != PacketPublish && !h.Flags.validForFixed(h.Type) {
		return 0, newError(KindControlInvalidFlags, h.Type.String())
	}
	if len(buf) < 1 {
		return 0, nil
	}
	var rl [maxRemainingLengthSize]byte
	rn := packRemainingLength(rl[:], h.RemainingLength)
	if rn == 0 || len(buf) < 1+rn {
		return 0, nil
	}
	buf[0] = byte(h.Type)<<4 | byte(h.Flags)
	copy(buf[1:], rl[:rn])
	return 1 + rn, nil
}

// UnpackHeader reads a fixed header from the start of buf. n == 0 with a
// nil error means buf does not yet hold a complete header; a non-nil error
// means the bytes present are not a legal MQTT fixed header.
func UnpackHeader(buf []byte) (h Header, n int, err error) {
	if len(buf) < 1 {
		return Header{}, 0, nil
	}
	typ := PacketType(buf[0] >> 4)
	flags := PacketFlags(buf[0] & 0x0f)
	if !typ.valid() {
		return Header{}, 0, newError(KindControlForbiddenType, typ.String())
	}
	if typ != PacketPublish && !flags.validForFixed(typ) {
		return Header{}, 0, newError(KindControlInvalidFlags, typ.String())
	}
	rl, rn, err := unpackRemainingLength(buf[1:])
	if err != nil {
		return Header{}, 0, err
	}
	if rn == 0 {
		return Header{}, 0, nil
	}
	return Header{Type: typ, Flags: flags, RemainingLength: rl}, 1 + rn, nil
}
