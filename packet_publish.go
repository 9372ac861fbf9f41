package mqtt

// VariablesPublish carries the PUBLISH variable header plus a reference
// to the application payload. PacketIdentifier is only present on the
// wire when QoS > 0, per MQTT 3.1.1 (see DESIGN.md for the reasoning).
type VariablesPublish struct {
	TopicName        string
	PacketIdentifier uint16
	Payload          []byte
}

func (v VariablesPublish) size(qos QoSLevel) int {
	n := 2 + len(v.TopicName) + len(v.Payload)
	if qos != QoS0 {
		n += 2
	}
	return n
}

// packPublish writes a PUBLISH variable header, and copies Payload, into
// buf. qos must be validated by the caller (Header.Flags.QoS()).
func packPublish(buf []byte, v VariablesPublish, qos QoSLevel) (n int, err error) {
	if qos > QoS2 {
		return 0, newError(KindPublishForbiddenQoS, qos.String())
	}
	if len(buf) < v.size(qos) {
		return 0, nil
	}
	n = packString(buf, v.TopicName)
	if qos != QoS0 {
		putUint16(buf[n:], v.PacketIdentifier)
		n += 2
	}
	n += copy(buf[n:], v.Payload)
	return n, nil
}

// unpackPublish parses a PUBLISH variable header and payload from buf,
// given the remaining length declared in the fixed header and the QoS
// carried in its flags nibble. The returned Payload aliases buf.
func unpackPublish(buf []byte, remainingLength uint32, qos QoSLevel) (v VariablesPublish, n int, err error) {
	if uint32(len(buf)) < remainingLength {
		return VariablesPublish{}, 0, nil
	}
	topic, tn := unpackString(buf)
	if tn == 0 {
		return VariablesPublish{}, 0, nil
	}
	n = tn
	if qos != QoS0 {
		if len(buf) < n+2 {
			return VariablesPublish{}, 0, nil
		}
		v.PacketIdentifier = getUint16(buf[n:])
		if v.PacketIdentifier == 0 {
			return VariablesPublish{}, 0, newError(KindMalformedResponse, "zero packet identifier")
		}
		n += 2
	}
	v.TopicName = topic
	v.Payload = buf[n:remainingLength]
	return v, int(remainingLength), nil
}
