package mqtt

// VariablesUnsubscribe carries the UNSUBSCRIBE variable header and
// payload, a plain list of topic filters (no QoS, unlike SUBSCRIBE).
type VariablesUnsubscribe struct {
	PacketIdentifier uint16
	TopicFilters     []string
}

func (v VariablesUnsubscribe) validate() error {
	if v.PacketIdentifier == 0 {
		return newError(KindMalformedRequest, "zero packet identifier")
	}
	if len(v.TopicFilters) == 0 {
		return newError(KindMalformedRequest, "UNSUBSCRIBE requires at least one topic filter")
	}
	if len(v.TopicFilters) > maxTopicFilters {
		return newError(KindUnsubscribeTooManyTopics, "")
	}
	return nil
}

func (v VariablesUnsubscribe) size() int {
	n := 2
	for _, f := range v.TopicFilters {
		n += 2 + len(f)
	}
	return n
}

// packUnsubscribe writes the UNSUBSCRIBE variable header and payload.
func packUnsubscribe(buf []byte, v VariablesUnsubscribe) (n int, err error) {
	if err := v.validate(); err != nil {
		return 0, err
	}
	if len(buf) < v.size() {
		return 0, nil
	}
	putUint16(buf, v.PacketIdentifier)
	n = 2
	for _, f := range v.TopicFilters {
		n += packString(buf[n:], f)
	}
	return n, nil
}

// unpackUnsubscribe parses an UNSUBSCRIBE variable header and payload;
// present for completeness since a session only ever sends UNSUBSCRIBE.
func unpackUnsubscribe(buf []byte, remainingLength uint32) (v VariablesUnsubscribe, n int, err error) {
	if uint32(len(buf)) < remainingLength || remainingLength < 2 {
		return VariablesUnsubscribe{}, 0, nil
	}
	v.PacketIdentifier = getUint16(buf)
	if v.PacketIdentifier == 0 {
		return VariablesUnsubscribe{}, 0, newError(KindMalformedResponse, "zero packet identifier")
	}
	n = 2
	for uint32(n) < remainingLength {
		topic, tn := unpackString(buf[n:])
		if tn == 0 {
			return VariablesUnsubscribe{}, 0, nil
		}
		n += tn
		v.TopicFilters = append(v.TopicFilters, topic)
	}
	return v, n, nil
}
