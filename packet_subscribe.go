package mqtt

// SubscribeRequest is one (topic filter, requested QoS) pair within a
// SUBSCRIBE packet's payload.
type SubscribeRequest struct {
	Topic string
	QoS   QoSLevel
}

// VariablesSubscribe carries the SUBSCRIBE variable header and payload.
type VariablesSubscribe struct {
	PacketIdentifier uint16
	TopicFilters     []SubscribeRequest
}

func (v VariablesSubscribe) validate() error {
	if v.PacketIdentifier == 0 {
		return newError(KindMalformedRequest, "zero packet identifier")
	}
	if len(v.TopicFilters) == 0 {
		return newError(KindMalformedRequest, "SUBSCRIBE requires at least one topic filter")
	}
	if len(v.TopicFilters) > maxTopicFilters {
		return newError(KindSubscribeTooManyTopics, "")
	}
	for _, f := range v.TopicFilters {
		if !f.QoS.IsValid() {
			return newError(KindPublishForbiddenQoS, f.QoS.String())
		}
	}
	return nil
}

func (v VariablesSubscribe) size() int {
	n := 2
	for _, f := range v.TopicFilters {
		n += 2 + len(f.Topic) + 1
	}
	return n
}

// packSubscribe writes the SUBSCRIBE variable header and payload into buf.
func packSubscribe(buf []byte, v VariablesSubscribe) (n int, err error) {
	if err := v.validate(); err != nil {
		return 0, err
	}
	if len(buf) < v.size() {
		return 0, nil
	}
	putUint16(buf, v.PacketIdentifier)
	n = 2
	for _, f := range v.TopicFilters {
		n += packString(buf[n:], f.Topic)
		buf[n] = byte(f.QoS & 0b11)
		n++
	}
	return n, nil
}

// unpackSubscribe parses a SUBSCRIBE variable header and payload; present
// for completeness since a session only ever sends SUBSCRIBE.
func unpackSubscribe(buf []byte, remainingLength uint32) (v VariablesSubscribe, n int, err error) {
	if uint32(len(buf)) < remainingLength || remainingLength < 2 {
		return VariablesSubscribe{}, 0, nil
	}
	v.PacketIdentifier = getUint16(buf)
	if v.PacketIdentifier == 0 {
		return VariablesSubscribe{}, 0, newError(KindMalformedResponse, "zero packet identifier")
	}
	n = 2
	for uint32(n) < remainingLength {
		topic, tn := unpackString(buf[n:])
		if tn == 0 {
			return VariablesSubscribe{}, 0, nil
		}
		n += tn
		if n >= len(buf) {
			return VariablesSubscribe{}, 0, nil
		}
		qos := QoSLevel(buf[n])
		n++
		if !qos.IsValid() {
			return VariablesSubscribe{}, 0, newError(KindPublishForbiddenQoS, qos.String())
		}
		v.TopicFilters = append(v.TopicFilters, SubscribeRequest{Topic: topic, QoS: qos})
	}
	return v, n, nil
}
