package mqtt

// VariablesConnect carries the CONNECT variable header and payload
// fields, including the optional last-will-and-testament message a
// broker publishes on the client's behalf if the connection drops
// uncleanly.
type VariablesConnect struct {
	ClientID     string
	CleanSession bool
	KeepAlive    uint16

	WillTopic   string
	WillMessage string
	WillQoS     QoSLevel
	WillRetain  bool

	Username string
	Password string
}

// flags builds the CONNECT variable header's single connect-flags byte.
func (v *VariablesConnect) flags() byte {
	var f byte
	if v.Username != "" {
		f |= 1 << 7
	}
	if v.Password != "" {
		f |= 1 << 6
	}
	if v.WillTopic != "" {
		if v.WillRetain {
			f |= 1 << 5
		}
		f |= byte(v.WillQoS) << 3
		f |= 1 << 2
	}
	if v.CleanSession {
		f |= 1 << 1
	}
	return f
}

func (v *VariablesConnect) willFlag() bool { return v.WillTopic != "" }

// validate checks the constraints CONNECT packing must satisfy:
// non-empty client id, a will message whenever a will topic is given,
// and a legal will QoS.
func (v *VariablesConnect) validate() error {
	if v.ClientID == "" {
		return newError(KindConnectNullClientID, "")
	}
	if v.willFlag() && v.WillMessage == "" {
		return newError(KindConnectNullWillMessage, v.WillTopic)
	}
	if v.willFlag() && !v.WillQoS.IsValid() {
		return newError(KindConnectForbiddenWillQoS, v.WillQoS.String())
	}
	return nil
}

// size returns the number of bytes packConnect will write for v, not
// counting the fixed header.
func (v *VariablesConnect) size() int {
	n := 10 + 2 + len(v.ClientID)
	if v.willFlag() {
		n += 2 + len(v.WillTopic) + 2 + len(v.WillMessage)
	}
	if v.Username != "" {
		n += 2 + len(v.Username)
	}
	if v.Password != "" {
		n += 2 + len(v.Password)
	}
	return n
}

// packConnect writes the CONNECT variable header and payload into buf,
// starting at offset 0 (the caller has already reserved and will write the
// fixed header separately via Header.Pack). It returns the number of bytes
// written, or 0 if buf is too small.
func packConnect(buf []byte, v *VariablesConnect) (n int, err error) {
	if err := v.validate(); err != nil {
		return 0, err
	}
	need := v.size()
	if len(buf) < need {
		return 0, nil
	}
	n = copy(buf, "\x00\x04MQTT\x04")
	buf[n] = v.flags()
	putUint16(buf[n+1:], v.KeepAlive)
	n += 3
	n += packString(buf[n:], v.ClientID)
	if v.willFlag() {
		n += packString(buf[n:], v.WillTopic)
		n += packString(buf[n:], v.WillMessage)
	}
	if v.Username != "" {
		n += packString(buf[n:], v.Username)
	}
	if v.Password != "" {
		n += packString(buf[n:], v.Password)
	}
	return n, nil
}

// unpackConnect parses a CONNECT variable header and payload. Broker-side
// functionality only; provided for completeness and symmetry with the
// other packet types (sessions never receive a CONNECT).
func unpackConnect(buf []byte) (v VariablesConnect, n int, err error) {
	if len(buf) < 12 {
		return VariablesConnect{}, 0, nil
	}
	if string(buf[2:6]) != defaultProtocol || buf[6] != defaultProtocolLevel {
		return VariablesConnect{}, 0, newError(KindMalformedResponse, "unrecognized protocol name/level")
	}
	flags := buf[7]
	v.CleanSession = flags&(1<<1) != 0
	v.Username = ""
	hasWill := flags&(1<<2) != 0
	v.WillQoS = QoSLevel((flags >> 3) & 0b11)
	v.WillRetain = flags&(1<<5) != 0
	v.KeepAlive = getUint16(buf[8:10])
	n = 10
	cid, cn := unpackString(buf[n:])
	if cn == 0 {
		return VariablesConnect{}, 0, nil
	}
	v.ClientID = cid
	n += cn
	if hasWill {
		t, tn := unpackString(buf[n:])
		if tn == 0 {
			return VariablesConnect{}, 0, nil
		}
		n += tn
		m, mn := unpackString(buf[n:])
		if mn == 0 {
			return VariablesConnect{}, 0, nil
		}
		n += mn
		v.WillTopic, v.WillMessage = t, m
	}
	if flags&(1<<7) != 0 {
		u, un := unpackString(buf[n:])
		if un == 0 {
			return VariablesConnect{}, 0, nil
		}
		n += un
		v.Username = u
	}
	if flags&(1<<6) != 0 {
		p, pn := unpackString(buf[n:])
		if pn == 0 {
			return VariablesConnect{}, 0, nil
		}
		n += pn
		v.Password = p
	}
	return v, n, nil
}
