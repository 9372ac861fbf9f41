package mqtt

// PINGREQ, PINGRESP and DISCONNECT carry no variable header and no
// payload: their fixed header's RemainingLength is always 0. There is
// nothing to pack or unpack beyond the fixed header itself, so session.go
// builds these directly from a Header.
