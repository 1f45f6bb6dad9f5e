package internal

import (
	"encoding/binary"
	"errors"
)

var (
	errUnsupportedIP             = errors.New("unsupported IP version")
	errInvalidIPVersionToSetAddr = errors.New("invalid ip version to setDstAddr")
)

// SetIPDestinationAddr writes addr as the destination of the IP header at
// the start of buf, dispatching on the version nibble. Used by the RST
// queue, whose entries outlive the frame that provoked them and so must
// patch the carrier datagram's header themselves.
func SetIPDestinationAddr(buf []byte, id uint16, addr []byte) (err error) {
	var dstaddr []byte
	version := buf[0] >> 4
	switch version {
	case 4:
		dstaddr = buf[16:20]
		binary.BigEndian.PutUint16(buf[4:6], id)
	case 6:
		dstaddr = buf[24:40]
	default:
		err = errUnsupportedIP
	}
	if err == nil && len(dstaddr) != len(addr) {
		return errInvalidIPVersionToSetAddr
	}
	copy(dstaddr, addr)
	return nil
}

