package lneto

// type ErrorPacketDrop struct {
// 	Message string
// }

// var genericErrPacketDrop = &ErrorPacketDrop{Message: ErrPacketDrop.Error()}

// // ErrGenericPacketDrop returns the generic packet drop error. It performs no allocations.
// func ErrGenericPacketDrop() error {
// 	return genericErrPacketDrop
// }

// func (err *ErrorPacketDrop) Error() string {
// 	return err.Message
// }

type errGeneric uint8

// Generic errors common to internet functioning.
const (
	_                     errGeneric = iota // non-initialized err
	ErrPacketDrop                           // packet dropped
	ErrBadCRC                               // incorrect checksum
	ErrBug                                  // bug found, please report
	ErrInvalidAddr                          // invalid address
	ErrInvalidConfig                        // invalid configuration
	ErrInvalidField                         // invalid field value
	ErrInvalidLengthField                   // invalid length field
	ErrMismatch                             // mismatched value
	ErrShortBuffer                          // buffer too short
	ErrUnsupported                          // unsupported operation or value
	ErrZeroDestination                      // zero destination address
	ErrZeroSource                           // zero source address
)

func (err errGeneric) Error() string {
	return err.String()
}

func (err errGeneric) String() string {
	switch err {
	case ErrPacketDrop:
		return "packet dropped"
	case ErrBadCRC:
		return "incorrect checksum"
	case ErrBug:
		return "bug found, please report"
	case ErrInvalidAddr:
		return "invalid address"
	case ErrInvalidConfig:
		return "invalid configuration"
	case ErrInvalidField:
		return "invalid field value"
	case ErrInvalidLengthField:
		return "invalid length field"
	case ErrMismatch:
		return "mismatched value"
	case ErrShortBuffer:
		return "buffer too short"
	case ErrUnsupported:
		return "unsupported operation or value"
	case ErrZeroDestination:
		return "zero destination address"
	case ErrZeroSource:
		return "zero source address"
	default:
		return "non-initialized err"
	}
}
