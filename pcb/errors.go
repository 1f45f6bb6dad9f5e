package pcb

import "errors"

// Error kinds surfaced across the pool/PCB interface. Protocol-level
// anomalies (bad checksum, unacceptable segments, malformed options) never
// reach the application; they are handled inside the input pipeline by
// dropping the segment or emitting an RST/ACK. These errors are the
// synchronous, setup-time failures an application can observe directly.
var (
	ErrNoPCBAvail      = errors.New("pcb: no free PCB and no eviction candidate")
	ErrNoPortAvail     = errors.New("pcb: no ephemeral port available")
	ErrBufferFull      = errors.New("pcb: send queue momentarily full")
	ErrNotListening    = errors.New("pcb: listener is not active")
	ErrAlreadyConnected = errors.New("pcb: connection already established")
	ErrBadState        = errors.New("pcb: operation invalid in current state")
)
