package engine

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/nilgrove/pcbstack"
	"github.com/nilgrove/pcbstack/internal"
	"github.com/nilgrove/pcbstack/ipreasm"
	"github.com/nilgrove/pcbstack/ipv4"
	"github.com/nilgrove/pcbstack/ipv4/icmpv4"
	"github.com/nilgrove/pcbstack/pcb"
	"github.com/nilgrove/pcbstack/tcp"
)

var (
	errNotForUs  = errors.New("engine: datagram not addressed to us")
	errCRC       = errors.New("engine: checksum mismatch")
	errNoBuffer  = errors.New("engine: destination buffer too small")
)

// Engine is the single point of contact between an application and the
// protocol machinery: it demultiplexes incoming IPv4 datagrams to the right
// PCB or listener (reassembling fragments first), synthesizes RFC 9293's
// no-connection RST responses, reacts to ICMP path-MTU feedback, and
// serializes whatever the pool has queued to send. It plays the role
// StackBasic plays in the teacher package, generalized from a fixed set of
// per-protocol handlers to the PCB pool plus reassembler this stack adds.
type Engine struct {
	cfg   Config
	pool  *pcb.Pool
	reasm *ipreasm.Table
	rstq  tcp.RSTQueue
	pmtu  pmtuTable

	issCounter tcp.Value
	ipid       uint16

	logger
}

// New constructs an Engine from cfg. The reassembly table is sized per
// cfg.Reasm; the PCB pool per cfg.Pool.
func New(cfg Config) (*Engine, error) {
	reasm, err := ipreasm.New(cfg.Reasm)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:        cfg,
		pool:       pcb.NewPool(cfg.Pool),
		reasm:      reasm,
		pmtu:       newPMTUTable(cfg.PMTUCacheEntries, cfg.PMTUCacheMaxAge),
		issCounter: 1,
	}
	return e, nil
}

// Pool returns the underlying PCB pool, for callers that need direct access
// (tests, metrics, manual eviction).
func (e *Engine) Pool() *pcb.Pool { return e.pool }

// nextISS derives a fresh initial sequence number the way RFC 9293's
// appendix suggests: a clock component plus a xorshift step per connection,
// so two connections opened in the same tick still get distinct,
// hard-to-guess ISNs.
func (e *Engine) nextISS(now time.Time) tcp.Value {
	e.issCounter = internal.Prand32(e.issCounter)
	return tcp.Value(now.UnixNano()>>10) + e.issCounter
}

func (e *Engine) nextIPID() uint16 {
	e.ipid++
	return e.ipid
}

// Listen registers a listener bound to addr:port (addr may be the zero
// value for a wildcard bind). onEstablished, if non-nil, is called
// synchronously the moment a passively-opened PCB becomes dispatchable
// (see pcb.Listener.NotifyEstablished) instead of requiring the
// application to poll Accept.
func (e *Engine) Listen(addr [4]byte, port uint16, maxPCBs, queueSize int, queueTimeout time.Duration, onEstablished func(*pcb.PCB)) *pcb.Listener {
	l := pcb.NewListener(e.pool, addr, port, maxPCBs, queueSize, queueTimeout, onEstablished)
	e.pool.AddListener(l)
	return l
}

// Connect allocates a PCB and begins an active open to remote:remotePort
// from e.cfg.LocalAddr, returning the Connection the application uses to
// exchange data once cb.OnEstablished fires.
func (e *Engine) Connect(now time.Time, remote [4]byte, remotePort uint16, cb pcb.Callbacks) (*pcb.Connection, error) {
	p, err := e.pool.AllocatePCB(now)
	if err != nil {
		return nil, err
	}
	localPort, err := e.pool.AllocateEphemeralPort(e.cfg.LocalAddr, remote, remotePort)
	if err != nil {
		e.pool.ReleaseForFailedSetup(p)
		return nil, err
	}
	p.LocalAddr, p.RemoteAddr = e.cfg.LocalAddr, remote
	p.LocalPort, p.RemotePort = localPort, remotePort
	mtu := e.pathMTUFor(now, remote)
	p.BaseSndMSS, p.SndMSS = mssForMTU(mtu), mssForMTU(mtu)
	p.RcvWndShift = e.cfg.Pool.RcvWndShift
	p.RTO = e.cfg.Pool.InitialRtxTime

	iss := e.nextISS(now)
	wnd := tcp.Size(math.MaxUint16) // SYN windows are never scaled; announce the 16-bit max.
	if err := p.ControlBlock().Send(tcp.ClientSynSegment(iss, wnd)); err != nil {
		e.pool.ReleaseForFailedSetup(p)
		return nil, err
	}
	conn := pcb.NewConnection(p, cb)
	p.StartActiveOpen(now)
	p.FlushTimers()
	return conn, nil
}

// pathMTUFor returns the best known path MTU to remote: a cached estimate
// from prior ICMP feedback if one is still fresh, otherwise cfg.PathMTU.
func (e *Engine) pathMTUFor(now time.Time, remote [4]byte) uint16 {
	if mtu, ok := e.pmtu.Lookup(now, remote); ok {
		return mtu
	}
	return e.cfg.PathMTU
}

func mssForMTU(mtu uint16) uint16 {
	const ip4HeaderLen, tcpHeaderLen = 20, 20
	if mtu <= ip4HeaderLen+tcpHeaderLen {
		return 536
	}
	return mtu - ip4HeaderLen - tcpHeaderLen
}

// HandleIPv4Datagram is the engine's network-facing entry point: feed it one
// raw IPv4 datagram (header plus payload, no link-layer framing) as received
// from the interface. It verifies the IPv4 header checksum, reassembles
// fragments via the RFC 815 hole-descriptor table, verifies the upper-layer
// checksum, and dispatches the result to the PCB/listener demux (TCP) or the
// ICMP handler.
func (e *Engine) HandleIPv4Datagram(now time.Time, buf []byte) error {
	ifrm, err := ipv4.NewFrame(buf)
	if err != nil {
		return err
	}
	var v lneto.Validator
	ifrm.ValidateExceptCRC(&v)
	if err := v.Err(); err != nil {
		return err
	}
	if *ifrm.DestinationAddr() != e.cfg.LocalAddr {
		return errNotForUs
	}
	if want := ifrm.CalculateHeaderCRC(); ifrm.CRC() != want {
		e.logerr("engine:ip-crc-mismatch")
		return errCRC
	}

	srcAddr, dstAddr := *ifrm.SourceAddr(), *ifrm.DestinationAddr()
	proto := ifrm.Protocol()
	flags := ifrm.Flags()
	payload := ifrm.Payload()

	if flags.MoreFragments() || flags.FragmentOffset() != 0 {
		reassembled, ok := e.reasm.Reassemble(now, ifrm.ID(), srcAddr, dstAddr, uint8(proto), ifrm.TTL(),
			flags.MoreFragments(), int(flags.FragmentOffset())*8, buf[:20], payload)
		if !ok {
			return nil // still waiting on more fragments, or the fragment was invalid/dropped.
		}
		payload = reassembled
	}

	switch proto {
	case lneto.IPProtoTCP:
		return e.handleTCP(now, srcAddr, dstAddr, payload)
	case lneto.IPProtoICMP:
		return e.handleICMP(now, srcAddr, payload)
	default:
		return nil
	}
}

// pseudoHeaderCRC accumulates the IPv4 pseudo-header for upper-layer
// checksum verification independent of any one fragment's own TotalLength
// (needed because a reassembled segment's length has no single IP header
// to read it from).
func pseudoHeaderCRC(crc *lneto.CRC791, src, dst [4]byte, upperLen int, proto lneto.IPProto) {
	crc.WriteEven(src[:])
	crc.WriteEven(dst[:])
	crc.AddUint16(uint16(upperLen))
	crc.AddUint16(uint16(proto))
}

func (e *Engine) handleTCP(now time.Time, src, dst [4]byte, payload []byte) error {
	tfrm, err := tcp.NewFrame(payload)
	if err != nil {
		return err
	}
	var v lneto.Validator
	tfrm.ValidateExceptCRC(&v)
	if err := v.Err(); err != nil {
		return err
	}
	var crc lneto.CRC791
	pseudoHeaderCRC(&crc, src, dst, len(payload), lneto.IPProtoTCP)
	tfrm.CRCWrite(&crc)
	if want := crc.Sum16(); tfrm.CRC() != want {
		e.logerr("engine:tcp-crc-mismatch")
		return errCRC
	}

	localPort, remotePort := tfrm.DestinationPort(), tfrm.SourcePort()
	seg := tfrm.Segment(len(tfrm.Payload()))

	if p, ok := e.pool.Find(dst, src, localPort, remotePort); ok {
		if seg.Flags.HasAny(tcp.FlagSYN) {
			e.applySynOptions(p, tfrm.Options())
		} else if p.Flags.Has(pcb.FlagWndScale) {
			seg.WND = scaleWindow(seg.WND, p.SndWndShift)
		}
		err := p.HandleSegment(now, seg, tfrm.Payload())
		p.FlushTimers()
		return err
	}

	if seg.Flags == tcp.FlagSYN {
		if l, ok := e.pool.FindListener(dst, localPort); ok && l.AcceptsNewPCB() {
			return e.acceptNewConnection(now, src, dst, localPort, remotePort, seg, tfrm.Options(), tfrm.Payload(), l)
		}
	}

	e.sendResetForUnmatched(src, remotePort, localPort, seg)
	return nil
}

// applySynOptions folds the MSS and window-scale options of a SYN or
// SYN-ACK into the PCB: the peer's MSS bounds ours from above (never below
// the configured floor), and a window-scale option commits both shifts for
// the connection's lifetime (this engine always offers its own scale in the
// SYN/SYN-ACK, so a peer that sent one has completed the RFC 7323
// negotiation).
func (e *Engine) applySynOptions(p *pcb.PCB, opts []byte) {
	var codec tcp.OptionCodec
	codec.ForEachOption(opts, func(kind tcp.OptionKind, data []byte) error {
		switch kind {
		case tcp.OptMaxSegmentSize:
			peerMSS := binary.BigEndian.Uint16(data)
			if peerMSS < e.cfg.Pool.MinAllowedMss {
				peerMSS = e.cfg.Pool.MinAllowedMss
			}
			if peerMSS < p.SndMSS {
				p.SndMSS = peerMSS
			}
		case tcp.OptWindowScale:
			shift := data[0]
			if shift > 14 {
				shift = 14
			}
			p.SndWndShift = shift
			p.Flags |= pcb.FlagWndScale
		}
		return nil
	})
}

// scaleWindow widens a wire window field by the negotiated shift. The
// ControlBlock tracks windows as 16-bit quantities, so the scaled value is
// clamped there; flights larger than that are beyond what a fixed-pool
// engine of this size buffers anyway.
func scaleWindow(wnd tcp.Size, shift uint8) tcp.Size {
	scaled := uint32(wnd) << shift
	if scaled > math.MaxUint16 {
		scaled = math.MaxUint16
	}
	return tcp.Size(scaled)
}

func (e *Engine) acceptNewConnection(now time.Time, src, dst [4]byte, localPort, remotePort uint16, seg tcp.Segment, opts, payload []byte, l *pcb.Listener) error {
	p, err := e.pool.AllocatePCB(now)
	if err != nil {
		e.sendResetForUnmatched(src, remotePort, localPort, seg)
		return nil
	}
	p.LocalAddr, p.RemoteAddr = dst, src
	p.LocalPort, p.RemotePort = localPort, remotePort
	mtu := e.pathMTUFor(now, src)
	p.BaseSndMSS, p.SndMSS = mssForMTU(mtu), mssForMTU(mtu)
	p.RcvWndShift = e.cfg.Pool.RcvWndShift
	p.RTO = e.cfg.Pool.InitialRtxTime

	iss := e.nextISS(now)
	wnd := tcp.Size(l.InitialWindow)
	if err := p.ControlBlock().Open(iss, wnd); err != nil {
		e.pool.ReleaseForFailedSetup(p)
		return err
	}
	p.Listener = l
	l.NumPCBs++
	e.applySynOptions(p, opts)
	err = p.HandleSegment(now, seg, payload)
	p.FlushTimers()
	return err
}

// handleICMP reacts to the one ICMP message class this engine cares about
// (spec.md §1's "ICMPv4 generation and parsing beyond Destination
// Unreachable" is out of scope): a Destination Unreachable / Fragmentation
// Needed message, which is how a path's MTU shrinking mid-connection is
// discovered (RFC 1191). Anything else is ignored.
func (e *Engine) handleICMP(now time.Time, src [4]byte, payload []byte) error {
	frm, err := icmpv4.NewFrame(payload)
	if err != nil {
		return err
	}
	if frm.Type() != icmpv4.TypeDestinationUnreachable {
		return nil
	}
	duFrm := icmpv4.FrameDestinationUnreachable{Frame: frm}
	if duFrm.Code() != icmpv4.CodeFragNeededAndDFSet {
		return nil
	}
	e.HandleFragNeeded(now, src, duFrm.NextHopMTU(), duFrm.OriginalDatagram())
	return nil
}

// HandleFragNeeded applies a Path-MTU-Discovery notification: nextHopMTU is
// the RFC 1191 hint carried by the ICMP message (0 if the router didn't
// supply one, in which case the original datagram is simply assumed too big
// for cfg.MinMTU and clamped there), and originalDatagram is the echoed IPv4
// header plus the first 8 bytes of the offending TCP segment RFC 792
// guarantees every Destination Unreachable carries — enough to recover the
// 4-tuple that needs its MSS shrunk. The estimate is cached by remote
// address (so future connections to the same peer start from it) and
// applied immediately to the exact PCB that sent the oversized segment, if
// it is still around.
func (e *Engine) HandleFragNeeded(now time.Time, icmpSrc [4]byte, nextHopMTU uint16, originalDatagram []byte) {
	mtu := nextHopMTU
	if mtu == 0 || mtu > e.cfg.PathMTU {
		mtu = e.cfg.MinMTU
	}
	if mtu < e.cfg.MinMTU {
		mtu = e.cfg.MinMTU
	}

	ifrm, err := ipv4.NewFrame(originalDatagram)
	if err != nil {
		return
	}
	hdrLen := ifrm.HeaderLength()
	if hdrLen <= 0 || len(originalDatagram) < hdrLen+4 {
		return
	}
	localAddr, remoteAddr := *ifrm.SourceAddr(), *ifrm.DestinationAddr()
	tcpHdr := originalDatagram[hdrLen:]
	localPort := binary.BigEndian.Uint16(tcpHdr[0:2])
	remotePort := binary.BigEndian.Uint16(tcpHdr[2:4])

	e.pmtu.Update(now, remoteAddr, mtu)
	if e.logenabled(slog.LevelDebug) {
		e.debug("engine:pmtu-update", internal.SlogAddr4("remote", &remoteAddr), slog.Uint64("mtu", uint64(mtu)))
	}
	if p, ok := e.pool.Find(localAddr, remoteAddr, localPort, remotePort); ok {
		p.ApplyPMTU(mtu)
		p.FlushTimers()
	}
}

// Tick drives every time-based side effect this engine owns that isn't
// triggered directly by an incoming datagram or an application call:
// reassembly-slot expiration, listen-queue/pending-accept deadlines, and
// each PCB's abort/retransmission/output-retry timers. The event loop
// (out of scope per spec.md §1) is expected to call this at a steady
// cadence — AIpStack drives the equivalent sweep off its own platform
// timer wheel; here it is just a plain function the caller schedules.
func (e *Engine) Tick(now time.Time) {
	e.reasm.Purge(now)

	e.pool.ForEachListener(func(l *pcb.Listener) {
		l.ExpirePending(now)
		l.ExpireQueue(now)
	})

	e.pool.ForEach(func(p *pcb.PCB) {
		p.HandleExpiredTimers(now)
		p.FlushTimers()
	})
}

// sendResetForUnmatched queues the RFC 9293 §3.10.7.1 no-connection response:
// a segment carrying RST is never answered, one carrying ACK is answered
// with a bare RST at seq=seg.ACK, and anything else gets RST|ACK
// acknowledging the peer's data/control bytes. The reply goes through
// [tcp.RSTQueue] since no PCB exists to carry it.
func (e *Engine) sendResetForUnmatched(src [4]byte, remotePort, localPort uint16, seg tcp.Segment) {
	if seg.Flags.HasAny(tcp.FlagRST) {
		return
	}
	if seg.Flags.HasAny(tcp.FlagACK) {
		e.rstq.Queue(src[:], remotePort, localPort, seg.ACK, 0, tcp.FlagRST)
		return
	}
	e.rstq.Queue(src[:], remotePort, localPort, 0, seg.SEQ+tcp.Value((&seg).LEN()), tcp.FlagRST|tcp.FlagACK)
}

// Output serializes the next thing this engine wants to send, if anything:
// a queued stateless RST takes priority (it is cheap and its originating
// PCB may already be gone), then the pool's in-use PCBs are scanned for the
// first one with pending output. Returns (0, nil) if there is nothing to
// send right now.
func (e *Engine) Output(now time.Time, dst []byte) (int, error) {
	const ipHeaderLen = 20
	if len(dst) < ipHeaderLen+20 {
		return 0, errNoBuffer
	}
	ifrm, err := ipv4.NewFrame(dst)
	if err != nil {
		return 0, err
	}
	ifrm.SetVersionAndIHL(4, 5)
	*ifrm.SourceAddr() = e.cfg.LocalAddr
	ifrm.SetToS(0)
	ifrm.SetProtocol(lneto.IPProtoTCP)

	n, err := e.outputTCP(now, dst, ipHeaderLen)
	if err != nil || n == 0 {
		return 0, err
	}
	totalLen := ipHeaderLen + n
	ifrm.SetTotalLength(uint16(totalLen))
	ifrm.SetID(e.nextIPID())
	ifrm.SetFlags(0)
	ifrm.SetTTL(e.cfg.Pool.TcpTTL)
	ifrm.SetCRC(0)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())
	return totalLen, nil
}

func (e *Engine) outputTCP(now time.Time, carrierData []byte, offsetToFrame int) (int, error) {
	ifrm, _ := ipv4.NewFrame(carrierData)

	if r, ok := e.pool.NextPendingReset(); ok {
		local, remote, localPort, remotePort := r.Addrs()
		*ifrm.SourceAddr() = local
		*ifrm.DestinationAddr() = remote
		return e.writeSegment(carrierData, offsetToFrame, local, remote, localPort, remotePort, r.Segment(), nil)
	}

	if e.rstq.Pending() > 0 {
		n, err := e.rstq.Drain(carrierData, 0, offsetToFrame)
		if n > 0 {
			tfrm, _ := tcp.NewFrame(carrierData[offsetToFrame:])
			e.finalizeTCPChecksum(ifrm, tfrm, n)
		}
		return n, err
	}

	var out *pcb.PCB
	e.pool.ForEach(func(p *pcb.PCB) {
		if out == nil && p.Flags.HasAny(pcb.FlagACKPending|pcb.FlagOutPending) {
			out = p
		}
	})
	if out == nil {
		return 0, nil
	}
	return e.writePCBOutput(now, out, carrierData, offsetToFrame)
}

func (e *Engine) writeSegment(carrierData []byte, offsetToFrame int, local, remote [4]byte, localPort, remotePort uint16, seg tcp.Segment, payload []byte) (int, error) {
	tfrm, err := tcp.NewFrame(carrierData[offsetToFrame:])
	if err != nil {
		return 0, err
	}
	tfrm.ClearHeader()
	tfrm.SetSourcePort(localPort)
	tfrm.SetDestinationPort(remotePort)
	tfrm.SetSegment(seg, 5)
	tfrm.SetUrgentPtr(0)
	n := copy(tfrm.RawData()[20:], payload)

	ifrm, _ := ipv4.NewFrame(carrierData)
	e.finalizeTCPChecksum(ifrm, tfrm, 20+n)
	return 20 + n, nil
}

func (e *Engine) finalizeTCPChecksum(ifrm ipv4.Frame, tfrm tcp.Frame, segLen int) {
	var crc lneto.CRC791
	pseudoHeaderCRC(&crc, *ifrm.SourceAddr(), *ifrm.DestinationAddr(), segLen, lneto.IPProtoTCP)
	tfrm.SetCRC(0)
	tfrm.CRCWrite(&crc)
	tfrm.SetCRC(crc.Sum16())
}

func (e *Engine) writePCBOutput(now time.Time, p *pcb.PCB, carrierData []byte, offsetToFrame int) (int, error) {
	out, ok := p.Output(now)
	if !ok {
		p.Flags &^= pcb.FlagACKPending | pcb.FlagOutPending
		p.FlushTimers()
		return 0, nil
	}
	tfrm, err := tcp.NewFrame(carrierData[offsetToFrame:])
	if err != nil {
		return 0, err
	}
	offsetWords := uint8(5)
	var optBuf [8]byte
	optN := 0
	if out.Segment.Flags.HasAny(tcp.FlagSYN) {
		var codec tcp.OptionCodec
		n, _ := codec.PutOption16(optBuf[:], tcp.OptMaxSegmentSize, out.MSS)
		optN += n
		if out.SendWndScale {
			n, _ = codec.PutOption(optBuf[optN:], tcp.OptWindowScale, out.WndScale)
			optN += n
		}
		n, _ = codec.PutOption(optBuf[optN:], tcp.OptEnd)
		optN += n
		for optN%4 != 0 {
			optBuf[optN] = byte(tcp.OptEnd)
			optN++
		}
		offsetWords = 5 + uint8(optN/4)
	}

	wireSeg := out.Segment
	if p.Flags.Has(pcb.FlagWndScale) && !wireSeg.Flags.HasAny(tcp.FlagSYN) {
		wireSeg.WND >>= p.RcvWndShift
	}

	tfrm.ClearHeader()
	tfrm.SetSourcePort(p.LocalPort)
	tfrm.SetDestinationPort(p.RemotePort)
	tfrm.SetSegment(wireSeg, offsetWords)
	tfrm.SetUrgentPtr(0)
	hdrLen := int(offsetWords) * 4
	copy(tfrm.RawData()[20:hdrLen], optBuf[:optN])
	n := copy(tfrm.RawData()[hdrLen:], out.Payload)

	ifrm, _ := ipv4.NewFrame(carrierData)
	*ifrm.DestinationAddr() = p.RemoteAddr
	segLen := hdrLen + n
	e.finalizeTCPChecksum(ifrm, tfrm, segLen)

	if out.Rtx {
		p.MarkRetransmitted(now)
	} else {
		p.MarkSent(now, out.Segment.SEQ, len(out.Payload), out.Segment.Flags.HasAny(tcp.FlagFIN))
	}
	p.Flags &^= pcb.FlagACKPending | pcb.FlagOutPending | pcb.FlagRcvWndUpd
	if p.HasQueuedOutput() {
		p.Flags |= pcb.FlagOutPending
	}
	p.FlushTimers()
	return segLen, nil
}
