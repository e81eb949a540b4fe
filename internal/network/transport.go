package network

import (
	"net"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"
)

// Datagram is the minimal send/receive surface the Network Core needs
// from a transport. spec.md §6 specifies a raw connectionless datagram
// socket; kcpDatagram additionally offers retransmission for deployments
// that want CHUNK_VOXELS_HARD_UPDATE bursts to survive packet loss
// without touching the packet codec (spec.md's own contract stays
// unreliable-by-design for the hot path).
type Datagram interface {
	ReadFrom(buf []byte) (n int, addr net.Addr, err error)
	WriteTo(buf []byte, addr net.Addr) (n int, err error)
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// udpTransport wraps *net.UDPConn, the literal transport spec.md §6 calls for.
type udpTransport struct {
	conn *net.UDPConn
}

func newUDPTransport(address string) (*udpTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &udpTransport{conn: conn}, nil
}

func (t *udpTransport) ReadFrom(buf []byte) (int, net.Addr, error) { return t.conn.ReadFromUDP(buf) }
func (t *udpTransport) WriteTo(buf []byte, addr net.Addr) (int, error) {
	return t.conn.WriteTo(buf, addr)
}
func (t *udpTransport) SetReadDeadline(tm time.Time) error { return t.conn.SetReadDeadline(tm) }
func (t *udpTransport) Close() error                       { return t.conn.Close() }
func (t *udpTransport) LocalAddr() net.Addr                { return t.conn.LocalAddr() }

// kcpTransport wraps a KCP listener, trading spec.md's literal
// "connectionless" socket for an ARQ-on-UDP channel. Kept behind the same
// Datagram interface so server.go never branches on transport kind.
type kcpTransport struct {
	listener *kcp.Listener
	sessions map[string]*kcp.UDPSession
}

func newKCPTransport(address string) (*kcpTransport, error) {
	listener, err := kcp.ListenWithOptions(address, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	return &kcpTransport{listener: listener, sessions: make(map[string]*kcp.UDPSession)}, nil
}

func (t *kcpTransport) ReadFrom(buf []byte) (int, net.Addr, error) {
	sess, err := t.listener.AcceptKCP()
	if err != nil {
		return 0, nil, err
	}
	t.sessions[sess.RemoteAddr().String()] = sess
	n, err := sess.Read(buf)
	return n, sess.RemoteAddr(), err
}

func (t *kcpTransport) WriteTo(buf []byte, addr net.Addr) (int, error) {
	sess, ok := t.sessions[addr.String()]
	if !ok {
		return 0, net.ErrClosed
	}
	return sess.Write(buf)
}

func (t *kcpTransport) SetReadDeadline(tm time.Time) error { return t.listener.SetReadDeadline(tm) }
func (t *kcpTransport) Close() error                       { return t.listener.Close() }
func (t *kcpTransport) LocalAddr() net.Addr                { return t.listener.Addr() }
