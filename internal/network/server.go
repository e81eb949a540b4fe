// Package network implements the Network Core: a receiver-thread/mutex
// socket model, the client registry, server-side authoritative
// simulation, snapshot dispatch and client-side prediction/reconciliation
// (spec.md §4.6, §5). Grounded on udp_server.go's receiver-goroutine
// pattern; the packet framing itself belongs to internal/protocol.
package network

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/mmo-game/internal/cache"
	"github.com/annel0/mmo-game/internal/config"
	"github.com/annel0/mmo-game/internal/eventbus"
	"github.com/annel0/mmo-game/internal/logging"
	"github.com/annel0/mmo-game/internal/protocol"
	"github.com/annel0/mmo-game/internal/sim"
	"github.com/annel0/mmo-game/internal/storage"
	"github.com/annel0/mmo-game/internal/voxel"
	"go.opentelemetry.io/otel"
)

// tracer emits the "sim.tick" span per main-loop iteration and the child
// spans dispatchSnapshots/buildVoxelDelta start off it, matching the
// per-request spans internal/observability.InitTelemetry sets up the
// exporter for.
var tracer = otel.Tracer("mmo-game/network")

// posDriftEpsilon is the (p,d) mismatch threshold that triggers a
// position correction (spec.md §4.6).
const posDriftEpsilon = 0.1

// recvEntry is one datagram captured by the receiver thread, copied out
// of the read buffer so the arena can be reused immediately.
type recvEntry struct {
	data []byte
	addr *net.UDPAddr
}

// Server owns the voxel grid and player roster; it is the single-threaded
// main loop of spec.md §5. The receiver goroutine never touches either.
type Server struct {
	cfg  config.SimConfig
	grid *voxel.Grid

	transport Datagram
	bus       eventbus.EventBus
	metrics   *SimMetrics

	// posRepo is optional: when set, authenticated clients (UserID != 0)
	// resume near their last known position instead of spawnPoint, and
	// their position is periodically autosaved.
	posRepo storage.PositionRepo

	// chunkCache is optional: when set, the full-grid hard-update walk
	// done on every join is cached behind it instead of re-snapshotting
	// every chunk per new client.
	chunkCache cache.CacheRepo

	// posCache is optional: when set, every client's reported (P, D) is
	// mirrored into Redis GEO each interval, letting out-of-process
	// tooling (or a future interest-management pass) query nearby
	// clients without touching the authoritative player map.
	posCache *storage.RedisPositionCache

	// compressor zstd-compresses the cached full-grid hard-update blob
	// before it goes into chunkCache; nil falls back to storing it
	// uncompressed (chunkCache itself still works either way).
	compressor *chunkCompressor

	mu        sync.Mutex // guards recvQueue only, per spec.md §5
	recvQueue []recvEntry

	// Owned exclusively by the main loop goroutine.
	clients      map[uint16]*Client
	players      map[uint16]*sim.Player
	nextClientID uint16
	tick         uint64

	tickInterval     time.Duration
	snapshotInterval time.Duration
	lastSnapshot     time.Time

	// tickCtx carries the current tick's "sim.tick" span so dispatchSnapshots
	// and buildVoxelDelta can open child spans off it. Owned exclusively by
	// the main loop goroutine, same as clients/players.
	tickCtx context.Context

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds a UDP socket at address and constructs the voxel grid
// and empty client/player registries. Terrain is not seeded here; call
// Grid().SeedDefaultTerrain() or SeedPerlinTerrain before Start.
func NewServer(address string, cfg config.SimConfig) (*Server, error) {
	cfg = cfg.WithDefaults()

	var transport Datagram
	var err error
	if cfg.UseKCP {
		transport, err = newKCPTransport(address)
	} else {
		transport, err = newUDPTransport(address)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	compressor, err := newChunkCompressor()
	if err != nil {
		logging.LogWarn("network: zstd compressor unavailable, chunk cache will store entries uncompressed: %v", err)
		compressor = nil
	}

	return &Server{
		cfg:              cfg,
		grid:             voxel.NewGrid(cfg.GridEdge, cfg.VoxelSize, cfg.SurfaceThresh),
		transport:        transport,
		bus:              eventbus.NewMemoryBus(256),
		metrics:          NewSimMetrics(),
		compressor:       compressor,
		clients:          make(map[uint16]*Client),
		players:          make(map[uint16]*sim.Player),
		tickInterval:     time.Second / time.Duration(cfg.TickRate),
		snapshotInterval: time.Second / time.Duration(cfg.SnapshotRate),
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

// Grid exposes the voxel grid for world-seeding hooks and inspection.
func (s *Server) Grid() *voxel.Grid { return s.grid }

// EventBus exposes the dirty-chunk notification bus (spec.md §6.d's
// "hook for ray-terraform to notify rendering of dirty chunks").
func (s *Server) EventBus() eventbus.EventBus { return s.bus }

// SetEventBus swaps the dirty-chunk bus, e.g. for a JetStream-backed one
// so an out-of-process renderer/tooling process can subscribe instead of
// linking against the in-process default. Must be called before Start();
// the main loop only reads s.bus after that point.
func (s *Server) SetEventBus(bus eventbus.EventBus) {
	if bus != nil {
		s.bus = bus
	}
}

// SetPositionRepo wires cross-session spawn persistence; nil disables it
// (every client spawns at spawnPoint, the default).
func (s *Server) SetPositionRepo(repo storage.PositionRepo) { s.posRepo = repo }

// SetPositionCache wires the Redis GEO proximity cache; nil disables it.
func (s *Server) SetPositionCache(c *storage.RedisPositionCache) { s.posCache = c }

// NearbyClients returns the ids of clients within radiusMeters of
// (centerX, centerZ) in world space, via posCache's Redis GEO index.
// Returns (nil, nil) when no position cache is wired.
func (s *Server) NearbyClients(centerX, centerZ, radiusMeters float64) ([]uint16, error) {
	if s.posCache == nil {
		return nil, nil
	}
	names, err := s.posCache.GetNearbyClientsGeo(centerX, centerZ, radiusMeters)
	if err != nil {
		return nil, err
	}
	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		id, err := strconv.ParseUint(name, 10, 16)
		if err != nil {
			continue
		}
		ids = append(ids, uint16(id))
	}
	return ids, nil
}

// Start launches the receiver goroutine and the cooperative main loop.
func (s *Server) Start() {
	s.wg.Add(2)
	go s.receiveLoop()
	go s.mainLoop()
}

// Stop cancels both goroutines and closes the transport.
func (s *Server) Stop() {
	s.cancel()
	s.transport.Close()
	s.wg.Wait()
}

// receiveLoop is the "single receiver thread" of spec.md §4.6/§5: it
// only pulls datagrams off the socket and appends them to the shared,
// mutex-guarded arena. It never mutates game state.
func (s *Server) receiveLoop() {
	defer s.wg.Done()
	buf := make([]byte, 65536)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.transport.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := s.transport.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if s.ctx.Err() != nil {
				return
			}
			continue
		}

		udpAddr, _ := addr.(*net.UDPAddr)
		entry := recvEntry{data: append([]byte(nil), buf[:n]...), addr: udpAddr}

		s.mu.Lock()
		s.recvQueue = append(s.recvQueue, entry)
		s.mu.Unlock()
	}
}

// mainLoop is the cooperative single-threaded simulation loop: drain the
// receive arena, apply queued commands, and dispatch snapshots at
// server_snapshot_rate.
func (s *Server) mainLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	s.lastSnapshot = time.Now()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			start := time.Now()
			ctx, span := tracer.Start(s.ctx, "sim.tick")
			s.tickCtx = ctx
			s.drainReceived()
			s.applyQueuedCommands()
			if now.Sub(s.lastSnapshot) >= s.snapshotInterval {
				s.dispatchSnapshots()
				s.lastSnapshot = now
			}
			span.End()
			s.tick++
			s.metrics.observeTick(time.Since(start))
		}
	}
}

// drainReceived acquires the arena mutex exactly once per tick, per
// spec.md §5, and dispatches every queued datagram in arrival order.
func (s *Server) drainReceived() {
	s.mu.Lock()
	batch := s.recvQueue
	s.recvQueue = nil
	s.mu.Unlock()

	for _, entry := range batch {
		s.handleDatagram(entry.data, entry.addr)
	}
}

func (s *Server) handleDatagram(data []byte, addr *net.UDPAddr) {
	header, pkt, err := protocol.Decode(data)
	if err != nil {
		s.metrics.recordDrop("size_mismatch_or_unknown_type")
		logging.LogProtocolError(addr.String(), err, data)
		return
	}

	switch p := pkt.(type) {
	case *protocol.ClientJoin:
		s.handleJoin(p, addr)
	case *protocol.InputState:
		s.handleInputState(header.ClientID, p)
	case *protocol.AckGameStateReception:
		s.handleAck(header.ClientID, p)
	case *protocol.PredictionErrorCorrection:
		s.handlePredictionErrorCorrection(header.ClientID, p)
	default:
		s.metrics.recordDrop("unexpected_type")
	}
}

func (s *Server) handleAck(clientID uint16, pkt *protocol.AckGameStateReception) {
	if c, ok := s.clients[clientID]; ok && pkt.AcknowledgedTick == c.LastAckTick {
		c.NeedsAckPredictionError = false
	}
}

// handlePredictionErrorCorrection unlocks INPUT_STATE processing for the
// client once it has caught up after a correction (spec.md §4.6): until
// this arrives, NeedsAckPredictionError latches and every INPUT_STATE from
// that client is ignored by handleInputState.
func (s *Server) handlePredictionErrorCorrection(clientID uint16, pkt *protocol.PredictionErrorCorrection) {
	if c, ok := s.clients[clientID]; ok {
		c.NeedsAckPredictionError = false
	}
}
