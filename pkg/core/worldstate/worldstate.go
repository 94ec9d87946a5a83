/*
Package worldstate tracks per-block storage snapshots keyed by block hash.

Storage is a registry of every block hash the node has heard of together
with at most one sealed state snapshot per hash. Lookups never fail:
asking for an unknown hash starts tracking it with no storage installed.
Published snapshots are immutable and shared by reference, so readers
holding one are unaffected by anything published later. A snapshot can
be installed once per block; re-publishing identical content is a
successful no-op, while different content is rejected. When a header
source is wired and verification is enabled, the snapshot's computed
state root must match the root declared by the block's header before
the snapshot is accepted.
*/
package worldstate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cambricnet/cambric/pkg/config"
	"github.com/cambricnet/cambric/pkg/core/block"
	"github.com/cambricnet/cambric/pkg/core/state"
	"github.com/cambricnet/cambric/pkg/core/stateroot"
	"github.com/cambricnet/cambric/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	// ErrStateConflict is returned when a snapshot is published for a
	// block that already has different content installed.
	ErrStateConflict = errors.New("conflicting state already installed")
	// ErrNilStorage is returned when a nil snapshot is published.
	ErrNilStorage = errors.New("nil block storage")
	// ErrNoHeaderSource is returned by header lookups when no header
	// source is wired into the registry.
	ErrNoHeaderSource = errors.New("header source is not wired")
)

// RootCalculator computes the commitment root of a sealed snapshot.
type RootCalculator interface {
	StateRoot(*state.BlockStorage) util.Uint256
}

// Storage is the block state registry. It is safe for concurrent use.
type Storage struct {
	mut   sync.RWMutex
	index map[util.Uint256]int
	slots []*BlockState

	headers  block.HeaderSource
	rootCalc RootCalculator

	cfg        config.WorldState
	log        *zap.Logger
	stateCount atomic.Uint32
}

// BlockState is the per-block slot of the registry. Slots are created
// on first lookup and never removed, so their indexes stay stable.
type BlockState struct {
	hash    util.Uint256
	storage *state.BlockStorage
}

// Block is an accessor for the state of a single block. It is only
// valid when obtained from (*Storage).Block.
type Block struct {
	reg  *Storage
	hash util.Uint256
	idx  int
}

// NewStorage creates a registry with the given settings. A nil logger
// means no logging.
func NewStorage(cfg config.WorldState, log *zap.Logger) *Storage {
	if log == nil {
		log = zap.NewNop()
	}
	capacity := cfg.InitialBlockCapacity
	if capacity <= 0 {
		capacity = config.DefaultWorldState().InitialBlockCapacity
	}
	return &Storage{
		index:    make(map[util.Uint256]int, capacity),
		slots:    make([]*BlockState, 0, capacity),
		rootCalc: stateroot.NewCalculator(cfg.StateRootCacheSize),
		cfg:      cfg,
		log:      log,
	}
}

// Block returns the accessor for the given block hash. Unknown hashes
// become tracked with no storage installed, so Block never fails.
func (s *Storage) Block(hash util.Uint256) Block {
	s.mut.RLock()
	i, ok := s.index[hash]
	s.mut.RUnlock()
	if ok {
		return Block{reg: s, hash: hash, idx: i}
	}

	s.mut.Lock()
	i, ok = s.index[hash]
	if !ok {
		i = len(s.slots)
		s.slots = append(s.slots, &BlockState{hash: hash})
		s.index[hash] = i
	}
	tracked := len(s.slots)
	s.mut.Unlock()

	if !ok {
		s.log.Debug("tracking new block", zap.String("hash", hash.String()))
		updateTrackedBlocksMetric(tracked)
	}
	return Block{reg: s, hash: hash, idx: i}
}

// SetHeaderSource wires the source of block headers used for state
// root verification and header lookups. Passing nil unwires it.
func (s *Storage) SetHeaderSource(src block.HeaderSource) {
	s.mut.Lock()
	s.headers = src
	s.mut.Unlock()
}

// SetRootCalculator replaces the calculator used for state root
// verification. Nil calculators are ignored.
func (s *Storage) SetRootCalculator(rc RootCalculator) {
	if rc == nil {
		return
	}
	s.mut.Lock()
	s.rootCalc = rc
	s.mut.Unlock()
}

// BlockCount returns the number of tracked block hashes.
func (s *Storage) BlockCount() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return len(s.slots)
}

// StateCount returns the number of blocks with installed storage.
func (s *Storage) StateCount() uint32 {
	return s.stateCount.Load()
}

// Hash returns the block hash this accessor is bound to.
func (b Block) Hash() util.Uint256 {
	return b.hash
}

// Storage returns the snapshot installed for the block or nil if none
// has been published yet.
func (b Block) Storage() *state.BlockStorage {
	b.reg.mut.RLock()
	defer b.reg.mut.RUnlock()
	return b.reg.slots[b.idx].storage
}

// Header returns the block's header from the wired header source.
func (b Block) Header() (*block.Header, error) {
	b.reg.mut.RLock()
	src := b.reg.headers
	b.reg.mut.RUnlock()
	if src == nil {
		return nil, ErrNoHeaderSource
	}
	return src.Header(b.hash)
}

// SetStorage publishes the snapshot as the block's state. The snapshot
// is verified against the header-declared state root first when
// verification is possible, and nothing is installed on failure.
// Publishing content identical to the already installed snapshot is a
// no-op; different content fails with ErrStateConflict.
func (b Block) SetStorage(bs *state.BlockStorage) error {
	if bs == nil {
		return ErrNilStorage
	}
	s := b.reg
	if err := s.verifyRoot(b.hash, bs); err != nil {
		return err
	}

	s.mut.Lock()
	slot := s.slots[b.idx]
	prev := slot.storage
	if prev == nil {
		slot.storage = bs
		installed := s.stateCount.Inc()
		s.mut.Unlock()

		s.log.Info("block state installed",
			zap.String("hash", slot.hash.String()),
			zap.Int("keys", bs.Len()),
			zap.Int("children", len(bs.ChildNames())))
		updateInstalledStatesMetric(installed)
		return nil
	}
	s.mut.Unlock()

	if prev == bs || prev.Equal(bs) {
		s.log.Debug("identical block state re-published", zap.String("hash", b.hash.String()))
		return nil
	}
	s.log.Warn("conflicting block state rejected", zap.String("hash", b.hash.String()))
	updateStateConflictsMetric()
	return fmt.Errorf("%w for block %s", ErrStateConflict, b.hash)
}

// verifyRoot checks the snapshot against the state root declared by
// the block's header. Verification is skipped when disabled, when no
// header source is wired or when the source has no header for the
// hash; errors other than a missing header fail the publication.
func (s *Storage) verifyRoot(h util.Uint256, bs *state.BlockStorage) error {
	s.mut.RLock()
	src, calc := s.headers, s.rootCalc
	s.mut.RUnlock()
	if !s.cfg.VerifyStateRoots || src == nil {
		return nil
	}

	hdr, err := src.Header(h)
	if err != nil {
		if errors.Is(err, block.ErrHeaderNotFound) {
			s.log.Debug("no header for block, accepting state unverified",
				zap.String("hash", h.String()))
			return nil
		}
		return fmt.Errorf("unable to get header for block %s: %w", h, err)
	}
	if actual := calc.StateRoot(bs); !actual.Equals(hdr.StateRoot) {
		s.log.Warn("state root mismatch",
			zap.String("hash", h.String()),
			zap.String("expected", hdr.StateRoot.String()),
			zap.String("actual", actual.String()))
		updateRootMismatchesMetric()
		return fmt.Errorf("%w for block %s: header declares %s, content yields %s",
			stateroot.ErrRootMismatch, h, hdr.StateRoot, actual)
	}
	return nil
}
