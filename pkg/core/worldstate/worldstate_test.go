package worldstate

import (
	"errors"
	"sync"
	"testing"

	"github.com/cambricnet/cambric/internal/random"
	"github.com/cambricnet/cambric/pkg/config"
	"github.com/cambricnet/cambric/pkg/core/block"
	"github.com/cambricnet/cambric/pkg/core/state"
	"github.com/cambricnet/cambric/pkg/core/stateroot"
	"github.com/cambricnet/cambric/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStorage(t *testing.T) *Storage {
	cfg := config.DefaultWorldState()
	cfg.VerifyStateRoots = false
	return NewStorage(cfg, zaptest.NewLogger(t))
}

func newCodeStorage() *state.BlockStorage {
	b := state.NewBuilder()
	b.Put([]byte(state.CodeKey), []byte{0xAA, 0xBB})
	return b.Seal()
}

func TestBlockLookupIsTotal(t *testing.T) {
	s := newTestStorage(t)
	require.Equal(t, 0, s.BlockCount())

	h1 := random.Uint256()
	blk := s.Block(h1)
	assert.Equal(t, h1, blk.Hash())
	require.Nil(t, blk.Storage())
	require.Equal(t, 1, s.BlockCount())
	require.EqualValues(t, 0, s.StateCount())

	// Repeated lookups reuse the slot.
	require.Nil(t, s.Block(h1).Storage())
	require.Equal(t, 1, s.BlockCount())

	require.Nil(t, s.Block(random.Uint256()).Storage())
	require.Equal(t, 2, s.BlockCount())
}

func TestSetStorageNil(t *testing.T) {
	s := newTestStorage(t)
	blk := s.Block(random.Uint256())

	require.ErrorIs(t, blk.SetStorage(nil), ErrNilStorage)
	require.Nil(t, blk.Storage())
	require.EqualValues(t, 0, s.StateCount())
}

func TestPublishAndRead(t *testing.T) {
	s := newTestStorage(t)
	h1, h2 := random.Uint256(), random.Uint256()

	require.NoError(t, s.Block(h1).SetStorage(newCodeStorage()))

	bs := s.Block(h1).Storage()
	require.NotNil(t, bs)
	code, ok := bs.Code()
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB}, code)

	// A distinct, never-published hash stays empty.
	require.Nil(t, s.Block(h2).Storage())
	require.EqualValues(t, 1, s.StateCount())
}

func TestRepublishIdenticalContent(t *testing.T) {
	s := newTestStorage(t)
	blk := s.Block(random.Uint256())

	bs := newCodeStorage()
	require.NoError(t, blk.SetStorage(bs))

	// Same snapshot again.
	require.NoError(t, blk.SetStorage(bs))
	// Content-equal snapshot built independently.
	require.NoError(t, blk.SetStorage(newCodeStorage()))

	// The first published snapshot stays installed.
	require.Same(t, bs, blk.Storage())
	require.EqualValues(t, 1, s.StateCount())
}

func TestRepublishConflictingContent(t *testing.T) {
	s := newTestStorage(t)
	blk := s.Block(random.Uint256())

	bs := newCodeStorage()
	require.NoError(t, blk.SetStorage(bs))

	other := state.NewBuilder()
	other.Put([]byte(state.CodeKey), []byte{0xCC})
	err := blk.SetStorage(other.Seal())
	require.ErrorIs(t, err, ErrStateConflict)

	// The registry is untouched and still accepts identical content.
	require.Same(t, bs, blk.Storage())
	require.EqualValues(t, 1, s.StateCount())
	require.NoError(t, blk.SetStorage(bs))
}

// Deriving the next block's state from the parent's snapshot must not
// disturb the parent.
func TestDerivedStateIsolation(t *testing.T) {
	s := newTestStorage(t)
	h1, h2 := random.Uint256(), random.Uint256()

	b := state.NewBuilder()
	b.Put([]byte("balance:alice"), []byte{100})
	b.PutChild([]byte("module"), []byte("flag"), []byte{1})
	parent := b.Seal()
	require.NoError(t, s.Block(h1).SetStorage(parent))

	derived := state.NewBuilder()
	s.Block(h1).Storage().Seek(func(k, v []byte) bool {
		derived.Put(k, v)
		return true
	})
	for _, name := range parent.ChildNames() {
		parent.Child(name).Seek(func(k, v []byte) bool {
			derived.PutChild(name, k, v)
			return true
		})
	}
	derived.Put([]byte("balance:alice"), []byte{50})
	derived.Put([]byte("balance:bob"), []byte{50})
	require.NoError(t, s.Block(h2).SetStorage(derived.Seal()))

	v, ok := s.Block(h1).Storage().Value([]byte("balance:alice"))
	require.True(t, ok)
	assert.Equal(t, []byte{100}, v)
	_, ok = s.Block(h1).Storage().Value([]byte("balance:bob"))
	require.False(t, ok)

	v, ok = s.Block(h2).Storage().Value([]byte("balance:alice"))
	require.True(t, ok)
	assert.Equal(t, []byte{50}, v)
	v, ok = s.Block(h2).Storage().ChildValue([]byte("module"), []byte("flag"))
	require.True(t, ok)
	assert.Equal(t, []byte{1}, v)
}

func TestHeader(t *testing.T) {
	s := newTestStorage(t)
	h := random.Uint256()

	_, err := s.Block(h).Header()
	require.ErrorIs(t, err, ErrNoHeaderSource)

	headers := block.NewHeaderMap()
	s.SetHeaderSource(headers)

	_, err = s.Block(h).Header()
	require.ErrorIs(t, err, block.ErrHeaderNotFound)

	headers.Add(h, &block.Header{Number: 42})
	hdr, err := s.Block(h).Header()
	require.NoError(t, err)
	require.EqualValues(t, 42, hdr.Number)
}

func TestVerifyStateRoot(t *testing.T) {
	cfg := config.DefaultWorldState()
	require.True(t, cfg.VerifyStateRoots)
	s := NewStorage(cfg, zaptest.NewLogger(t))

	headers := block.NewHeaderMap()
	s.SetHeaderSource(headers)
	calc := stateroot.NewCalculator(0)

	bs := newCodeStorage()

	// Header present with the matching root.
	h1 := random.Uint256()
	headers.Add(h1, &block.Header{StateRoot: calc.StateRoot(bs)})
	require.NoError(t, s.Block(h1).SetStorage(bs))

	// Header present with a different root.
	h2 := random.Uint256()
	headers.Add(h2, &block.Header{StateRoot: random.Uint256()})
	err := s.Block(h2).SetStorage(bs)
	require.ErrorIs(t, err, stateroot.ErrRootMismatch)
	require.Nil(t, s.Block(h2).Storage())

	// No header for the hash, the install happens unverified.
	require.NoError(t, s.Block(random.Uint256()).SetStorage(bs))

	require.EqualValues(t, 2, s.StateCount())
}

func TestVerifyStateRootDisabled(t *testing.T) {
	cfg := config.DefaultWorldState()
	cfg.VerifyStateRoots = false
	s := NewStorage(cfg, zaptest.NewLogger(t))

	headers := block.NewHeaderMap()
	s.SetHeaderSource(headers)

	h := random.Uint256()
	headers.Add(h, &block.Header{StateRoot: random.Uint256()})
	require.NoError(t, s.Block(h).SetStorage(newCodeStorage()))
}

type failingHeaderSource struct {
	err error
}

func (f failingHeaderSource) Header(_ util.Uint256) (*block.Header, error) {
	return nil, f.err
}

func TestVerifyStateRootSourceFailure(t *testing.T) {
	s := NewStorage(config.DefaultWorldState(), zaptest.NewLogger(t))

	srcErr := errors.New("backing store gone")
	s.SetHeaderSource(failingHeaderSource{err: srcErr})

	blk := s.Block(random.Uint256())
	require.ErrorIs(t, blk.SetStorage(newCodeStorage()), srcErr)
	require.Nil(t, blk.Storage())
}

type fixedCalc struct {
	root util.Uint256
}

func (f fixedCalc) StateRoot(_ *state.BlockStorage) util.Uint256 {
	return f.root
}

func TestSetRootCalculator(t *testing.T) {
	s := NewStorage(config.DefaultWorldState(), zaptest.NewLogger(t))

	root := random.Uint256()
	s.SetRootCalculator(fixedCalc{root: root})
	s.SetRootCalculator(nil) // Ignored.

	headers := block.NewHeaderMap()
	s.SetHeaderSource(headers)

	h := random.Uint256()
	headers.Add(h, &block.Header{StateRoot: root})
	require.NoError(t, s.Block(h).SetStorage(newCodeStorage()))

	h2 := random.Uint256()
	headers.Add(h2, &block.Header{StateRoot: random.Uint256()})
	require.ErrorIs(t, s.Block(h2).SetStorage(newCodeStorage()), stateroot.ErrRootMismatch)
}

func TestConcurrentPublishAndRead(t *testing.T) {
	s := newTestStorage(t)
	h := random.Uint256()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Block(h).SetStorage(newCodeStorage()))
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if bs := s.Block(h).Storage(); bs != nil {
					_, ok := bs.Code()
					assert.True(t, ok)
				}
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, s.StateCount())
	require.True(t, s.Block(h).Storage().Equal(newCodeStorage()))
}
