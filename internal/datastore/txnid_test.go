package datastore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms *int64) *txnIDs {
	g := newTxnIDs()
	g.now = func() int64 { return *ms }
	return g
}

func TestTxnIDsIncreaseWithinMillisecond(t *testing.T) {
	ms := int64(1000)
	g := fixedClock(&ms)
	a, b := g.next(), g.next()
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, int64(1000), a.Time().UnixMilli())
}

func TestTxnIDsSurviveClockRegression(t *testing.T) {
	ms := int64(1000)
	g := fixedClock(&ms)
	a := g.next()
	ms = 900
	b := g.next()
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, int64(1000), b.Time().UnixMilli())
}

func TestTxnIDsSequenceOverflowMovesToNextMillisecond(t *testing.T) {
	ms := int64(2000)
	g := fixedClock(&ms)
	g.lastMs = 2000
	g.seq = math.MaxUint64
	id := g.next()
	assert.Equal(t, int64(2001), id.Time().UnixMilli())
	assert.Equal(t, "00000000000007d10000000000000000", id.String())
}

func TestCommitterAssignsIncreasingIDs(t *testing.T) {
	c := NewCommitter(func([]Op) error { return nil })
	defer c.Close()

	first := NewWriteTxn(c).Submit()
	second := NewWriteTxn(c).Submit()
	require.False(t, first.ID().IsZero())
	assert.Equal(t, -1, first.ID().Compare(second.ID()))

	c.Close()
	rejected := NewWriteTxn(c).Submit()
	assert.True(t, rejected.ID().IsZero())
	assert.ErrorIs(t, rejected.Err(), ErrClosed)
	assert.True(t, FailedFuture(ErrClosed).ID().IsZero())
}
