package session

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopapp/internal/domain"
	"shopapp/internal/pipeline"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(ttl time.Duration) (*Registry, *clock) {
	c := &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	r := NewRegistry(ttl)
	r.now = c.now
	return r, c
}

func TestEnsureReturnsSameSession(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	created := 0
	r.OnCreate = append(r.OnCreate, func(*Session) { created++ })

	a := r.Ensure("sid-1")
	a.Cart.AddItem(domain.Product{ID: 1, Price: decimal.NewFromInt(3)})
	b := r.Ensure("sid-1")

	assert.Same(t, a, b)
	assert.Equal(t, 1, b.Cart.ItemCount())
	assert.Equal(t, 1, created)

	other := r.Ensure("sid-2")
	assert.NotSame(t, a, other)
	assert.Equal(t, 0, other.Cart.ItemCount())
	assert.Equal(t, 2, r.Len())
}

func TestGetDoesNotCreate(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	_, ok := r.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestSweepDropsIdleSessions(t *testing.T) {
	r, c := newTestRegistry(10 * time.Minute)
	var counts []int
	r.OnCount = func(n int) { counts = append(counts, n) }

	r.Ensure("old")
	c.advance(6 * time.Minute)
	r.Ensure("fresh")
	c.advance(5 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	_, ok := r.Get("old")
	assert.False(t, ok)
	_, ok = r.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 1}, counts)
}

func TestAccessKeepsSessionAlive(t *testing.T) {
	r, c := newTestRegistry(10 * time.Minute)
	r.Ensure("sid")
	for i := 0; i < 3; i++ {
		c.advance(8 * time.Minute)
		r.Ensure("sid")
	}
	assert.Equal(t, 0, r.Sweep())
}

func TestListingStatePerSession(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	s := r.Ensure("sid")

	st := s.UpdateListing("", pipeline.SortNone, 2)
	assert.Equal(t, 2, st.Page)

	st = s.UpdateListing("electronics", pipeline.SortNone, 0)
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, "electronics", s.Listing().Category)

	assert.True(t, s.CommitPage(st, 3))
	assert.Equal(t, 3, s.Listing().Page)
	assert.Equal(t, pipeline.NewState().Page, r.Ensure("other").Listing().Page)
}

func TestCommitPageKeepsNewerSelection(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	s := r.Ensure("sid")

	// request A reads its state, then request B changes the selection
	// before A has clamped and committed its page
	a := s.UpdateListing("jewelery", pipeline.SortNone, 5)
	b := s.UpdateListing("electronics", pipeline.SortPriceAsc, 2)

	assert.False(t, s.CommitPage(a, 1))
	got := s.Listing()
	assert.Equal(t, "electronics", got.Category)
	assert.Equal(t, pipeline.SortPriceAsc, got.Sort)
	assert.Equal(t, b.Page, got.Page)

	assert.True(t, s.CommitPage(b, 1))
	assert.Equal(t, 1, s.Listing().Page)
	assert.Equal(t, "electronics", s.Listing().Category)
}

func TestRunStopsWithContext(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Run did not return after cancel")
	}
}
