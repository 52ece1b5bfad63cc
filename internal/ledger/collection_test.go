package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventease/backend/internal/ledger"
	"github.com/eventease/backend/internal/metrics"
	"github.com/eventease/backend/pkg/kvstore"
)

type item struct {
	ID   string `json:"id"`
	Note string `json:"note,omitempty"`
}

// failingStore lets tests inject adapter errors.
type failingStore struct {
	mock.Mock
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := f.Called(ctx, key)
	v, _ := args.Get(0).([]byte)
	return v, args.Bool(1), args.Error(2)
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	return f.Called(ctx, key, value).Error(0)
}

func (f *failingStore) Remove(ctx context.Context, key string) error {
	return f.Called(ctx, key).Error(0)
}

func TestCollection_LoadMissingIsEmpty(t *testing.T) {
	c := ledger.NewCollection[item](kvstore.NewMemory(), "ns_items", nil, nil)

	got, err := c.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCollection_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	c := ledger.NewCollection[item](store, "ns_items", nil, nil)

	in := []item{{ID: "a"}, {ID: "b", Note: "x"}, {ID: "c"}}
	require.NoError(t, c.SaveAll(ctx, in))

	out, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCollection_MalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	m := metrics.New(prometheus.NewRegistry())
	require.NoError(t, store.Set(ctx, "ns_items", []byte("{not json")))

	c := ledger.NewCollection[item](store, "ns_items", nil, m)
	got, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeFailures.WithLabelValues("ns_items")))

	t.Run("json null", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "ns_items", []byte("null")))
		got, err := c.LoadAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestCollection_SaveNilWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	c := ledger.NewCollection[item](store, "ns_items", nil, nil)

	require.NoError(t, c.SaveAll(ctx, nil))
	raw, found, err := store.Get(ctx, "ns_items")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "[]", string(raw))
}

func TestCollection_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")
	store := &failingStore{}
	store.On("Get", mock.Anything, "ns_items").Return(nil, false, boom)
	store.On("Set", mock.Anything, "ns_items", mock.Anything).Return(boom)

	c := ledger.NewCollection[item](store, "ns_items", nil, nil)

	_, err := c.LoadAll(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.SaveAll(ctx, []item{{ID: "a"}}), boom)
	store.AssertExpectations(t)
}
