package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/eventease/backend/pkg/kvstore"
)

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &storeSuite{newStore: func() kvstore.Store { return kvstore.NewMemory() }})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := kvstore.NewMemory()

	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))

	out[1] = 'y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}
