package kvstore_test

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/eventease/backend/pkg/kvstore"
)

// storeSuite runs the same behaviour checks against every Store implementation.
type storeSuite struct {
	suite.Suite
	newStore func() kvstore.Store
	store    kvstore.Store
	ctx      context.Context
}

func (s *storeSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *storeSuite) TestGetMissing() {
	v, found, err := s.store.Get(s.ctx, "missing")
	s.Require().NoError(err)
	s.False(found)
	s.Nil(v)
}

func (s *storeSuite) TestSetOverwrites() {
	s.Require().NoError(s.store.Set(s.ctx, "k", []byte("first")))
	s.Require().NoError(s.store.Set(s.ctx, "k", []byte("second")))

	v, found, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("second", string(v))
}

func (s *storeSuite) TestRemove() {
	s.Require().NoError(s.store.Set(s.ctx, "k", []byte("v")))
	s.Require().NoError(s.store.Remove(s.ctx, "k"))

	_, found, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.False(found)

	s.Run("removing a missing key is not an error", func() {
		s.NoError(s.store.Remove(s.ctx, "never-set"))
	})
}

func (s *storeSuite) TestKeysAreIndependent() {
	s.Require().NoError(s.store.Set(s.ctx, "a", []byte("1")))
	s.Require().NoError(s.store.Set(s.ctx, "b", []byte("2")))
	s.Require().NoError(s.store.Remove(s.ctx, "a"))

	v, found, err := s.store.Get(s.ctx, "b")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("2", string(v))
}
