package test

import (
	"nano-get/transport"
)

// BufferedConnTestSuite adds the checks only a [transport.BufferedConn] passes.
type BufferedConnTestSuite struct {
	ConnTestSuite
}

func (s *BufferedConnTestSuite) buffered() (c1, c2 transport.BufferedConn) {
	return s.C1.(transport.BufferedConn), s.C2.(transport.BufferedConn)
}

// Both ends fill each other's buffer at once without waiting for a reader.
func (s *BufferedConnTestSuite) TestBothWrite() {
	c1, c2 := s.buffered()
	size1, size2 := int(c1.ReadBufSize()), int(c2.ReadBufSize())

	n, err := c1.Write(make([]byte, size2))
	s.Require().NoError(err)
	s.Equal(size2, n)

	n, err = c2.Write(make([]byte, size1))
	s.Require().NoError(err)
	s.Equal(size1, n)

	n, err = c2.Read(make([]byte, size2))
	s.Require().NoError(err)
	s.Equal(size2, n)

	n, err = c1.Read(make([]byte, size1))
	s.Require().NoError(err)
	s.Equal(size1, n)
}

func (s *BufferedConnTestSuite) TestBufSizes() {
	c1, c2 := s.buffered()

	s.Equal(c1.WriteBufSize(), c2.ReadBufSize())
	s.Equal(c2.WriteBufSize(), c1.ReadBufSize())
	s.NotZero(c1.ReadBufSize())
}

// Bytes written before close are still readable, then the close shows.
func (s *BufferedConnTestSuite) TestReadAfterClose() {
	c1, c2 := s.buffered()
	size1 := int(c1.ReadBufSize())

	n, err := c2.Write(make([]byte, size1))
	s.Require().NoError(err)
	s.Require().Equal(size1, n)

	s.Require().NoError(c2.Close())

	n, err = c1.Read(make([]byte, size1))
	s.Require().NoError(err)
	s.Equal(size1, n)

	n, err = c1.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)
}
