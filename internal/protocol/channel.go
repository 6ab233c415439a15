// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrClosed is returned when sending on a closed channel.
	ErrClosed = errors.New("channel closed")
	// ErrMalformed is returned when the peer sent bytes that are not a message.
	ErrMalformed = errors.New("malformed protocol message")
)

// Channel is one end of a duplex message channel.
// Recv returns io.EOF once the peer has closed and everything it sent has been received.
type Channel interface {
	Send(ctx context.Context, m Message) error
	Recv(ctx context.Context) (Message, error)
	Close() error
}

// port is one end of an in-memory pair.
type port struct {
	in         <-chan Message
	out        chan<- Message
	closed     chan struct{}
	peerClosed <-chan struct{}
	once       *sync.Once
}

// NewPortPair returns two connected in-memory channel ends.
// Sends are unbuffered: Send returns once the peer has received the message.
func NewPortPair() (Channel, Channel) {
	ab := make(chan Message)
	ba := make(chan Message)
	aClosed := make(chan struct{})
	bClosed := make(chan struct{})

	a := &port{in: ba, out: ab, closed: aClosed, peerClosed: bClosed, once: &sync.Once{}}
	b := &port{in: ab, out: ba, closed: bClosed, peerClosed: aClosed, once: &sync.Once{}}

	return a, b
}

func (p *port) Send(ctx context.Context, m Message) error {
	select {
	case <-p.closed:
		return ErrClosed
	case <-p.peerClosed:
		return ErrClosed
	default:
	}

	select {
	case p.out <- m:
		return nil
	case <-p.closed:
		return ErrClosed
	case <-p.peerClosed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *port) Recv(ctx context.Context) (Message, error) {
	select {
	case m := <-p.in:
		return m, nil
	case <-p.peerClosed:
		select {
		case m := <-p.in:
			return m, nil
		default:
			return Message{}, io.EOF
		}
	case <-p.closed:
		return Message{}, io.EOF
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (p *port) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// Stream is a Channel speaking newline delimited JSON over a reader and a writer,
// typically the stdin and stdout pipes of a worker process.
// Recv is not interruptible by ctx once it is blocked reading; closing the
// underlying reader (or killing the process) unblocks it.
type Stream struct {
	dec *json.Decoder
	rm  sync.Mutex

	w  io.WriteCloser
	wm sync.Mutex
	en *json.Encoder

	closeOnce sync.Once
	closeErr  error
}

// NewStream creates a Stream reading from r and writing to w.
func NewStream(r io.Reader, w io.WriteCloser) *Stream {
	return &Stream{
		dec: json.NewDecoder(r),
		w:   w,
		en:  json.NewEncoder(w),
	}
}

// Send writes m as one JSON line.
func (s *Stream) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.wm.Lock()
	defer s.wm.Unlock()

	if err := s.en.Encode(m); err != nil {
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, errStreamClosed) {
			return ErrClosed
		}

		return fmt.Errorf("sending %s message: %w", m.Type, err)
	}

	return nil
}

// Recv reads the next message.
func (s *Stream) Recv(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.rm.Lock()
	defer s.rm.Unlock()

	var m Message
	if err := s.dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, io.EOF
		}

		var (
			syn *json.SyntaxError
			typ *json.UnmarshalTypeError
		)

		if errors.As(err, &syn) || errors.As(err, &typ) {
			return Message{}, errors.Join(ErrMalformed, err)
		}

		return Message{}, err
	}

	return m, nil
}

var errStreamClosed = errors.New("stream closed")

// Close closes the writer, which the peer sees as end of input.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.wm.Lock()
		defer s.wm.Unlock()

		s.closeErr = s.w.Close()
		s.en = json.NewEncoder(errWriter{})
	})

	return s.closeErr
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errStreamClosed }
