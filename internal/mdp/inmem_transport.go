// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mdp

import (
	"context"
	"errors"
)

// InmemTransport is a Transport implementation backed by Go channels. It
// stands in for a ROUTER socket in tests and in-process demos: each
// simulated peer (client or worker) gets its own inbound channel keyed by
// the identity frame it uses as rp[0]/msg[0]. SendFrames delivers each
// frame list the broker sends to the channel named by its frame[0] and
// strips that identity frame, as a real ROUTER socket does.
type InmemTransport struct {
	toBroker chan Frames
	fromBroker map[string]chan Frames
	closed   chan struct{}
}

// NewInmemTransport constructs an empty in-memory transport.
func NewInmemTransport() *InmemTransport {
	return &InmemTransport{
		toBroker:   make(chan Frames, 256),
		fromBroker: make(map[string]chan Frames),
		closed:     make(chan struct{}),
	}
}

// Peer returns (creating if necessary) the inbound channel for a given
// identity, i.e. the channel a simulated client or worker reads its
// broker-originated frames from.
func (t *InmemTransport) Peer(identity string) chan Frames {
	ch, ok := t.fromBroker[identity]
	if !ok {
		ch = make(chan Frames, 256)
		t.fromBroker[identity] = ch
	}
	return ch
}

// SendFromPeer simulates a peer sending a frame list to the broker, with
// frames[0] already set to the peer's identity (as a ROUTER socket would
// present it).
func (t *InmemTransport) SendFromPeer(frames Frames) {
	t.toBroker <- frames
}

// RecvFrames implements Transport: the broker side receives whatever
// peers have sent.
func (t *InmemTransport) RecvFrames(ctx context.Context) (Frames, error) {
	select {
	case f := <-t.toBroker:
		return f, nil
	case <-t.closed:
		return nil, errors.New("transport closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendFrames implements Transport: the broker side routes by frames[0],
// the destination identity, exactly like a ROUTER socket strips it.
func (t *InmemTransport) SendFrames(ctx context.Context, frames Frames) error {
	if len(frames) == 0 {
		return errors.New("empty frame list")
	}
	identity := string(frames[0])
	ch := t.Peer(identity)
	rest := frames[1:]
	select {
	case ch <- rest:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the transport.
func (t *InmemTransport) Close() error {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
	return nil
}
