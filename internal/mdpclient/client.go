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

// Package mdpclient is a reference Majordomo client, used by the demo
// "client" command. Like mdpworker, it is not part of the routing core:
// it speaks the client half of the protocol over a DEALER socket.
package mdpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/destiny/zmq4/v25"
	"github.com/rs/zerolog"
)

const clientHeader = "MDPC01"

// Client is a single DEALER-socket connection to a broker. It supports
// at most one outstanding request at a time; callers needing concurrency
// should use one Client per in-flight request.
type Client struct {
	socket  zmq4.Socket
	timeout time.Duration
	log     zerolog.Logger
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	Log     zerolog.Logger
}

// Connect dials a broker ROUTER socket and returns a ready Client.
func Connect(ctx context.Context, broker string, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	socket := zmq4.NewDealer(ctx)
	if err := socket.Dial(broker); err != nil {
		return nil, fmt.Errorf("dial broker %s: %w", broker, err)
	}
	return &Client{socket: socket, timeout: opts.Timeout, log: opts.Log}, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	return c.socket.Close()
}

// Request sends one request to service and blocks for its reply, or
// until ctx is cancelled or the request times out. There is no
// correlation ID beyond the client's own return address, so a Client
// must not have two Requests in flight at once.
func (c *Client) Request(ctx context.Context, service string, body [][]byte) ([][]byte, error) {
	frames := [][]byte{[]byte(""), []byte(clientHeader), []byte(service)}
	frames = append(frames, body...)
	if err := c.socket.Send(zmq4.NewMsgFrom(frames...)); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	deadline, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	replyCh := make(chan zmq4.Msg, 1)
	errCh := make(chan error, 1)
	go func() {
		msg, err := c.socket.Recv()
		if err != nil {
			errCh <- err
			return
		}
		replyCh <- msg
	}()

	select {
	case <-deadline.Done():
		return nil, fmt.Errorf("request to %s timed out: %w", service, deadline.Err())
	case err := <-errCh:
		return nil, fmt.Errorf("recv reply: %w", err)
	case msg := <-replyCh:
		return parseReply(service, msg.Frames)
	}
}

func parseReply(service string, frames [][]byte) ([][]byte, error) {
	if len(frames) < 2 {
		return nil, fmt.Errorf("short reply from broker: %d parts", len(frames))
	}
	if string(frames[1]) != clientHeader {
		return nil, fmt.Errorf("unexpected protocol header %q", frames[1])
	}
	if len(frames) < 3 {
		return nil, fmt.Errorf("reply missing service frame")
	}
	if string(frames[2]) != service {
		return nil, fmt.Errorf("reply service %q does not match request service %q", frames[2], service)
	}
	return frames[3:], nil
}
