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
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// testBroker wires a Broker directly to an InmemTransport with a manually
// driven heartbeat scheduler, so tests control liveness sweeps instead of
// racing the wall clock.
func testBroker(t *testing.T) (*Broker, *InmemTransport, *manualScheduler, context.CancelFunc) {
	t.Helper()
	tr := NewInmemTransport()
	sched := newManualScheduler()

	b := &Broker{
		transport:  tr,
		scheduler:  sched,
		hbInterval: DefaultHeartbeatInterval,
		liveness:   DefaultHeartbeatLiveness,
		workers:    make(map[string]*workerRecord),
		services:   make(map[string]*serviceEntry),
		recent:     newRecentlyEvicted(0),
		stats:      Stats{StartTime: time.Now()},
		log:        zerolog.Nop(),
		snapshotCh: make(chan snapshotRequest, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = b.Run(ctx) }()

	return b, tr, sched, cancel
}

func recvWithTimeout(t *testing.T, ch chan Frames) Frames {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func clientRequest(service string, body ...string) Frames {
	f := Frames{[]byte("client-1"), {}, []byte(ClientHeader), []byte(service)}
	for _, b := range body {
		f = append(f, []byte(b))
	}
	return f
}

func workerReady(wid, service string) Frames {
	return Frames{[]byte(wid), {}, []byte(WorkerHeader), []byte(CmdReady), []byte(service)}
}

// A frame delivered through a peer's Peer() channel has already had its
// destination identity (frame[0]) stripped by SendFrames, the way a real
// ROUTER socket would present it to that peer. So a worker-bound REQUEST
// arrives as [delimiter, MDPW01, REQUEST, <envelope>], not with the wid
// frame still attached.

// TestBasicEcho exercises the single-request, single-worker round trip.
func TestBasicEcho(t *testing.T) {
	_, tr, _, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(workerReady("W", "echo"))
	tr.SendFromPeer(clientRequest("echo", "TEST"))

	req := recvWithTimeout(t, tr.Peer("W"))
	if string(req[1]) != WorkerHeader || string(req[2]) != CmdRequest {
		t.Fatalf("unexpected worker frame: %v", req)
	}
	clientRP, body := splitAddress(req[3:])
	if len(clientRP) != 1 || string(clientRP[0]) != "client-1" {
		t.Fatalf("unexpected client return path: %v", clientRP)
	}
	if len(body) != 1 || string(body[0]) != "TEST" {
		t.Fatalf("unexpected request body: %v", body)
	}

	// Worker replies, echoing the envelope back.
	reply := Frames{[]byte("W"), {}, []byte(WorkerHeader), []byte(CmdReply)}
	reply = append(reply, clientRP...)
	reply = append(reply, []byte{})
	reply = append(reply, []byte("REPLY"), []byte("TEST"))
	tr.SendFromPeer(reply)

	got := recvWithTimeout(t, tr.Peer("client-1"))
	want := Frames{{}, []byte(ClientHeader), []byte("echo"), []byte("REPLY"), []byte("TEST")}
	if !framesEqual(got, want) {
		t.Errorf("client got %v, want %v", got, want)
	}
}

// TestQueueingThenWorkerRegisters exercises a request queued before any
// worker exists, then dispatched once one registers.
func TestQueueingThenWorkerRegisters(t *testing.T) {
	b, tr, _, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(clientRequest("echo", "HELLO"))

	// Give the loop goroutine a moment to enqueue the request before a
	// worker shows up.
	time.Sleep(50 * time.Millisecond)

	snap, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range snap.Services {
		if s.Name == "echo" && s.Pending == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a pending request for echo, got %+v", snap.Services)
	}

	tr.SendFromPeer(workerReady("W", "echo"))

	req := recvWithTimeout(t, tr.Peer("W"))
	if string(req[2]) != CmdRequest {
		t.Fatalf("expected the queued request dispatched immediately, got %v", req)
	}
}

// TestWorkerDeath exercises heartbeat expiry unregistering a silent worker.
func TestWorkerDeath(t *testing.T) {
	b, tr, sched, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(workerReady("W", "echo"))
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < DefaultHeartbeatLiveness; i++ {
		sched.Fire()
		time.Sleep(10 * time.Millisecond)
	}

	snap, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Stats.Workers != 0 {
		t.Errorf("expected worker to be unregistered after %d silent sweeps, got %d workers", DefaultHeartbeatLiveness, snap.Stats.Workers)
	}
}

// TestUnknownService exercises a request for a service with no workers ever registered.
func TestUnknownService(t *testing.T) {
	_, tr, _, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(clientRequest("nosuch", "X"))

	select {
	case f := <-tr.Peer("client-1"):
		t.Fatalf("expected no reply for unknown service, got %v", f)
	case <-time.After(100 * time.Millisecond):
		// expected: the request is queued on a newly created service
		// that has no worker, so nothing reaches the client
	}
}

// TestSequentialBusy exercises fairness ordering: queued requests are
// served in arrival order as workers free up.
func TestSequentialBusy(t *testing.T) {
	_, tr, _, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(workerReady("W", "echo"))
	tr.SendFromPeer(clientRequest("echo", "1"))

	req := recvWithTimeout(t, tr.Peer("W"))
	clientRP, body := splitAddress(req[3:])
	if string(body[0]) != "1" {
		t.Fatalf("expected request 1 dispatched first, got %v", body)
	}

	// Two more requests arrive while the worker is busy with request 1.
	tr.SendFromPeer(clientRequest("echo", "2"))
	tr.SendFromPeer(clientRequest("echo", "3"))
	time.Sleep(20 * time.Millisecond)

	reply := Frames{[]byte("W"), {}, []byte(WorkerHeader), []byte(CmdReply)}
	reply = append(reply, clientRP...)
	reply = append(reply, []byte{}, []byte("ECHO"), []byte("1"))
	tr.SendFromPeer(reply)
	recvWithTimeout(t, tr.Peer("client-1")) // reply to request 1

	req = recvWithTimeout(t, tr.Peer("W")) // worker immediately gets request 2
	_, body = splitAddress(req[3:])
	if string(body[0]) != "2" {
		t.Fatalf("expected request 2 dispatched next (FIFO), got %v", body)
	}
}

func TestReadyIsIdempotent(t *testing.T) {
	b, tr, _, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(workerReady("W", "echo"))
	tr.SendFromPeer(workerReady("W", "echo"))
	time.Sleep(20 * time.Millisecond)

	snap, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range snap.Services {
		if s.Name == "echo" && s.Available != 1 {
			t.Errorf("expected exactly one copy of W in available, got %d", s.Available)
		}
	}
}

func TestHeartbeatKeepsWorkerAlive(t *testing.T) {
	b, tr, sched, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(workerReady("W", "echo"))
	time.Sleep(20 * time.Millisecond)

	hb := Frames{[]byte("W"), {}, []byte(WorkerHeader), []byte(CmdHeartbeat)}
	for i := 0; i < DefaultHeartbeatLiveness*3; i++ {
		tr.SendFromPeer(hb)
		sched.Fire()
		time.Sleep(5 * time.Millisecond)
	}

	snap, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Stats.Workers != 1 {
		t.Errorf("expected worker to survive repeated heartbeats, got %d workers", snap.Stats.Workers)
	}
}

func TestWorkerDisconnectRemovesFromAvailable(t *testing.T) {
	b, tr, _, cancel := testBroker(t)
	defer cancel()

	tr.SendFromPeer(workerReady("W", "echo"))
	time.Sleep(20 * time.Millisecond)

	disc := Frames{[]byte("W"), {}, []byte(WorkerHeader), []byte(CmdDisconnect)}
	tr.SendFromPeer(disc)
	time.Sleep(20 * time.Millisecond)

	snap, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Stats.Workers != 0 {
		t.Errorf("expected worker removed after DISCONNECT, got %d", snap.Stats.Workers)
	}
	for _, s := range snap.Services {
		if s.Name == "echo" && s.Available != 0 {
			t.Errorf("expected W removed from echo's available queue, got %d available", s.Available)
		}
	}
}

func TestReplyFromUnknownWorkerDropped(t *testing.T) {
	_, tr, _, cancel := testBroker(t)
	defer cancel()

	reply := Frames{[]byte("ghost"), {}, []byte(WorkerHeader), []byte(CmdReply), []byte("client-1"), {}, []byte("X")}
	tr.SendFromPeer(reply)

	select {
	case f := <-tr.Peer("client-1"):
		t.Fatalf("expected no forwarded reply from unknown worker, got %v", f)
	case <-time.After(100 * time.Millisecond):
	}
}
