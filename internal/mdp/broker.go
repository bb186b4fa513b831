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
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Broker.
type Options struct {
	HeartbeatInterval time.Duration
	HeartbeatLiveness int
	Logger            zerolog.Logger
	// RecentEvictedSize bounds the diagnostics cache of recently
	// unregistered WIDs (internal/mdp/recent.go). Zero uses a default.
	RecentEvictedSize int
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.HeartbeatLiveness <= 0 {
		o.HeartbeatLiveness = DefaultHeartbeatLiveness
	}
	return o
}

// Stats is a point-in-time copy of broker counters, safe to read from any
// goroutine since Snapshot delivers it via channel round-trip with the
// single event-loop goroutine that owns the live values.
type Stats struct {
	StartTime          time.Time
	Requests           int64
	Replies            int64
	HeartbeatsSent     int64
	HeartbeatsReceived int64
	Services           int
	Workers            int
}

// ServiceSnapshot describes one service's queue depths at the moment of
// the snapshot.
type ServiceSnapshot struct {
	Name      string
	Available int
	Pending   int
}

// WorkerSnapshot describes one worker's liveness state at the moment of
// the snapshot.
type WorkerSnapshot struct {
	WID        string
	Service    string
	Liveness   int
	LastHBTime time.Time
}

// Snapshot is the full point-in-time view the admin API polls.
type Snapshot struct {
	Stats    Stats
	Services []ServiceSnapshot
	Workers  []WorkerSnapshot
}

type snapshotRequest struct {
	reply chan Snapshot
}

// Broker is the Majordomo routing engine plus its heartbeat scheduler.
// All of its mutable state — workers, services — is touched only by the
// goroutine running Run; every other exported method communicates with
// that goroutine over a channel, never by taking a lock on live state.
type Broker struct {
	transport Transport
	scheduler Scheduler

	hbInterval time.Duration
	liveness   int

	workers  map[string]*workerRecord
	services map[string]*serviceEntry
	recent   *recentlyEvicted

	stats Stats
	log   zerolog.Logger

	snapshotCh   chan snapshotRequest
	disconnectCh chan string
}

// NewBroker constructs a Broker. Call Run to start its event loop.
func NewBroker(transport Transport, opts Options) *Broker {
	opts = opts.withDefaults()
	return &Broker{
		transport:    transport,
		scheduler:    newTickerScheduler(opts.HeartbeatInterval),
		hbInterval:   opts.HeartbeatInterval,
		liveness:     opts.HeartbeatLiveness,
		workers:      make(map[string]*workerRecord),
		services:     make(map[string]*serviceEntry),
		recent:       newRecentlyEvicted(opts.RecentEvictedSize),
		stats:        Stats{StartTime: time.Now()},
		log:          opts.Logger,
		snapshotCh:   make(chan snapshotRequest, 1),
		disconnectCh: make(chan string, 8),
	}
}

// Run drives the broker's single-threaded event loop until ctx is
// cancelled. It is the only goroutine that ever mutates workers/services.
func (b *Broker) Run(ctx context.Context) error {
	frameCh := make(chan Frames, 256)
	errCh := make(chan error, 8)

	go b.readLoop(ctx, frameCh, errCh)

	for {
		select {
		case <-ctx.Done():
			b.scheduler.Stop()
			return ctx.Err()

		case frames := <-frameCh:
			b.dispatch(frames)

		case <-b.scheduler.Tick():
			b.heartbeatSweep(ctx)

		case req := <-b.snapshotCh:
			req.reply <- b.buildSnapshot()

		case wid := <-b.disconnectCh:
			b.disconnect(wid)

		case err := <-errCh:
			b.log.Warn().Err(err).Msg("transport receive error")
		}
	}
}

func (b *Broker) readLoop(ctx context.Context, frameCh chan<- Frames, errCh chan<- error) {
	for {
		frames, err := b.transport.RecvFrames(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case errCh <- err:
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case frameCh <- frames:
		case <-ctx.Done():
			return
		}
	}
}

// Snapshot returns a point-in-time copy of broker state, safe to call
// from any goroutine (used by the admin HTTP API).
func (b *Broker) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotRequest{reply: make(chan Snapshot, 1)}
	select {
	case b.snapshotCh <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Disconnect sends a worker a DISCONNECT command and then unregisters
// it, as onWorker does for an unknown worker command. Safe to call
// from any goroutine (used by the admin API's worker-kick endpoint); the
// actual state mutation still only ever runs on the event-loop goroutine.
func (b *Broker) Disconnect(ctx context.Context, wid string) error {
	select {
	case b.disconnectCh <- wid:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broker) buildSnapshot() Snapshot {
	stats := b.stats
	stats.Services = len(b.services)
	stats.Workers = len(b.workers)

	services := make([]ServiceSnapshot, 0, len(b.services))
	for name, s := range b.services {
		services = append(services, ServiceSnapshot{Name: name, Available: s.len(), Pending: len(s.pending)})
	}

	workers := make([]WorkerSnapshot, 0, len(b.workers))
	for wid, w := range b.workers {
		workers = append(workers, WorkerSnapshot{WID: wid, Service: w.service, Liveness: w.liveness, LastHBTime: w.lastHBTime})
	}

	return Snapshot{Stats: stats, Services: services, Workers: workers}
}

// serviceRequire lazily creates a service entry on first need. Services
// are never garbage-collected for the broker's lifetime; an operator
// restart is the only way to clear a stale, worker-less service.
func (b *Broker) serviceRequire(name string) *serviceEntry {
	s, ok := b.services[name]
	if !ok {
		s = newServiceEntry(name)
		b.services[name] = s
	}
	return s
}

// onClient handles one client request. msg[0] is the target service
// name, msg[1:] is the request body.
func (b *Broker) onClient(rp Frames, msg Frames) {
	if len(msg) == 0 {
		b.log.Debug().Msg("dropping empty client message")
		return
	}
	serviceName := string(msg[0])
	body := msg[1:]

	service := b.serviceRequire(serviceName)

	if wid := service.get(); wid != "" {
		b.stats.Requests++
		b.dispatchToWorker(wid, rp, body)
		return
	}

	service.enqueuePending(&pendingRequest{
		protocol:   ClientHeader,
		returnPath: rp,
		msg:        msg,
	})
	b.log.Debug().Str("service", serviceName).Msg("no worker available, queued request")
}

// dispatchToWorker sends [w.wid, "", "MDPW01", REQUEST, ...rp, "", ...body]
// on the backend. The client return path travels inside the envelope so
// the worker's REPLY, which echoes it back, lets the broker reconstruct
// the original client address.
func (b *Broker) dispatchToWorker(wid string, rp Frames, body Frames) {
	envelope := make(Frames, 0, len(rp)+1+len(body))
	envelope = append(envelope, rp...)
	envelope = append(envelope, []byte{})
	envelope = append(envelope, body...)

	frame := buildWorkerFrame(wid, CmdRequest, envelope)
	if err := b.transport.SendFrames(context.Background(), frame); err != nil {
		b.log.Error().Err(err).Str("worker_id", wid).Msg("failed to dispatch request to worker")
	}
}

// onWorker handles one worker frame list. rp[0] is the worker's WID;
// msg[0] is the command byte.
func (b *Broker) onWorker(rp Frames, msg Frames) {
	if len(rp) == 0 || len(msg) == 0 {
		b.log.Debug().Msg("dropping malformed worker message")
		return
	}
	wid := string(rp[0])
	command := string(msg[0])
	body := msg[1:]

	// Any inbound frame from a known worker refreshes liveness, not only
	// heartbeats: a busy worker replying on time is proof enough it's alive.
	if w, ok := b.workers[wid]; ok {
		w.touch(time.Now())
	}

	switch command {
	case CmdReady:
		if len(body) == 0 {
			b.log.Warn().Str("worker_id", wid).Msg("READY missing service name")
			return
		}
		b.registerWorker(wid, string(body[0]))

	case CmdReply:
		b.onReply(wid, body)

	case CmdHeartbeat:
		if w, ok := b.workers[wid]; ok && w.alive() {
			b.stats.HeartbeatsReceived++
		} else if !b.recent.wasRecent(wid) {
			b.log.Debug().Str("worker_id", wid).Msg("heartbeat from unknown worker, dropping")
		}

	case CmdDisconnect:
		b.unregisterWorker(wid)

	default:
		b.log.Warn().Str("worker_id", wid).Str("command", command).Msg("unknown worker command, disconnecting")
		if _, ok := b.workers[wid]; ok {
			b.disconnect(wid)
		}
	}
}

// registerWorker is idempotent: a second READY from an already-known WID
// is a no-op (besides the liveness refresh onWorker already applied
// above).
func (b *Broker) registerWorker(wid, service string) {
	if _, exists := b.workers[wid]; exists {
		return
	}
	w := newWorkerRecord(wid, service, b.liveness)
	b.workers[wid] = w
	se := b.serviceRequire(service)
	se.put(wid)

	b.log.Info().Str("worker_id", wid).Str("service", service).Msg("worker registered")

	// Hand the newly available worker the oldest queued request, if any,
	// in the same event-loop turn it registered in.
	if req := se.dequeuePending(); req != nil {
		b.onClient(req.returnPath, req.msg)
	}
}

func (b *Broker) onReply(wid string, msg Frames) {
	w, ok := b.workers[wid]
	if !ok {
		b.log.Debug().Str("worker_id", wid).Msg("reply from unknown worker, dropping")
		return
	}
	service := w.service

	clientRP, body := splitAddress(msg)
	frame := buildClientFrame(clientRP, service, body)
	if err := b.transport.SendFrames(context.Background(), frame); err != nil {
		b.log.Error().Err(err).Str("worker_id", wid).Msg("failed to forward reply to client")
	}
	b.stats.Replies++

	se := b.serviceRequire(service)
	se.put(wid)

	// Hand the just-freed worker the next queued request in the same
	// event-loop turn.
	if req := se.dequeuePending(); req != nil {
		b.onClient(req.returnPath, req.msg)
	}
}

// unregisterWorker drops wid from its service. Any in-flight request
// previously dispatched to wid is silently lost; the client will observe
// only a timeout.
func (b *Broker) unregisterWorker(wid string) {
	w, ok := b.workers[wid]
	if !ok {
		return
	}
	if se, ok := b.services[w.service]; ok {
		se.remove(wid)
	}
	delete(b.workers, wid)
	b.recent.mark(wid)

	b.log.Info().Str("worker_id", wid).Str("service", w.service).Msg("worker unregistered")
}

// disconnect tells the worker to go away, then forgets it.
func (b *Broker) disconnect(wid string) {
	frame := buildWorkerFrame(wid, CmdDisconnect)
	if err := b.transport.SendFrames(context.Background(), frame); err != nil {
		b.log.Error().Err(err).Str("worker_id", wid).Msg("failed to send disconnect")
	}
	b.unregisterWorker(wid)
}

// heartbeatSweep decrements liveness for every known worker, unregisters
// anything that has expired, then emits an outbound heartbeat to
// everyone still alive.
func (b *Broker) heartbeatSweep(ctx context.Context) {
	for _, w := range b.workers {
		w.tickIn()
	}

	var dead []string
	for wid, w := range b.workers {
		if !w.alive() {
			dead = append(dead, wid)
		}
	}
	for _, wid := range dead {
		b.log.Warn().Str("worker_id", wid).Msg("worker liveness expired")
		b.unregisterWorker(wid)
	}

	for wid, w := range b.workers {
		if err := w.sendHeartbeat(ctx, b.transport); err != nil {
			b.log.Error().Err(err).Str("worker_id", wid).Msg("failed to send heartbeat")
			continue
		}
		b.stats.HeartbeatsSent++
	}
}
