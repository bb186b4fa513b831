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

import "time"

// tickerScheduler is the production Scheduler, a thin wrapper over
// time.Ticker. One instance drives the broker's liveness sweep; this is
// deliberately not one goroutine/timer per worker.
type tickerScheduler struct {
	ticker *time.Ticker
	ch     chan struct{}
	done   chan struct{}
}

// newTickerScheduler starts a periodic scheduler with the given period.
func newTickerScheduler(period time.Duration) *tickerScheduler {
	s := &tickerScheduler{
		ticker: time.NewTicker(period),
		ch:     make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *tickerScheduler) pump() {
	for {
		select {
		case <-s.ticker.C:
			select {
			case s.ch <- struct{}{}:
			default:
			}
		case <-s.done:
			return
		}
	}
}

func (s *tickerScheduler) Tick() <-chan struct{} { return s.ch }

func (s *tickerScheduler) Stop() {
	s.ticker.Stop()
	close(s.done)
}

// manualScheduler is a test double: Fire() delivers one tick synchronously.
type manualScheduler struct {
	ch chan struct{}
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{ch: make(chan struct{}, 1)}
}

func (s *manualScheduler) Tick() <-chan struct{} { return s.ch }
func (s *manualScheduler) Stop()                 {}
func (s *manualScheduler) Fire()                 { s.ch <- struct{}{} }
