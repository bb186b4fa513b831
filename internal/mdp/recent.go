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
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// recentlyEvicted remembers WIDs the broker has just unregistered, so a
// HEARTBEAT that was already in flight when the worker was removed is
// dropped without a log line, while a HEARTBEAT from any other unknown
// WID is logged at Debug. It
// never influences a routing decision: HEARTBEAT/REPLY from an unknown
// WID is still dropped regardless of what this cache holds.
type recentlyEvicted struct {
	cache *lru.Cache[string, time.Time]
}

func newRecentlyEvicted(size int) *recentlyEvicted {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[string, time.Time](size)
	return &recentlyEvicted{cache: c}
}

func (r *recentlyEvicted) mark(wid string) {
	r.cache.Add(wid, time.Now())
}

func (r *recentlyEvicted) wasRecent(wid string) bool {
	_, ok := r.cache.Get(wid)
	return ok
}
