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

// dispatch classifies one inbound frame list and routes it to the
// broker's client or worker handler. Client and worker traffic share one
// ROUTER socket, so this never branches on which peer sent the frames —
// only on the protocol header that follows the return-address delimiter.
func (b *Broker) dispatch(frames Frames) {
	returnPath, msg := splitAddress(frames)
	if len(msg) == 0 {
		b.log.Debug().Msg("dropping frame list with no protocol frame after delimiter")
		return
	}

	header := msg[0]
	body := msg[1:]

	switch {
	case hasClientPrefix(header):
		b.onClient(returnPath, body)
	case hasWorkerPrefix(header):
		b.onWorker(returnPath, body)
	default:
		b.log.Warn().Str("header", string(header)).Msg("dropping message with unknown protocol prefix")
	}
}
