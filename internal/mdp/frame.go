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

// Frames is an ordered list of opaque byte frames, the unit the codec and
// the Transport duplex exchange.
type Frames [][]byte

func cloneFrames(f Frames) Frames {
	out := make(Frames, len(f))
	copy(out, f)
	return out
}

// splitAddress scans frames from the front, collecting non-empty frames
// into a return path until it hits the first empty frame. It returns the
// return path (identity frames only, delimiter excluded) and everything
// strictly after that delimiter. The return path is never interpreted,
// only echoed back verbatim later.
//
// If no empty delimiter is found, the whole input is treated as the
// return path and remainder is empty. Callers tolerate this instead of
// panicking on malformed input.
func splitAddress(frames Frames) (returnPath Frames, remainder Frames) {
	for i, f := range frames {
		if len(f) == 0 {
			returnPath = cloneFrames(frames[:i])
			remainder = cloneFrames(frames[i+1:])
			return
		}
	}
	returnPath = cloneFrames(frames)
	remainder = Frames{}
	return
}

// buildWorkerFrame emits [worker_wid, "", "MDPW01", command, ...payload],
// the wire form broker -> worker.
func buildWorkerFrame(wid string, command string, payload ...Frames) Frames {
	out := Frames{[]byte(wid), []byte{}, []byte(WorkerHeader), []byte(command)}
	for _, p := range payload {
		out = append(out, p...)
	}
	return out
}

// buildClientFrame emits [...client_return_path, "", "MDPC01", service,
// ...reply_payload], the wire form broker -> client.
func buildClientFrame(returnPath Frames, service string, body Frames) Frames {
	out := make(Frames, 0, len(returnPath)+3+len(body))
	out = append(out, returnPath...)
	out = append(out, []byte{}, []byte(ClientHeader), []byte(service))
	out = append(out, body...)
	return out
}
