/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package transport

import (
	"context"
	"sync"
)

// ReplyFunc answers a query sent to a Recorder.
type ReplyFunc func(cmd string) (string, error)

// Recorder is a Link that keeps everything sent to it. It stands in for the
// instrument when no hardware is attached.
type Recorder struct {
	mu     sync.Mutex
	sent   []string
	reply  ReplyFunc
	closed bool
}

// NewRecorder returns a Recorder answering queries with reply. A nil reply
// answers every query with "0".
func NewRecorder(reply ReplyFunc) *Recorder {
	if reply == nil {
		reply = func(string) (string, error) { return "0", nil }
	}
	return &Recorder{reply: reply}
}

func (r *Recorder) Command(ctx context.Context, cmd string) error {
	if err := canceled(ctx, cmd); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, cmd)
	return nil
}

func (r *Recorder) Query(ctx context.Context, cmd string) (string, error) {
	if err := canceled(ctx, cmd); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.sent = append(r.sent, cmd)
	reply := r.reply
	r.mu.Unlock()
	return reply(cmd)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Sent returns a copy of the commands and queries sent so far.
func (r *Recorder) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

// Reset forgets the recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
