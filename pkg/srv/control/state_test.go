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

package control

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"jinr.ru/greenlab/go-pulser/pkg/log"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
)

func TestMain(m *testing.M) {
	log.Init(ioutil.Discard, "error")
	os.Exit(m.Run())
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func newTestSeq(words int64) *pulser.Sequence {
	return &pulser.Sequence{
		Class: pulser.Class16ns,
		Entries: []pulser.Entry{
			{Fields: pulser.Pattern{0x0001, 0, 0, 0}, Words: words},
			{Fields: pulser.Pattern{0, 0, 0, 0}, Words: 10},
		},
		Frames: []pulser.Frame{{Pos: 0, Len: pulser.Ticks(words)}, {Pos: pulser.Ticks(words), Len: 10}},
	}
}

func TestSeqState(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seq.db")
	state, err := NewSeqState(context.Background(), dbPath)
	must(t, err)

	if _, err := state.Last(); err != (ErrNoSequence{}) {
		t.Fatalf("expected ErrNoSequence on an empty database, got %v", err)
	}

	tb, _ := pulser.NewTimebase(16e-9)
	for gen := uint16(1); gen <= 2; gen++ {
		seq := newTestSeq(int64(gen) * 5)
		must(t, state.PutSequence(NewSeqSummary(gen, seq, tb, []pulser.ChannelID{0}), seq))
	}

	last, err := state.Last()
	must(t, err)
	if last.Generation != 2 || last.Entries != 2 || last.Ticks != 20 {
		t.Errorf("unexpected last summary: %+v", last)
	}
	if last.Length != pulser.FormatTime(20*16e-9) {
		t.Errorf("unexpected length %q", last.Length)
	}
	if !reflect.DeepEqual(last.Dirty, []string{"A0"}) {
		t.Errorf("unexpected dirty channels %v", last.Dirty)
	}

	seq, err := state.GetSequence(1)
	must(t, err)
	if !reflect.DeepEqual(seq.Entries, newTestSeq(5).Entries) {
		t.Errorf("unexpected entries of generation 1: %v", seq.Entries)
	}
	if _, err := state.GetSequence(7); err != (ErrGenerationNotFound{Gen: 7}) {
		t.Errorf("expected ErrGenerationNotFound, got %v", err)
	}
	state.Close()

	state, err = NewSeqState(context.Background(), dbPath)
	must(t, err)
	defer state.Close()
	last, err = state.Last()
	must(t, err)
	if last.Generation != 2 {
		t.Errorf("expected generation 2 after reopening, got %d", last.Generation)
	}
}

func TestSeqStateSetup(t *testing.T) {
	state, err := NewSeqState(context.Background(), filepath.Join(t.TempDir(), "seq.db"))
	must(t, err)
	defer state.Close()

	if _, err := state.GetSetup(); err == nil {
		t.Fatalf("expected an error without a stored setup")
	}

	tb, _ := pulser.NewTimebase(8e-9)
	setup := &pulser.HardwareSetup{
		Timebase: tb,
		Trigger:  pulser.TriggerExternal,
		Slope:    pulser.SlopeNegative,
		Channels: []pulser.ChannelMapping{
			{Channel: 0, Function: pulser.FuncMW},
			{Channel: 16, Function: pulser.FuncDefense, Inverted: true},
		},
		Idle: pulser.Pattern{0, 0x0001, 0, 0},
	}
	must(t, state.PutSetup(setup))
	got, err := state.GetSetup()
	must(t, err)
	if got.Timebase.Nanoseconds() != 8 || got.Trigger != setup.Trigger || got.Slope != setup.Slope {
		t.Errorf("unexpected setup %+v", got)
	}
	if !reflect.DeepEqual(got.Channels, setup.Channels) || got.Idle != setup.Idle {
		t.Errorf("unexpected channels %v idle %v", got.Channels, got.Idle)
	}
}
