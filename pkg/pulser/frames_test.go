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

package pulser

import (
	"reflect"
	"testing"
)

func newMixedPulser(t *testing.T) *Pulser {
	t.Helper()
	p := New(nil)
	must(t, p.SetTimebase(16e-9))
	must(t, p.SetRepetitionTime(1.6e-6))
	must(t, p.AssignChannel(FuncMW, 0))
	must(t, p.AssignChannel(FuncDefense, 19))
	must(t, p.AssignChannel(FuncDetection, 34))
	must(t, p.SetFunctionInverted(FuncDefense, true))
	pulses := []struct {
		id       int
		f        Function
		pos, len float64
	}{
		{1, FuncMW, 160e-9, 64e-9},
		{2, FuncMW, 320e-9, 16e-9},
		{3, FuncDefense, 128e-9, 256e-9},
		{4, FuncDetection, 480e-9, 320e-9},
		{5, FuncDetection, 800e-9, 16e-9},
	}
	for _, pc := range pulses {
		must(t, p.Declare(pc.id))
		must(t, p.SetFunction(pc.id, pc.f))
		must(t, p.SetPosition(pc.id, pc.pos))
		must(t, p.SetLength(pc.id, pc.len))
	}
	must(t, p.Finalize())
	return p
}

// newClosingPulser sets up a 16 ns pulser whose only pulse ends exactly at
// the repetition period of 10 ticks.
func newClosingPulser(t *testing.T) *Pulser {
	t.Helper()
	p := New(nil)
	must(t, p.SetTimebase(16e-9))
	must(t, p.SetRepetitionTime(160e-9))
	must(t, p.AssignChannel(FuncMW, 0))
	must(t, p.Declare(1))
	must(t, p.SetFunction(1, FuncMW))
	must(t, p.SetPosition(1, 128e-9))
	must(t, p.SetLength(1, 32e-9))
	must(t, p.Finalize())
	return p
}

func TestFramesTileRepetitionPeriod(t *testing.T) {
	tests := []struct {
		name   string
		pulser func(*testing.T) *Pulser
	}{
		{"mixed", newMixedPulser},
		{"pulse ends at period", newClosingPulser},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.pulser(t)
			seq := p.Current()

			var total Ticks
			for i, f := range seq.Frames {
				if i > 0 && seq.Frames[i-1].End() != f.Pos {
					t.Errorf("frame %d does not start where frame %d ends", i, i-1)
				}
				if f.Len <= 0 {
					t.Errorf("frame %d has length %d", i, f.Len)
				}
				if i > 0 && seq.Frames[i-1].Fields == f.Fields {
					t.Errorf("frames %d and %d have the same output", i-1, i)
				}
				total += f.Len
			}
			if seq.Frames[0].Pos != StartOffset {
				t.Errorf("first frame must start at %d, got %d", StartOffset, seq.Frames[0].Pos)
			}
			if total != p.RepetitionTicks()+1 {
				t.Errorf("frames cover %d ticks, expected %d", total, p.RepetitionTicks()+1)
			}
			if end := seq.Frames[len(seq.Frames)-1].End(); end != p.RepetitionTicks() {
				t.Errorf("last frame ends at %d, expected %d", end, p.RepetitionTicks())
			}
		})
	}
}

func TestPulseEndingAtPeriod(t *testing.T) {
	p := newClosingPulser(t)
	want := []Frame{
		{Pos: -1, Len: 9},
		{Pos: 8, Len: 2, Fields: Pattern{0x0001, 0, 0, 0}},
	}
	if got := p.Current().Frames; !reflect.DeepEqual(got, want) {
		t.Errorf("expected frames %v, got %v", want, got)
	}
}

func TestFramesFollowChannels(t *testing.T) {
	p := newMixedPulser(t)
	ticks := ExpandFrames(p.Current().Frames)
	idle := p.idlePattern()
	if idle != (Pattern{0, 0x0008, 0, 0}) {
		t.Fatalf("expected the inverted defense channel high when idle, got %v", idle)
	}
	for _, c := range []ChannelID{0, 19, 34} {
		ch := p.Channel(c)
		inverted := p.Function(ch.Function).Inverted
		on := make(map[Ticks]bool)
		for _, pp := range ch.Current {
			for tick := pp.Pos; tick < pp.Pos+pp.Len; tick++ {
				on[tick] = true
			}
		}
		for i, pat := range ticks {
			tick := Ticks(i) + StartOffset
			high := pat[c.Field()]&c.mask() != 0
			if high != (on[tick] != inverted) {
				t.Fatalf("channel %s at tick %d: expected on=%v inverted=%v, got output %v",
					c, tick, on[tick], inverted, high)
			}
		}
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	p := newMixedPulser(t)
	first, err := p.Compile()
	must(t, err)
	second, err := p.Compile()
	must(t, err)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("compiling twice gave different results")
	}
	if !reflect.DeepEqual(first.Entries, p.Current().Entries) {
		t.Errorf("compiled entries differ from the committed sequence")
	}
}

func TestSequenceTooLong(t *testing.T) {
	p := New(nil)
	must(t, p.SetTimebase(16e-9))
	must(t, p.SetRepetitionTime(160e-9))
	must(t, p.AssignChannel(FuncMW, 0))
	must(t, p.Declare(1))
	must(t, p.SetFunction(1, FuncMW))
	must(t, p.SetPosition(1, 144e-9))
	must(t, p.SetLength(1, 32e-9))
	wantCode(t, p.Finalize(), CodeSequenceTooLong)
}
