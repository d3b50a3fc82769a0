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

// Padding of auxiliary pulses derived from the pulses of a function.
type Padding struct {
	Enabled bool
	Left    Ticks
	Right   Ticks
	// smallest paddings actually used after clamping and overlap resolution
	MinLeft  Ticks
	MinRight Ticks

	leftTime  float64
	rightTime float64
}

func (pd *Padding) resetObserved() {
	pd.MinLeft = pd.Left
	pd.MinRight = pd.Right
}

func (pd *Padding) observeLeft(left Ticks) {
	if left < pd.MinLeft {
		pd.MinLeft = left
	}
}

func (pd *Padding) observeRight(right Ticks) {
	if right < pd.MinRight {
		pd.MinRight = right
	}
}

func (pd *Padding) shrunk() bool {
	return pd.MinLeft < pd.Left || pd.MinRight < pd.Right
}

// FunctionSettings is the state of one logical signal role.
type FunctionSettings struct {
	Kind     Function
	Channels []ChannelID
	Inverted bool
	Delay    Ticks
	DelaySet bool
	// index into the phase setups, -1 if the function is not phase cycled
	PhaseSetup int
	Shape      Padding
	TWT        Padding
	Pulses     []handle

	matrix       [][][]handle
	cycleLen     int
	phase        int
	oldPhase     int
	phaseChanged bool
}

func newFunctionSettings(kind Function) *FunctionSettings {
	return &FunctionSettings{
		Kind:       kind,
		PhaseSetup: -1,
		cycleLen:   1,
	}
}

// IsUsed reports whether channels were assigned to the function.
func (f *FunctionSettings) IsUsed() bool {
	return len(f.Channels) > 0
}

func (f *FunctionSettings) HasPulses() bool {
	return len(f.Pulses) > 0
}

// CycleLength is the length of the longest phase cycle of the function's pulses.
func (f *FunctionSettings) CycleLength() int {
	return f.cycleLen
}

// CurrentPhase is the index into the phase cycle used by the next compile.
func (f *FunctionSettings) CurrentPhase() int {
	return f.phase
}

func (f *FunctionSettings) channelIndex(ch ChannelID) int {
	for i, c := range f.Channels {
		if c == ch {
			return i
		}
	}
	return -1
}

func (f *FunctionSettings) removePulse(h handle) {
	for i, ph := range f.Pulses {
		if ph == h {
			f.Pulses = append(f.Pulses[:i], f.Pulses[i+1:]...)
			return
		}
	}
}

func (f *FunctionSettings) idleLevel() bool {
	return f.Inverted
}
