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

// MaxPhaseSetups is the number of phase setups that can exist at the same time.
const MaxPhaseSetups = 2

// PhaseSetup maps phase types to channels of one function.
type PhaseSetup struct {
	Function Function
	Assigned bool
	Channels [NumPhaseTypes]ChannelID
	Mapped   [NumPhaseTypes]bool
}

func (ps *PhaseSetup) channelFor(t PhaseType) (ChannelID, bool) {
	if t < 0 || t >= NumPhaseTypes || !ps.Mapped[t] {
		return 0, false
	}
	return ps.Channels[t], true
}

// PhaseSequence is a phase cycle, referenced by pulses through its id.
type PhaseSequence struct {
	ID    int
	Types []PhaseType
}

// DefinePhaseSetup maps phase type t to channel ch in setup idx for function f.
func (p *Pulser) DefinePhaseSetup(idx int, f Function, t PhaseType, ch ChannelID) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if idx < 0 || idx >= MaxPhaseSetups {
		return newError(CodeConfig, "invalid phase setup %d, must be 1 or 2", idx+1)
	}
	if err := checkFunction(f); err != nil {
		return err
	}
	if t < 0 || t >= NumPhaseTypes {
		return newError(CodeConfig, "invalid phase type %d", int(t))
	}
	if f == FuncPulseShape || f == FuncTWT || f == FuncTWTGate || f.isPhaseReference() {
		return newError(CodeConfig, "phase cycling is not possible for function %s", f)
	}
	ps := p.setups[idx]
	if ps.Assigned && ps.Function != f {
		return newError(CodeConfig, "phase setup %d is already used for function %s", idx+1, ps.Function)
	}
	fs := p.functions[f]
	if fs.PhaseSetup >= 0 && fs.PhaseSetup != idx {
		return newError(CodeConfig, "function %s already uses phase setup %d", f, fs.PhaseSetup+1)
	}
	if ps.Mapped[t] {
		return newError(CodeAlreadySet, "phase type %s of phase setup %d already set", t, idx+1)
	}
	for other := PhaseType(0); other < NumPhaseTypes; other++ {
		if ps.Mapped[other] && ps.Channels[other] == ch {
			return newError(CodeConfig, "channel %s already used for phase type %s in phase setup %d", ch, other, idx+1)
		}
	}
	ps.Function = f
	ps.Assigned = true
	ps.Channels[t] = ch
	ps.Mapped[t] = true
	fs.PhaseSetup = idx
	return nil
}

// DefinePhaseSequence registers a phase cycle under id.
func (p *Pulser) DefinePhaseSequence(id int, types ...PhaseType) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if id <= 0 {
		return newError(CodeConfig, "invalid phase sequence id %d", id)
	}
	if _, ok := p.sequences[id]; ok {
		return newError(CodeAlreadySet, "phase sequence %d already defined", id)
	}
	if len(types) == 0 {
		return newError(CodeConfig, "phase sequence %d is empty", id)
	}
	for _, t := range types {
		if t < 0 || t >= NumPhaseTypes {
			return newError(CodeConfig, "invalid phase type %d in phase sequence %d", int(t), id)
		}
	}
	p.sequences[id] = &PhaseSequence{ID: id, Types: append([]PhaseType(nil), types...)}
	return nil
}

func (p *Pulser) checkPhaseSetups() error {
	for idx, ps := range p.setups {
		if !ps.Assigned {
			continue
		}
		fs := p.functions[ps.Function]
		for t := PhaseType(0); t < NumPhaseTypes; t++ {
			if ps.Mapped[t] && fs.channelIndex(ps.Channels[t]) < 0 {
				return newError(CodeConfig, "channel %s of phase setup %d (%s) is not assigned to function %s",
					ps.Channels[t], idx+1, t, ps.Function)
			}
		}
	}
	return nil
}

// buildPhaseMatrices fills, for every function, the lists of pulses per
// phase index and channel.
func (p *Pulser) buildPhaseMatrices() error {
	for _, fs := range p.functions {
		fs.matrix = nil
		fs.cycleLen = 1
		if !fs.HasPulses() {
			continue
		}
		for _, h := range fs.Pulses {
			pl := p.pulses[h]
			if pl.Cycle != 0 {
				if n := len(p.sequences[pl.Cycle].Types); n > fs.cycleLen {
					fs.cycleLen = n
				}
			}
		}
		fs.matrix = make([][][]handle, fs.cycleLen)
		for row := range fs.matrix {
			fs.matrix[row] = make([][]handle, len(fs.Channels))
		}
		for _, h := range fs.Pulses {
			pl := p.pulses[h]
			for row := 0; row < fs.cycleLen; row++ {
				t := PhasePlusX
				if pl.Cycle != 0 {
					types := p.sequences[pl.Cycle].Types
					t = types[row%len(types)]
				}
				col, err := p.phaseColumn(fs, t)
				if err != nil {
					return newError(CodePhaseUnmapped, "phase type %s used by pulse #%d is not set up for function %s",
						t, pl.ID, fs.Kind)
				}
				fs.matrix[row][col] = append(fs.matrix[row][col], h)
			}
		}
		if fs.phase >= fs.cycleLen {
			fs.phase = 0
		}
	}
	return nil
}

// phaseColumn returns the index of the function channel used for phase type t.
// Functions without a phase setup put +X pulses on their first channel.
func (p *Pulser) phaseColumn(fs *FunctionSettings, t PhaseType) (int, error) {
	if fs.PhaseSetup < 0 {
		if t == PhasePlusX && len(fs.Channels) > 0 {
			return 0, nil
		}
		return -1, newError(CodePhaseUnmapped, "no phase setup")
	}
	ch, ok := p.setups[fs.PhaseSetup].channelFor(t)
	if !ok {
		return -1, newError(CodePhaseUnmapped, "phase type %s not mapped", t)
	}
	col := fs.channelIndex(ch)
	if col < 0 {
		return -1, newError(CodePhaseUnmapped, "channel %s not assigned", ch)
	}
	return col, nil
}

// NextPhase advances the phase cycle of the given functions, of all
// phase cycled functions if none is given.
func (p *Pulser) NextPhase(fns ...Function) error {
	return p.setPhase(fns, func(fs *FunctionSettings) int {
		return (fs.phase + 1) % fs.cycleLen
	})
}

// ResetPhase returns the given functions, or all of them, to the start of their phase cycle.
func (p *Pulser) ResetPhase(fns ...Function) error {
	return p.setPhase(fns, func(*FunctionSettings) int { return 0 })
}

func (p *Pulser) setPhase(fns []Function, next func(*FunctionSettings) int) error {
	if err := p.requirePhase(TestRun, Running); err != nil {
		return err
	}
	if len(fns) == 0 {
		for _, fs := range p.functions {
			if fs.HasPulses() && fs.cycleLen > 1 {
				fns = append(fns, fs.Kind)
			}
		}
	}
	for _, f := range fns {
		if err := checkFunction(f); err != nil {
			return err
		}
		fs := p.functions[f]
		if !fs.HasPulses() {
			return newError(CodeConfig, "function %s has no pulses", f)
		}
		if !fs.phaseChanged {
			fs.oldPhase = fs.phase
			fs.phaseChanged = true
		}
		fs.phase = next(fs)
	}
	return nil
}
