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
	"jinr.ru/greenlab/go-pulser/pkg/log"
)

func (p *Pulser) lookup(id int) (*Pulse, handle, error) {
	h, ok := p.index[id]
	if !ok {
		return nil, noPulse, newError(CodeUnknownPulse, "pulse #%d does not exist", id)
	}
	return p.pulses[h], h, nil
}

// userPulse looks up a pulse that may be modified by the caller.
func (p *Pulser) userPulse(id int) (*Pulse, handle, error) {
	pl, h, err := p.lookup(id)
	if err != nil {
		return nil, noPulse, err
	}
	if pl.IsAuto() {
		return nil, noPulse, newError(CodeConfig, "pulse #%d is generated automatically and can not be changed", id)
	}
	return pl, h, nil
}

// Pulse returns a copy of the pulse with the given id.
func (p *Pulser) Pulse(id int) (Pulse, error) {
	pl, _, err := p.lookup(id)
	if err != nil {
		return Pulse{}, err
	}
	return *pl, nil
}

// PulseIDs returns the ids of all pulses in declaration order.
func (p *Pulser) PulseIDs() []int {
	var ids []int
	for _, pl := range p.pulses {
		if pl != nil {
			ids = append(ids, pl.ID)
		}
	}
	return ids
}

// Declare creates a new pulse.
func (p *Pulser) Declare(id int) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if id <= 0 {
		return newError(CodeConfig, "invalid pulse number %d", id)
	}
	if _, ok := p.index[id]; ok {
		return newError(CodeDuplicatePulse, "pulse #%d already exists", id)
	}
	p.addPulse(newPulse(id))
	return nil
}

func (p *Pulser) addPulse(pl *Pulse) handle {
	h := handle(len(p.pulses))
	p.pulses = append(p.pulses, pl)
	p.index[pl.ID] = h
	return h
}

// deletePulse removes a pulse and the auxiliary pulses linked to it.
func (p *Pulser) deletePulse(h handle) {
	pl := p.pulses[h]
	if pl == nil {
		return
	}
	p.pulses[h] = nil
	delete(p.index, pl.ID)
	if pl.HasFunction {
		p.functions[pl.Function].removePulse(h)
	}
	for _, partner := range []handle{pl.shape, pl.twt, pl.primary} {
		if partner == noPulse || p.pulses[partner] == nil {
			continue
		}
		other := p.pulses[partner]
		switch h {
		case other.shape:
			other.shape = noPulse
		case other.twt:
			other.twt = noPulse
		case other.primary:
			other.primary = noPulse
		}
		p.deletePulse(partner)
	}
}

func (p *Pulser) SetFunction(id int, f Function) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	pl, h, err := p.userPulse(id)
	if err != nil {
		return err
	}
	if err := checkFunction(f); err != nil {
		return err
	}
	if pl.HasFunction {
		return newError(CodeAlreadySet, "function of pulse #%d already set", id)
	}
	if f.isPhaseReference() {
		return newError(CodeConfig, "function %s is not supported by this pulser", f)
	}
	fs := p.functions[f]
	if !fs.IsUsed() {
		return newError(CodeConfig, "function %s of pulse #%d has no channels assigned", f, id)
	}
	if pl.PosSet && pl.Pos+fs.Delay < 0 {
		return newError(CodeConfig, "pulse #%d would start before the trigger with the delay of %s", id, f)
	}
	pl.Function = f
	pl.HasFunction = true
	fs.Pulses = append(fs.Pulses, h)
	return nil
}

func (p *Pulser) preparePulse(id int, set bool, what string) (*Pulse, error) {
	if err := p.requirePhase(Preparing); err != nil {
		return nil, err
	}
	pl, _, err := p.userPulse(id)
	if err != nil {
		return nil, err
	}
	if set {
		return nil, newError(CodeAlreadySet, "%s of pulse #%d already set", what, id)
	}
	return pl, nil
}

func (p *Pulser) SetPosition(id int, t float64) error {
	pl, _, err := p.lookup(id)
	if err != nil {
		return err
	}
	if pl, err = p.preparePulse(id, pl.PosSet, "position"); err != nil {
		return err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return err
	}
	if !p.validPosition(pl, ticks) {
		return newError(CodeConfig, "pulse #%d would start before the trigger", id)
	}
	pl.Pos, pl.PosSet = ticks, true
	pl.Initial.Pos, pl.Initial.PosSet = ticks, true
	pl.updateActive()
	return nil
}

func (p *Pulser) SetLength(id int, t float64) error {
	pl, _, err := p.lookup(id)
	if err != nil {
		return err
	}
	if pl, err = p.preparePulse(id, pl.LenSet, "length"); err != nil {
		return err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return err
	}
	if ticks < 0 {
		return newError(CodeInvalidValue, "negative length for pulse #%d", id)
	}
	pl.Len, pl.LenSet = ticks, true
	pl.Initial.Len, pl.Initial.LenSet = ticks, true
	pl.updateActive()
	return nil
}

// SetPositionDelta sets the position change applied by ShiftPosition.
// It returns false if the change is zero, which is only warned about.
func (p *Pulser) SetPositionDelta(id int, t float64) (bool, error) {
	pl, _, err := p.lookup(id)
	if err != nil {
		return false, err
	}
	if pl, err = p.preparePulse(id, pl.DPosSet, "position change"); err != nil {
		return false, err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return false, err
	}
	pl.DPos, pl.DPosSet = ticks, true
	pl.Initial.DPos, pl.Initial.DPosSet = ticks, true
	if ticks == 0 {
		log.Warning("Zero position change for pulse #%d", id)
		return false, nil
	}
	return true, nil
}

// SetLengthDelta sets the length change applied by IncrementLength.
func (p *Pulser) SetLengthDelta(id int, t float64) (bool, error) {
	pl, _, err := p.lookup(id)
	if err != nil {
		return false, err
	}
	if pl, err = p.preparePulse(id, pl.DLenSet, "length change"); err != nil {
		return false, err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return false, err
	}
	pl.DLen, pl.DLenSet = ticks, true
	pl.Initial.DLen, pl.Initial.DLenSet = ticks, true
	if ticks == 0 {
		log.Warning("Zero length change for pulse #%d", id)
		return false, nil
	}
	return true, nil
}

// SetPhaseCycle makes the pulse follow phase sequence seq.
func (p *Pulser) SetPhaseCycle(id int, seq int) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	pl, _, err := p.userPulse(id)
	if err != nil {
		return err
	}
	if pl.Cycle != 0 {
		return newError(CodeAlreadySet, "phase cycle of pulse #%d already set", id)
	}
	if _, ok := p.sequences[seq]; !ok {
		return newError(CodeConfig, "phase sequence %d is not defined", seq)
	}
	if !pl.HasFunction {
		return newError(CodeConfig, "function of pulse #%d must be set before its phase cycle", id)
	}
	if pl.Function == FuncPulseShape || pl.Function == FuncTWT || pl.Function == FuncTWTGate {
		return newError(CodeConfig, "phase cycling is not possible for function %s", pl.Function)
	}
	if p.functions[pl.Function].PhaseSetup < 0 {
		return newError(CodeConfig, "no phase setup for function %s of pulse #%d", pl.Function, id)
	}
	pl.Cycle = seq
	return nil
}

func (p *Pulser) validPosition(pl *Pulse, pos Ticks) bool {
	if !pl.HasFunction {
		return true
	}
	return pos+p.functions[pl.Function].Delay >= 0
}

// Position returns the position of a pulse in seconds.
func (p *Pulser) Position(id int) (float64, error) {
	return p.getTime(id, func(pl *Pulse) (Ticks, bool) { return pl.Pos, pl.PosSet }, "position")
}

func (p *Pulser) Length(id int) (float64, error) {
	return p.getTime(id, func(pl *Pulse) (Ticks, bool) { return pl.Len, pl.LenSet }, "length")
}

func (p *Pulser) PositionDelta(id int) (float64, error) {
	return p.getTime(id, func(pl *Pulse) (Ticks, bool) { return pl.DPos, pl.DPosSet }, "position change")
}

func (p *Pulser) LengthDelta(id int) (float64, error) {
	return p.getTime(id, func(pl *Pulse) (Ticks, bool) { return pl.DLen, pl.DLenSet }, "length change")
}

func (p *Pulser) getTime(id int, get func(*Pulse) (Ticks, bool), what string) (float64, error) {
	pl, _, err := p.lookup(id)
	if err != nil {
		return 0, err
	}
	ticks, ok := get(pl)
	if !ok {
		return 0, newError(CodeConfig, "%s of pulse #%d has not been set", what, id)
	}
	return p.timebase.ToTime(ticks)
}

// liveError turns a failed change into a recoverable error while the
// experiment is running. All changes pending since the last update are
// dropped then.
func (p *Pulser) liveError(err *Error) error {
	if p.phase == Running {
		p.revertChanges()
		err.Kind = Recoverable
	}
	return err
}

func (p *Pulser) livePulse(id int) (*Pulse, error) {
	if err := p.requirePhase(TestRun, Running); err != nil {
		return nil, err
	}
	pl, _, err := p.userPulse(id)
	return pl, err
}

func (p *Pulser) applyPosition(pl *Pulse, pos Ticks) error {
	if !p.validPosition(pl, pos) {
		return p.liveError(newError(CodeInvalidValue, "pulse #%d would start before the trigger", pl.ID))
	}
	pl.saveOld()
	pl.Pos, pl.PosSet = pos, true
	p.pulseChanged(pl)
	return nil
}

func (p *Pulser) applyLength(pl *Pulse, length Ticks) error {
	if length < 0 {
		return p.liveError(newError(CodeInvalidValue, "pulse #%d would get a negative length", pl.ID))
	}
	pl.saveOld()
	pl.Len, pl.LenSet = length, true
	p.pulseChanged(pl)
	return nil
}

// ShiftPosition moves a pulse by its position change.
func (p *Pulser) ShiftPosition(id int) error {
	pl, err := p.livePulse(id)
	if err != nil {
		return err
	}
	if !pl.DPosSet {
		return newError(CodeConfig, "position change of pulse #%d has not been set", id)
	}
	if !pl.PosSet {
		return newError(CodeConfig, "position of pulse #%d has not been set", id)
	}
	return p.applyPosition(pl, pl.Pos+pl.DPos)
}

// IncrementLength changes the length of a pulse by its length change.
func (p *Pulser) IncrementLength(id int) error {
	pl, err := p.livePulse(id)
	if err != nil {
		return err
	}
	if !pl.DLenSet {
		return newError(CodeConfig, "length change of pulse #%d has not been set", id)
	}
	return p.applyLength(pl, pl.Len+pl.DLen)
}

func (p *Pulser) ChangePosition(id int, t float64) error {
	pl, err := p.livePulse(id)
	if err != nil {
		return err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return p.liveError(err.(*Error))
	}
	return p.applyPosition(pl, ticks)
}

func (p *Pulser) ChangeLength(id int, t float64) error {
	pl, err := p.livePulse(id)
	if err != nil {
		return err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return p.liveError(err.(*Error))
	}
	return p.applyLength(pl, ticks)
}

// ChangePositionDelta replaces the position change of a pulse. It returns
// false for a zero change.
func (p *Pulser) ChangePositionDelta(id int, t float64) (bool, error) {
	pl, err := p.livePulse(id)
	if err != nil {
		return false, err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return false, p.liveError(err.(*Error))
	}
	pl.saveOld()
	pl.DPos, pl.DPosSet = ticks, true
	p.pulseChanged(pl)
	if ticks == 0 && p.phase == TestRun {
		log.Warning("Zero position change for pulse #%d", id)
		return false, nil
	}
	return true, nil
}

func (p *Pulser) ChangeLengthDelta(id int, t float64) (bool, error) {
	pl, err := p.livePulse(id)
	if err != nil {
		return false, err
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return false, p.liveError(err.(*Error))
	}
	pl.saveOld()
	pl.DLen, pl.DLenSet = ticks, true
	p.pulseChanged(pl)
	if ticks == 0 && p.phase == TestRun {
		log.Warning("Zero length change for pulse #%d", id)
		return false, nil
	}
	return true, nil
}

// Reset restores the given pulses, all pulses if none is given, to their
// state at the end of the preparations.
func (p *Pulser) Reset(ids ...int) error {
	if err := p.requirePhase(TestRun, Running); err != nil {
		return err
	}
	var targets []*Pulse
	if len(ids) == 0 {
		for _, pl := range p.pulses {
			if pl != nil && !pl.IsAuto() {
				targets = append(targets, pl)
			}
		}
	}
	for _, id := range ids {
		pl, _, err := p.userPulse(id)
		if err != nil {
			return err
		}
		targets = append(targets, pl)
	}
	for _, pl := range targets {
		pl.saveOld()
		pl.PulseValues = pl.Initial
		p.pulseChanged(pl)
	}
	return nil
}

// pulseChanged recomputes the activation and copies the new values to
// the auxiliary pulses.
func (p *Pulser) pulseChanged(pl *Pulse) {
	pl.updateActive()
	for _, h := range []handle{pl.shape, pl.twt} {
		if h == noPulse {
			continue
		}
		aux := p.pulses[h]
		aux.saveOld()
		p.mirror(pl, aux)
	}
}

// mirror copies the timing of a primary pulse to its auxiliary pulse. The
// auxiliary position includes the primary function's delay.
func (p *Pulser) mirror(pl, aux *Pulse) {
	aux.PulseValues = pl.PulseValues
	aux.Pos += p.functions[pl.Function].Delay
	aux.IsActive = pl.IsActive
	if aux.IsActive {
		aux.WasEverActive = true
	}
}
