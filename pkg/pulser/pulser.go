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

// Pulser holds the complete state of one RS690 pulse generator:
// functions, channels, pulses, phase setups and the compiled generations.
// It is not safe for concurrent use.
type Pulser struct {
	phase     Phase
	timebase  Timebase
	trigMode  TriggerMode
	trigSlope TriggerSlope

	repTicks Ticks
	repSet   bool

	minTWTDistance    Ticks
	minTWTDistanceSet bool
	keepAll           bool

	functions [NumFunctions]*FunctionSettings
	channels  [NumChannels]*Channel
	setups    [MaxPhaseSetups]*PhaseSetup
	sequences map[int]*PhaseSequence

	pulses    []*Pulse
	index     map[int]handle
	nextAuxID int

	gen        Generation
	programmer Programmer
	loaded     bool
	updating   bool

	warn *log.Limiter
}

// New returns a Pulser in the Preparing phase. prog may be nil, then
// nothing is sent to hardware.
func New(prog Programmer) *Pulser {
	p := &Pulser{
		phase:      Preparing,
		sequences:  make(map[int]*PhaseSequence),
		index:      make(map[int]handle),
		nextAuxID:  -1,
		programmer: prog,
		warn:       log.NewLimiter(),
	}
	for f := Function(0); f < NumFunctions; f++ {
		p.functions[f] = newFunctionSettings(f)
	}
	for c := range p.channels {
		p.channels[c] = newChannel(ChannelID(c))
	}
	for i := range p.setups {
		p.setups[i] = &PhaseSetup{}
	}
	return p
}

func (p *Pulser) Phase() Phase {
	return p.phase
}

func (p *Pulser) Timebase() Timebase {
	return p.timebase
}

func (p *Pulser) Function(f Function) *FunctionSettings {
	if f < 0 || f >= NumFunctions {
		return nil
	}
	return p.functions[f]
}

func (p *Pulser) Channel(c ChannelID) *Channel {
	if c < 0 || int(c) >= NumChannels {
		return nil
	}
	return p.channels[c]
}

// RepetitionTicks returns the configured repetition period, 0 if unset.
func (p *Pulser) RepetitionTicks() Ticks {
	if !p.repSet {
		return 0
	}
	return p.repTicks
}

func (p *Pulser) requirePhase(allowed ...Phase) error {
	for _, ph := range allowed {
		if p.phase == ph {
			return nil
		}
	}
	return newError(CodeWrongPhase, "not possible while %s", p.phase)
}

func checkFunction(f Function) error {
	if f < 0 || f >= NumFunctions {
		return newError(CodeConfig, "invalid function %d", int(f))
	}
	return nil
}

// SetTimebase sets the tick length in seconds. It can be set only once.
func (p *Pulser) SetTimebase(seconds float64) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if p.timebase.IsSet() {
		return newError(CodeAlreadySet, "time base already set to %s", FormatTime(p.timebase.Seconds()))
	}
	tb, err := NewTimebase(seconds)
	if err != nil {
		return err
	}
	p.timebase = tb
	log.Debug("Time base set to %s (%s class)", FormatTime(seconds), tb.Class())
	return nil
}

func (p *Pulser) SetTrigger(mode TriggerMode, slope TriggerSlope) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	p.trigMode = mode
	p.trigSlope = slope
	return nil
}

// SetRepetitionTime sets the period of the internal trigger.
func (p *Pulser) SetRepetitionTime(t float64) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if p.repSet {
		return newError(CodeAlreadySet, "repetition time already set")
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return err
	}
	if ticks <= 0 {
		return newError(CodeInvalidValue, "repetition time must be positive")
	}
	p.repTicks = ticks
	p.repSet = true
	return nil
}

// AssignChannel adds channel ch to the channels of function f.
func (p *Pulser) AssignChannel(f Function, ch ChannelID) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if err := checkFunction(f); err != nil {
		return err
	}
	if f.isPhaseReference() {
		return newError(CodeConfig, "function %s is not supported by this pulser", f)
	}
	c := p.Channel(ch)
	if c == nil {
		return newError(CodeConfig, "invalid channel %d", int(ch))
	}
	if c.Assigned {
		if c.Function == f {
			return newError(CodeAlreadySet, "channel %s already assigned to function %s", ch, f)
		}
		return newError(CodeConfig, "channel %s is already used for function %s", ch, c.Function)
	}
	fs := p.functions[f]
	if (f == FuncPulseShape || f == FuncTWT) && len(fs.Channels) > 0 {
		return newError(CodeConfig, "only one channel can be assigned to function %s", f)
	}
	c.Assigned = true
	c.Function = f
	fs.Channels = append(fs.Channels, ch)
	return nil
}

// SetFunctionDelay sets the output delay of a function. Negative delays are
// allowed, the common offset is removed when the preparations end.
func (p *Pulser) SetFunctionDelay(f Function, t float64) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if err := checkFunction(f); err != nil {
		return err
	}
	fs := p.functions[f]
	if fs.DelaySet {
		return newError(CodeAlreadySet, "delay of function %s already set", f)
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return err
	}
	for _, h := range fs.Pulses {
		if pl := p.pulses[h]; pl.PosSet && pl.Pos+ticks < 0 {
			return newError(CodeConfig, "delay of function %s makes the position of pulse #%d negative", f, pl.ID)
		}
	}
	fs.Delay = ticks
	fs.DelaySet = true
	return nil
}

func (p *Pulser) SetFunctionInverted(f Function, inverted bool) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if err := checkFunction(f); err != nil {
		return err
	}
	p.functions[f].Inverted = inverted
	return nil
}

// AutoShape enables automatic pulse shape pulses for function f. Negative
// paddings select the defaults.
func (p *Pulser) AutoShape(f Function, left, right float64) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if err := checkFunction(f); err != nil {
		return err
	}
	if f == FuncPulseShape || f.isPhaseReference() {
		return newError(CodeConfig, "automatic shape pulses can not be used for function %s", f)
	}
	if !p.functions[FuncPulseShape].IsUsed() {
		return newError(CodeConfig, "no channel assigned to function %s, needed for automatic shape pulses of %s",
			FuncPulseShape, f)
	}
	return setPadding(&p.functions[f].Shape, f, left, right, DefaultShapeLeftPadding, DefaultShapeRightPadding)
}

// AutoTWT enables automatic TWT pulses for function f.
func (p *Pulser) AutoTWT(f Function, left, right float64) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if err := checkFunction(f); err != nil {
		return err
	}
	if f == FuncTWT || f == FuncTWTGate || f.isPhaseReference() {
		return newError(CodeConfig, "automatic TWT pulses can not be used for function %s", f)
	}
	if !p.functions[FuncTWT].IsUsed() {
		return newError(CodeConfig, "no channel assigned to function %s, needed for automatic TWT pulses of %s",
			FuncTWT, f)
	}
	return setPadding(&p.functions[f].TWT, f, left, right, DefaultTWTLeftPadding, DefaultTWTRightPadding)
}

func setPadding(pd *Padding, f Function, left, right, defLeft, defRight float64) error {
	if pd.Enabled {
		return newError(CodeAlreadySet, "automatic pulses for function %s already requested", f)
	}
	if left < 0 {
		left = defLeft
	}
	if right < 0 {
		right = defRight
	}
	pd.Enabled = true
	pd.leftTime = left
	pd.rightTime = right
	return nil
}

// SetMinTWTDistance overrides the minimum spacing of TWT pulses.
func (p *Pulser) SetMinTWTDistance(t float64) error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if p.minTWTDistanceSet {
		return newError(CodeAlreadySet, "minimum TWT pulse distance already set")
	}
	ticks, err := p.timebase.ToTicks(t)
	if err != nil {
		return err
	}
	if ticks < 0 {
		return newError(CodeInvalidValue, "negative minimum TWT pulse distance")
	}
	p.minTWTDistance = ticks
	p.minTWTDistanceSet = true
	return nil
}

// KeepAllPulses disables discarding of pulses that never became active.
func (p *Pulser) KeepAllPulses() {
	p.keepAll = true
}
