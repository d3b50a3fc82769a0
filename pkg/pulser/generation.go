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
	"context"
	"errors"

	"jinr.ru/greenlab/go-pulser/pkg/log"
)

// ChannelMapping tells the hardware which function drives an output bit.
type ChannelMapping struct {
	Channel  ChannelID
	Function Function
	Inverted bool
}

// HardwareSetup is everything the instrument needs before a table is loaded.
type HardwareSetup struct {
	Timebase Timebase
	Trigger  TriggerMode
	Slope    TriggerSlope
	Channels []ChannelMapping
	Idle     Pattern
}

// Programmer writes compiled sequences to the instrument.
type Programmer interface {
	Init(ctx context.Context, setup *HardwareSetup) error
	Load(ctx context.Context, seq *Sequence, dirty []ChannelID) error
	Run(ctx context.Context, on bool) error
}

// Generation keeps the last committed and the newly compiled sequence.
type Generation struct {
	Old *Sequence
	New *Sequence
	// channels reprogrammed by the update that produced New
	Dirty []ChannelID
}

func (g *Generation) discard() {
	g.Old, g.New = nil, nil
	g.Dirty = nil
}

// Current returns the sequence of the last successful update, nil if there is none.
func (p *Pulser) Current() *Sequence {
	return p.gen.New
}

func (p *Pulser) Generations() Generation {
	return p.gen
}

// Compile runs the phase matrix rows through the channel time lines, the
// frame compiler and the packer. It does not touch the generations.
func (p *Pulser) Compile() (*Sequence, error) {
	if err := p.requirePhase(TestRun, Running); err != nil {
		return nil, err
	}
	return p.compile()
}

func (p *Pulser) compile() (*Sequence, error) {
	if err := p.buildTimelines(); err != nil {
		return nil, err
	}
	frames := p.makeFrames()
	p.populateFrames(frames)
	frames, err := p.checkFrames(frames)
	if err != nil {
		return nil, err
	}
	seq := &Sequence{
		Class:  p.timebase.Class(),
		Frames: frames,
		Idle:   p.idlePattern(),
	}
	entries, pad := pack(frames, seq.Class, seq.Idle)
	seq.Entries = splitEntries(entries)
	seq.PadTicks = pad
	if len(seq.Entries) > MaxTableEntries {
		return nil, newError(CodeTooManyEntries, "pulse sequence needs %d table entries, the maximum is %d",
			len(seq.Entries), MaxTableEntries)
	}
	if pad > 0 {
		log.Debug("Repetition period extended by %d ticks to fill the last word", pad)
	}
	return seq, nil
}

// dirtyChannels marks the channels whose parameter buffer differs from the
// last committed one.
func (p *Pulser) dirtyChannels() []ChannelID {
	var dirty []ChannelID
	for _, c := range p.channels {
		c.NeedsUpdate = !c.sameParams()
		if c.NeedsUpdate {
			dirty = append(dirty, c.ID)
		}
	}
	return dirty
}

func (p *Pulser) changed() bool {
	for _, pl := range p.pulses {
		if pl != nil && pl.changed() {
			return true
		}
	}
	for _, fs := range p.functions {
		if fs.phaseChanged && fs.phase != fs.oldPhase {
			return true
		}
	}
	return false
}

// Update compiles the current pulse settings and, while running, loads
// them into the instrument. During a running experiment a failure caused by
// the requested changes rolls all of them back and is returned as a
// recoverable error, the instrument keeps its program.
func (p *Pulser) Update(ctx context.Context) error {
	if err := p.requirePhase(TestRun, Running); err != nil {
		return err
	}
	if p.updating {
		return newError(CodeWrongPhase, "update already in progress")
	}
	p.updating = true
	defer func() { p.updating = false }()

	if p.gen.New != nil && !p.changed() {
		p.commitChanges()
		return nil
	}
	seq, err := p.compile()
	if err != nil {
		return p.failUpdate(err)
	}
	dirty := p.dirtyChannels()
	if p.phase == Running && p.programmer != nil && (len(dirty) > 0 || !p.loaded) {
		if err := p.programmer.Load(ctx, seq, dirty); err != nil {
			p.revertChanges()
			return p.hardwareError(err)
		}
		p.loaded = true
	}
	p.gen.Old, p.gen.New = p.gen.New, seq
	p.gen.Dirty = dirty
	for _, c := range p.channels {
		c.commit()
	}
	p.commitChanges()
	p.checkDutyCycle()
	return nil
}

func (p *Pulser) failUpdate(err error) error {
	p.revertChanges()
	if p.phase != Running {
		return err
	}
	switch {
	case HasCode(err, CodeOverlap), HasCode(err, CodePaddingCollision), HasCode(err, CodeSequenceTooLong),
		HasCode(err, CodeTooManyEntries), HasCode(err, CodeInvalidValue):
		log.Warning("Pulse changes discarded: %s", err)
		return asKind(err, Recoverable)
	}
	return err
}

func (p *Pulser) hardwareError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Fatal, Code: CodeCancelled, What: "programming the pulser was interrupted", Err: err}
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	return &Error{Kind: Fatal, Code: CodeTransport, What: "programming the pulser failed", Err: err}
}

func (p *Pulser) commitChanges() {
	for _, pl := range p.pulses {
		if pl != nil {
			pl.oldPending = false
		}
	}
	for _, fs := range p.functions {
		fs.phaseChanged = false
	}
}

// revertChanges restores all pulses and phases changed since the last
// successful update.
func (p *Pulser) revertChanges() {
	for _, pl := range p.pulses {
		if pl != nil {
			pl.revert()
		}
	}
	for _, fs := range p.functions {
		if fs.phaseChanged {
			fs.phase = fs.oldPhase
			fs.phaseChanged = false
		}
	}
}

// fullReset returns every pulse and phase to its initial state and drops
// both generations, so the next update reprograms everything.
func (p *Pulser) fullReset() {
	for _, pl := range p.pulses {
		if pl != nil && !pl.IsAuto() {
			pl.resetToInitial()
		}
	}
	for _, pl := range p.pulses {
		if pl != nil && !pl.IsAuto() {
			for _, h := range []handle{pl.shape, pl.twt} {
				if h != noPulse {
					p.mirror(pl, p.pulses[h])
					p.pulses[h].oldPending = false
				}
			}
		}
	}
	for _, fs := range p.functions {
		fs.phase = 0
		fs.phaseChanged = false
	}
	for _, c := range p.channels {
		c.Current, c.Old = nil, nil
		c.NeedsUpdate = false
	}
	p.gen.discard()
	p.loaded = false
}

// HardwareSetup returns what Init sends to the instrument.
func (p *Pulser) HardwareSetup() *HardwareSetup {
	return p.hardwareSetup()
}

func (p *Pulser) hardwareSetup() *HardwareSetup {
	setup := &HardwareSetup{
		Timebase: p.timebase,
		Trigger:  p.trigMode,
		Slope:    p.trigSlope,
		Idle:     p.idlePattern(),
	}
	for _, c := range p.channels {
		if c.Assigned {
			setup.Channels = append(setup.Channels, ChannelMapping{
				Channel:  c.ID,
				Function: c.Function,
				Inverted: p.functions[c.Function].Inverted,
			})
		}
	}
	return setup
}
