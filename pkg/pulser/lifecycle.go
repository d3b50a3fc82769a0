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

	"jinr.ru/greenlab/go-pulser/pkg/log"
)

// Finalize ends the preparations: it checks the setup, removes a common
// negative delay, creates the automatic shape and TWT pulses, builds the
// phase matrices and compiles the initial state. The pulser is then in the
// TestRun phase.
func (p *Pulser) Finalize() error {
	if err := p.requirePhase(Preparing); err != nil {
		return err
	}
	if !p.timebase.IsSet() {
		tb, _ := NewTimebase(DefaultTimebase)
		p.timebase = tb
		log.Info("Time base not set, using %s", FormatTime(DefaultTimebase))
	}
	if !p.minTWTDistanceSet {
		if ticks, err := p.timebase.ToTicks(DefaultMinTWTDistance); err == nil {
			p.minTWTDistance = ticks
		}
	}
	if err := p.checkChannels(); err != nil {
		return err
	}
	for _, pl := range p.pulses {
		if pl != nil && !pl.HasFunction {
			return newError(CodeConfig, "function of pulse #%d has not been set", pl.ID)
		}
	}
	p.normalizeDelays()
	if err := p.checkPhaseSetups(); err != nil {
		return err
	}
	if err := p.resolvePaddings(); err != nil {
		return err
	}
	p.synthesizeAuxPulses()
	if err := p.buildPhaseMatrices(); err != nil {
		return err
	}
	for _, pl := range p.pulses {
		if pl == nil {
			continue
		}
		pl.updateActive()
		pl.Initial = pl.PulseValues
		pl.oldPending = false
	}
	p.phase = TestRun
	if err := p.Update(context.Background()); err != nil {
		p.phase = Preparing
		return err
	}
	return nil
}

// checkChannels rejects channels the time base class can not drive.
func (p *Pulser) checkChannels() error {
	usable := p.timebase.Class().UsableBits()
	for _, c := range p.channels {
		if c.Assigned && c.ID.Bit() >= usable {
			return newError(CodeConfig, "channel %s of function %s can not be used with a %s time base, only bits 0 to %d",
				c.ID, c.Function, p.timebase.Class(), usable-1)
		}
	}
	return nil
}

// normalizeDelays shifts all delays by the most negative one.
func (p *Pulser) normalizeDelays() {
	var lowest Ticks
	for _, fs := range p.functions {
		if fs.IsUsed() && fs.Delay < lowest {
			lowest = fs.Delay
		}
	}
	if lowest == 0 {
		return
	}
	for _, fs := range p.functions {
		if fs.IsUsed() {
			fs.Delay -= lowest
		}
	}
	log.Info("All function delays increased by %d ticks to remove negative delays", -lowest)
}

// EndTest is called when the test run is over. Pulses that never became
// active are discarded unless all pulses are to be kept, then everything
// is reset to the initial state.
func (p *Pulser) EndTest() error {
	if err := p.requirePhase(TestRun); err != nil {
		return err
	}
	if !p.keepAll {
		for h, pl := range p.pulses {
			if pl == nil || pl.IsAuto() || pl.WasEverActive {
				continue
			}
			log.Warning("Pulse #%d is never used, discarding it", pl.ID)
			p.deletePulse(handle(h))
		}
		if err := p.buildPhaseMatrices(); err != nil {
			return err
		}
	}
	p.PaddingReport()
	p.warn.Summary()
	p.fullReset()
	return p.Update(context.Background())
}

// StartExperiment initializes the instrument, loads the initial sequence and
// starts the output.
func (p *Pulser) StartExperiment(ctx context.Context) error {
	if err := p.requirePhase(TestRun); err != nil {
		return err
	}
	p.fullReset()
	p.phase = Running
	if p.programmer != nil {
		if err := p.programmer.Init(ctx, p.hardwareSetup()); err != nil {
			p.phase = TestRun
			return p.hardwareError(err)
		}
	}
	if err := p.Update(ctx); err != nil {
		p.phase = TestRun
		return asKind(err, Fatal)
	}
	return p.SetRunning(ctx, true)
}

// SetRunning starts or stops the pulse output.
func (p *Pulser) SetRunning(ctx context.Context, on bool) error {
	if err := p.requirePhase(Running); err != nil {
		return err
	}
	if p.programmer == nil {
		return nil
	}
	if err := p.programmer.Run(ctx, on); err != nil {
		return p.hardwareError(err)
	}
	return nil
}

// EndExperiment stops the output and returns to the initial state.
func (p *Pulser) EndExperiment(ctx context.Context) error {
	if err := p.requirePhase(Running); err != nil {
		return err
	}
	var runErr error
	if p.programmer != nil {
		if err := p.programmer.Run(ctx, false); err != nil {
			runErr = p.hardwareError(err)
		}
	}
	p.PaddingReport()
	p.warn.Summary()
	p.phase = TestRun
	p.fullReset()
	if err := p.Update(context.Background()); err != nil {
		return err
	}
	return runErr
}
