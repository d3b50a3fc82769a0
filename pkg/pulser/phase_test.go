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
	"testing"
)

func newPhasePulser(t *testing.T, types ...PhaseType) *Pulser {
	t.Helper()
	p := New(nil)
	must(t, p.SetTimebase(16e-9))
	must(t, p.AssignChannel(FuncMW, 0))
	must(t, p.AssignChannel(FuncMW, 1))
	must(t, p.DefinePhaseSetup(0, FuncMW, PhasePlusX, 0))
	must(t, p.DefinePhaseSetup(0, FuncMW, PhaseMinusX, 1))
	must(t, p.DefinePhaseSequence(1, types...))
	must(t, p.Declare(1))
	must(t, p.SetFunction(1, FuncMW))
	must(t, p.SetPosition(1, 160e-9))
	must(t, p.SetLength(1, 32e-9))
	must(t, p.SetPhaseCycle(1, 1))
	return p
}

func TestPhaseSetupErrors(t *testing.T) {
	p := New(nil)
	must(t, p.AssignChannel(FuncMW, 0))
	must(t, p.AssignChannel(FuncRF, 1))
	wantCode(t, p.DefinePhaseSetup(2, FuncMW, PhasePlusX, 0), CodeConfig)
	wantCode(t, p.DefinePhaseSetup(0, FuncPulseShape, PhasePlusX, 0), CodeConfig)
	must(t, p.DefinePhaseSetup(0, FuncMW, PhasePlusX, 0))
	wantCode(t, p.DefinePhaseSetup(0, FuncMW, PhasePlusX, 0), CodeAlreadySet)
	wantCode(t, p.DefinePhaseSetup(0, FuncMW, PhaseMinusX, 0), CodeConfig)
	wantCode(t, p.DefinePhaseSetup(0, FuncRF, PhasePlusX, 1), CodeConfig)
	wantCode(t, p.DefinePhaseSetup(1, FuncMW, PhasePlusY, 1), CodeConfig)
	wantCode(t, p.DefinePhaseSequence(1), CodeConfig)
	must(t, p.DefinePhaseSequence(1, PhasePlusX))
	wantCode(t, p.DefinePhaseSequence(1, PhaseMinusX), CodeAlreadySet)

	must(t, p.Declare(1))
	wantCode(t, p.SetPhaseCycle(1, 1), CodeConfig)
	must(t, p.SetFunction(1, FuncRF))
	wantCode(t, p.SetPhaseCycle(1, 2), CodeConfig)
	wantCode(t, p.SetPhaseCycle(1, 1), CodeConfig)
}

func TestPhaseCycling(t *testing.T) {
	p := newPhasePulser(t, PhasePlusX, PhaseMinusX)
	must(t, p.Finalize())
	if n := p.Function(FuncMW).CycleLength(); n != 2 {
		t.Fatalf("expected a phase cycle of 2, got %d", n)
	}

	steps := []struct {
		next   bool
		active ChannelID
		idle   ChannelID
	}{
		{false, 0, 1},
		{true, 1, 0},
		{true, 0, 1},
		{true, 1, 0},
	}
	for i, s := range steps {
		if s.next {
			must(t, p.NextPhase())
			must(t, p.Update(context.Background()))
		}
		if n := len(p.Channel(s.active).Current); n != 1 {
			t.Errorf("step %d: expected the pulse on %s, got %d pulses", i, s.active, n)
		}
		if n := len(p.Channel(s.idle).Current); n != 0 {
			t.Errorf("step %d: expected no pulse on %s, got %d", i, s.idle, n)
		}
	}

	must(t, p.ResetPhase(FuncMW))
	must(t, p.Update(context.Background()))
	if p.Function(FuncMW).CurrentPhase() != 0 || len(p.Channel(0).Current) != 1 {
		t.Errorf("expected the first phase after a reset")
	}
	wantCode(t, p.NextPhase(FuncRF), CodeConfig)
}

func TestPhaseTypeNotMapped(t *testing.T) {
	p := newPhasePulser(t, PhasePlusX, PhasePlusY)
	err := p.Finalize()
	wantCode(t, err, CodePhaseUnmapped)
}

func TestShorterCycleRepeats(t *testing.T) {
	p := newPhasePulser(t, PhasePlusX, PhaseMinusX, PhasePlusX, PhaseMinusX)
	must(t, p.DefinePhaseSequence(2, PhaseMinusX, PhasePlusX))
	must(t, p.Declare(2))
	must(t, p.SetFunction(2, FuncMW))
	must(t, p.SetPosition(2, 320e-9))
	must(t, p.SetLength(2, 32e-9))
	must(t, p.SetPhaseCycle(2, 2))
	must(t, p.Finalize())

	fs := p.Function(FuncMW)
	if fs.CycleLength() != 4 {
		t.Fatalf("expected the longest cycle of 4, got %d", fs.CycleLength())
	}
	for row := 0; row < 4; row++ {
		col1, col2 := 0, 1
		if row%2 == 1 {
			col1, col2 = 1, 0
		}
		if len(fs.matrix[row][col1]) != 1 || len(fs.matrix[row][col2]) != 1 {
			t.Errorf("row %d: expected one pulse per channel, got %v", row, fs.matrix[row])
		}
	}
}

func TestPhaseRollback(t *testing.T) {
	p := newPhasePulser(t, PhasePlusX, PhaseMinusX)
	must(t, p.AssignChannel(FuncRF, 2))
	must(t, p.Declare(2))
	must(t, p.SetFunction(2, FuncRF))
	must(t, p.SetPosition(2, 0))
	must(t, p.SetLength(2, 16e-9))
	must(t, p.SetRepetitionTime(320e-9))
	must(t, p.Finalize())
	must(t, p.StartExperiment(context.Background()))

	must(t, p.NextPhase(FuncMW))
	must(t, p.ChangePosition(2, 480e-9))
	err := p.Update(context.Background())
	wantCode(t, err, CodeSequenceTooLong)
	if !IsRecoverable(err) {
		t.Fatalf("expected recoverable error, got %s", err)
	}
	if p.Function(FuncMW).CurrentPhase() != 0 {
		t.Errorf("phase change must be rolled back")
	}
}
