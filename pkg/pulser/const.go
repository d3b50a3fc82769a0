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
	"fmt"
	"strings"
)

// Hardware limits of the RS690 pattern generator
const (
	NumFields        = 4
	BitsPerField     = 16
	NumChannels      = NumFields * BitsPerField
	MaxTableEntries  = 1024
	MaxWordsPerEntry = 0xFFFF
	MaxTicks         = 1<<31 - 1
)

// Defaults, all times in seconds
const (
	DefaultTimebase          = 16e-9
	DefaultShapeLeftPadding  = 200e-9
	DefaultShapeRightPadding = 200e-9
	DefaultTWTLeftPadding    = 550e-9
	DefaultTWTRightPadding   = 50e-9
	DefaultMinTWTDistance    = 300e-9
	MaxTWTDutyCycle          = 0.3
)

// StartOffset is the position of the frame that forces the idle state
// before the first real edge.
const StartOffset Ticks = -1

type Function int

const (
	FuncMW Function = iota
	FuncTWT
	FuncTWTGate
	FuncDetection
	FuncDetectionGate
	FuncDefense
	FuncRF
	FuncRFGate
	FuncPulseShape
	FuncPhase1
	FuncPhase2
	FuncOther1
	FuncOther2
	FuncOther3
	FuncOther4
	NumFunctions
)

var functionNames = [NumFunctions]string{
	FuncMW:            "MW",
	FuncTWT:           "TWT",
	FuncTWTGate:       "TWT_GATE",
	FuncDetection:     "DETECTION",
	FuncDetectionGate: "DETECTION_GATE",
	FuncDefense:       "DEFENSE",
	FuncRF:            "RF",
	FuncRFGate:        "RF_GATE",
	FuncPulseShape:    "PULSE_SHAPE",
	FuncPhase1:        "PHASE_1",
	FuncPhase2:        "PHASE_2",
	FuncOther1:        "OTHER_1",
	FuncOther2:        "OTHER_2",
	FuncOther3:        "OTHER_3",
	FuncOther4:        "OTHER_4",
}

func (f Function) String() string {
	if f < 0 || f >= NumFunctions {
		return fmt.Sprintf("FUNCTION(%d)", int(f))
	}
	return functionNames[f]
}

// ParseFunction accepts the function names case-insensitively, "MICROWAVE" is an alias of "MW".
func ParseFunction(name string) (Function, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "MICROWAVE" {
		return FuncMW, nil
	}
	for f, n := range functionNames {
		if n == name {
			return Function(f), nil
		}
	}
	return 0, newError(CodeConfig, "unknown function %q", name)
}

// reserved for phase switch modules the RS690 does not have
func (f Function) isPhaseReference() bool {
	return f == FuncPhase1 || f == FuncPhase2
}

type PhaseType int

const (
	PhasePlusX PhaseType = iota
	PhaseMinusX
	PhasePlusY
	PhaseMinusY
	PhaseCW
	NumPhaseTypes
)

var phaseNames = [NumPhaseTypes]string{"+X", "-X", "+Y", "-Y", "CW"}

func (t PhaseType) String() string {
	if t < 0 || t >= NumPhaseTypes {
		return fmt.Sprintf("PHASE(%d)", int(t))
	}
	return phaseNames[t]
}

func ParsePhaseType(name string) (PhaseType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "X":
		return PhasePlusX, nil
	case "Y":
		return PhasePlusY, nil
	}
	for t, n := range phaseNames {
		if n == name {
			return PhaseType(t), nil
		}
	}
	return 0, newError(CodeConfig, "unknown phase type %q", name)
}

type TriggerMode int

const (
	TriggerInternal TriggerMode = iota
	TriggerExternal
)

type TriggerSlope int

const (
	SlopePositive TriggerSlope = iota
	SlopeNegative
)

// Phase is the lifecycle stage of a Pulser. It decides which operations are legal.
type Phase int

const (
	Preparing Phase = iota
	TestRun
	Running
)

func (p Phase) String() string {
	switch p {
	case Preparing:
		return "preparing"
	case TestRun:
		return "test run"
	case Running:
		return "running"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}
