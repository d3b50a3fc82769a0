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

package ifc

import (
	deviceifc "jinr.ru/greenlab/go-pulser/pkg/device/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
)

// Pulse operations accepted by ControlServer.PulseOp
const (
	OpShift     = "shift"
	OpIncrement = "increment"
	OpPosition  = "position"
	OpLength    = "length"
	OpDPos      = "dpos"
	OpDLen      = "dlen"
)

// Phase operations accepted by ControlServer.Phase
const (
	PhaseNext  = "next"
	PhaseReset = "reset"
)

// PulseInfo is the state of one pulse, times in seconds. Unset values are nil.
type PulseInfo struct {
	ID            int      `json:"id"`
	Function      string   `json:"function,omitempty"`
	Active        bool     `json:"active"`
	Position      *float64 `json:"position,omitempty"`
	Length        *float64 `json:"length,omitempty"`
	PositionDelta *float64 `json:"positionDelta,omitempty"`
	LengthDelta   *float64 `json:"lengthDelta,omitempty"`
	PhaseCycle    int      `json:"phaseCycle,omitempty"`
}

// PulseValue is the body of the pulse operations that take a time.
type PulseValue struct {
	Value float64 `json:"value"`
}

// PhaseRequest selects the functions of a phase operation, all phase
// cycled functions if empty.
type PhaseRequest struct {
	Functions []string `json:"functions,omitempty"`
}

// SeqSummary is the human readable record of a committed generation.
type SeqSummary struct {
	Generation uint16   `json:"generation"`
	Class      string   `json:"class"`
	Entries    int      `json:"entries"`
	Frames     int      `json:"frames"`
	Ticks      int64    `json:"ticks"`
	PadTicks   int64    `json:"padTicks"`
	Length     string   `json:"length,omitempty"`
	Dirty      []string `json:"dirty,omitempty"`
	Committed  string   `json:"committed"`
}

type ControlServer interface {
	Run() error

	Start() error
	Stop() error

	GetPulse(id int) (*PulseInfo, error)
	PulseOp(id int, op string, value float64) (*PulseInfo, error)
	Reset(ids ...int) error
	Phase(op string, fns ...pulser.Function) error
	Update() (*SeqSummary, error)
	SetRunning(on bool) error

	LastSequence() (*SeqSummary, error)
	Status() (*deviceifc.Status, error)
	GetDevice() deviceifc.Device
}

type ApiServer interface {
	Run() error
}
