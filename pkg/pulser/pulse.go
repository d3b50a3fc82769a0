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

// handle is the arena slot of a pulse.
type handle int

const noPulse handle = -1

// PulseValues are the mutable timing parameters of a pulse.
type PulseValues struct {
	Pos     Ticks
	Len     Ticks
	DPos    Ticks
	DLen    Ticks
	PosSet  bool
	LenSet  bool
	DPosSet bool
	DLenSet bool
}

func (v PulseValues) active() bool {
	return v.PosSet && v.LenSet && v.Len > 0
}

type Pulse struct {
	ID          int
	Function    Function
	HasFunction bool
	PulseValues

	// restored by a reset
	Initial PulseValues
	// restored when a live change fails
	Old        PulseValues
	oldPending bool
	oldActive  bool

	IsActive      bool
	WasEverActive bool

	// phase sequence id, 0 if the pulse is not phase cycled
	Cycle int

	shape   handle
	twt     handle
	primary handle
}

func newPulse(id int) *Pulse {
	return &Pulse{
		ID:      id,
		shape:   noPulse,
		twt:     noPulse,
		primary: noPulse,
	}
}

// IsAuto reports whether the pulse was generated for shape or TWT padding.
func (pl *Pulse) IsAuto() bool {
	return pl.primary != noPulse
}

func (pl *Pulse) updateActive() {
	pl.IsActive = pl.PulseValues.active()
	if pl.IsActive {
		pl.WasEverActive = true
	}
}

func (pl *Pulse) saveOld() {
	if pl.oldPending {
		return
	}
	pl.Old = pl.PulseValues
	pl.oldActive = pl.IsActive
	pl.oldPending = true
}

func (pl *Pulse) revert() {
	if !pl.oldPending {
		return
	}
	pl.PulseValues = pl.Old
	pl.IsActive = pl.oldActive
	pl.oldPending = false
}

// changed reports whether the pulse differs from its last committed state.
func (pl *Pulse) changed() bool {
	return pl.oldPending && (pl.Old != pl.PulseValues || pl.oldActive != pl.IsActive)
}

func (pl *Pulse) resetToInitial() {
	pl.PulseValues = pl.Initial
	pl.oldPending = false
	pl.updateActive()
}
