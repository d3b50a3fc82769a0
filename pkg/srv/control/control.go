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

package control

import (
	"context"
	"sync"

	"jinr.ru/greenlab/go-pulser/pkg/config"
	deviceifc "jinr.ru/greenlab/go-pulser/pkg/device/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/device/rs690"
	"jinr.ru/greenlab/go-pulser/pkg/log"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/transport"
)

const (
	DeviceName = "rs690"
)

// ControlServer owns the pulser state and the instrument. All operations
// are serialized, the pulser itself is not safe for concurrent use.
type ControlServer struct {
	context.Context
	*config.Config
	mu     sync.Mutex
	pulser *pulser.Pulser
	device deviceifc.Device
	state  *SeqState
	api    ifc.ApiServer
	gen    uint16
	stored *pulser.Sequence
}

var _ ifc.ControlServer = &ControlServer{}

// NewControlServer opens the configured transport, applies the pulser
// configuration and ends the preparations.
func NewControlServer(ctx context.Context, cfg *config.Config) (ifc.ControlServer, error) {
	log.Info("Initializing control server: transport: %s port: %s", cfg.Kind, cfg.Port)
	link, err := transport.Open(cfg.TransportConfig)
	if err != nil {
		return nil, err
	}
	device := rs690.NewDevice(DeviceName, link, cfg.PollDuration())
	s, err := newControlServer(ctx, cfg, device)
	if err != nil {
		link.Close()
		return nil, err
	}
	return s, nil
}

func newControlServer(ctx context.Context, cfg *config.Config, device deviceifc.Device) (*ControlServer, error) {
	p := pulser.New(device)
	if err := pulser.Configure(p, cfg.PulserConfig); err != nil {
		return nil, err
	}
	if err := p.Finalize(); err != nil {
		return nil, err
	}

	state, err := NewSeqState(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &ControlServer{
		Context: ctx,
		Config:  cfg,
		pulser:  p,
		device:  device,
		state:   state,
	}
	if last, err := state.Last(); err == nil {
		log.Info("Last stored generation: %d", last.Generation)
		s.gen = last.Generation
	}

	apiServer, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		state.Close()
		return nil, err
	}
	s.api = apiServer
	return s, nil
}

// Run starts the experiment and serves the API until the context is done
// or the API server fails.
func (s *ControlServer) Run() error {
	defer s.device.Close()
	defer s.state.Close()

	if err := s.Start(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.api.Run()
	}()

	var err error
	select {
	case <-s.Done():
	case err = <-errChan:
		log.Error("API server stopped: %s", err)
	}
	if stopErr := s.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

func (s *ControlServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pulser.StartExperiment(s); err != nil {
		return err
	}
	if err := s.state.PutSetup(s.pulser.HardwareSetup()); err != nil {
		log.Error("Can not store hardware setup: %s", err)
	}
	s.persist()
	return nil
}

func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pulser.Phase() != pulser.Running {
		return nil
	}
	return s.pulser.EndExperiment(context.Background())
}

// persist stores the current generation if it has not been stored yet.
// The table is already in the instrument, so a failure is only logged.
func (s *ControlServer) persist() *ifc.SeqSummary {
	cur := s.pulser.Current()
	if cur == nil {
		return nil
	}
	gens := s.pulser.Generations()
	if cur == s.stored {
		return NewSeqSummary(s.gen, cur, s.pulser.Timebase(), gens.Dirty)
	}
	s.gen++
	sum := NewSeqSummary(s.gen, cur, s.pulser.Timebase(), gens.Dirty)
	if err := s.state.PutSequence(sum, cur); err != nil {
		log.Error("Can not store generation %d: %s", s.gen, err)
	}
	s.stored = cur
	return sum
}

func optionalTime(t float64, err error) *float64 {
	if err != nil {
		return nil
	}
	return &t
}

func (s *ControlServer) pulseInfo(id int) (*ifc.PulseInfo, error) {
	pl, err := s.pulser.Pulse(id)
	if err != nil {
		return nil, err
	}
	info := &ifc.PulseInfo{
		ID:            id,
		Active:        pl.IsActive,
		PhaseCycle:    pl.Cycle,
		Position:      optionalTime(s.pulser.Position(id)),
		Length:        optionalTime(s.pulser.Length(id)),
		PositionDelta: optionalTime(s.pulser.PositionDelta(id)),
		LengthDelta:   optionalTime(s.pulser.LengthDelta(id)),
	}
	if pl.HasFunction {
		info.Function = pl.Function.String()
	}
	return info, nil
}

func (s *ControlServer) GetPulse(id int) (*ifc.PulseInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulseInfo(id)
}

// PulseOp changes one pulse. The change reaches the instrument with the
// next Update.
func (s *ControlServer) PulseOp(id int, op string, value float64) (*ifc.PulseInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Debug("Pulse operation: pulse: %d op: %s value: %g", id, op, value)

	var err error
	switch op {
	case ifc.OpShift:
		err = s.pulser.ShiftPosition(id)
	case ifc.OpIncrement:
		err = s.pulser.IncrementLength(id)
	case ifc.OpPosition:
		err = s.pulser.ChangePosition(id, value)
	case ifc.OpLength:
		err = s.pulser.ChangeLength(id, value)
	case ifc.OpDPos:
		_, err = s.pulser.ChangePositionDelta(id, value)
	case ifc.OpDLen:
		_, err = s.pulser.ChangeLengthDelta(id, value)
	default:
		return nil, ErrUnknownOperation{What: op}
	}
	if err != nil {
		return nil, err
	}
	return s.pulseInfo(id)
}

func (s *ControlServer) Reset(ids ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulser.Reset(ids...)
}

func (s *ControlServer) Phase(op string, fns ...pulser.Function) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch op {
	case ifc.PhaseNext:
		return s.pulser.NextPhase(fns...)
	case ifc.PhaseReset:
		return s.pulser.ResetPhase(fns...)
	}
	return ErrUnknownOperation{What: op}
}

// Update commits all pending changes. A rejected change leaves the previous
// generation in place and is returned as a recoverable pulser error.
func (s *ControlServer) Update() (*ifc.SeqSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pulser.Update(s); err != nil {
		return nil, err
	}
	return s.persist(), nil
}

func (s *ControlServer) SetRunning(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulser.SetRunning(s, on)
}

func (s *ControlServer) LastSequence() (*ifc.SeqSummary, error) {
	return s.state.Last()
}

func (s *ControlServer) Status() (*deviceifc.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.Status(s)
}

func (s *ControlServer) GetDevice() deviceifc.Device {
	return s.device
}
