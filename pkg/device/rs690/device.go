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

package rs690

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"jinr.ru/greenlab/go-pulser/pkg/device"
	deviceifc "jinr.ru/greenlab/go-pulser/pkg/device/ifc"
	"jinr.ru/greenlab/go-pulser/pkg/log"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
	"jinr.ru/greenlab/go-pulser/pkg/transport"
)

// Device programs an RS690 pulse generator over a transport link.
type Device struct {
	name  string
	link  transport.Link
	poll  time.Duration
	setup *pulser.HardwareSetup
	// number of tables loaded since the last Init
	loads int
}

var _ deviceifc.Device = &Device{}

// NewDevice ...
func NewDevice(name string, link transport.Link, poll time.Duration) *Device {
	return &Device{
		name: name,
		link: link,
		poll: poll,
	}
}

// GetName ...
func (d *Device) GetName() string {
	return d.name
}

func (d *Device) Loads() int {
	return d.loads
}

func formatCommand(alias device.CmdAlias, args ...interface{}) string {
	cmd := device.CmdMap[alias]
	if len(args) == 0 {
		return cmd
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprint(arg)
	}
	return cmd + " " + strings.Join(parts, ",")
}

func (d *Device) command(ctx context.Context, alias device.CmdAlias, args ...interface{}) error {
	return d.link.Command(ctx, formatCommand(alias, args...))
}

func (d *Device) Identify(ctx context.Context) (string, error) {
	return d.link.Query(ctx, device.CmdMap[device.CmdIdentify])
}

// Status queries and decodes the status word.
func (d *Device) Status(ctx context.Context) (*deviceifc.Status, error) {
	reply, err := d.link.Query(ctx, device.CmdMap[device.CmdStatus])
	if err != nil {
		return nil, err
	}
	word, err := strconv.ParseUint(strings.TrimSpace(reply), 0, 16)
	if err != nil {
		return nil, ErrBadReply{Cmd: device.CmdMap[device.CmdStatus], Reply: reply}
	}
	status := uint16(word)
	return &deviceifc.Status{
		Busy:    status&device.StatusBitBusy != 0,
		Running: status&device.StatusBitRunning != 0,
		Error:   status&device.StatusBitError != 0,
		Trigger: status&device.StatusBitTrigger != 0,
	}, nil
}

// IsRunning checks if StatusBitRunning is set
func (d *Device) IsRunning(ctx context.Context) (bool, error) {
	status, err := d.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Running, nil
}

// waitReady polls the status until the pulser is no longer busy.
func (d *Device) waitReady(ctx context.Context) error {
	for {
		status, err := d.Status(ctx)
		if err != nil {
			return err
		}
		if status.Error {
			msg, err := d.link.Query(ctx, device.CmdMap[device.CmdError])
			if err != nil {
				return err
			}
			return ErrDevice{Name: d.name, Msg: msg}
		}
		if !status.Busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for the pulser")
		case <-time.After(d.poll):
		}
	}
}

func (d *Device) Reset(ctx context.Context) error {
	if err := d.command(ctx, device.CmdReset); err != nil {
		return err
	}
	d.setup = nil
	d.loads = 0
	return d.waitReady(ctx)
}

// Init resets the pulser, locks its front panel and sends the time base,
// the trigger and the channel mapping.
func (d *Device) Init(ctx context.Context, setup *pulser.HardwareSetup) error {
	if err := d.Reset(ctx); err != nil {
		return err
	}
	trigger, slope := device.TriggerInternal, device.SlopePositive
	if setup.Trigger == pulser.TriggerExternal {
		trigger = device.TriggerExternal
	}
	if setup.Slope == pulser.SlopeNegative {
		slope = device.SlopeNegative
	}
	cmds := []string{
		formatCommand(device.CmdLock),
		formatCommand(device.CmdTimebase, setup.Timebase.Nanoseconds()),
		formatCommand(device.CmdTrigger, trigger),
		formatCommand(device.CmdSlope, slope),
	}
	for _, m := range setup.Channels {
		inverted := 0
		if m.Inverted {
			inverted = 1
		}
		cmds = append(cmds, formatCommand(device.CmdMapChannel, m.Channel, m.Function, inverted))
	}
	cmds = append(cmds, formatCommand(device.CmdIdle, hexWords(setup.Idle)...))
	for _, cmd := range cmds {
		if err := d.link.Command(ctx, cmd); err != nil {
			return err
		}
	}
	if err := d.waitReady(ctx); err != nil {
		return err
	}
	d.setup = setup
	log.Info("Pulser %s initialized: %s time base, %d channels", d.name,
		pulser.FormatTime(setup.Timebase.Seconds()), len(setup.Channels))
	return nil
}

func hexWords(p pulser.Pattern) []interface{} {
	words := make([]interface{}, len(p))
	for i, w := range p {
		words[i] = fmt.Sprintf("%04X", w)
	}
	return words
}

// Load writes the table of seq and makes it the active program.
func (d *Device) Load(ctx context.Context, seq *pulser.Sequence, dirty []pulser.ChannelID) error {
	if d.setup == nil {
		return ErrNotInitialized{Name: d.name}
	}
	if seq.Class != d.setup.Timebase.Class() {
		return fmt.Errorf("sequence packed for the %s class, pulser set up for %s", seq.Class, d.setup.Timebase.Class())
	}
	if len(seq.Entries) > pulser.MaxTableEntries {
		return fmt.Errorf("table of %d entries does not fit into the pulser", len(seq.Entries))
	}
	names := make([]string, len(dirty))
	for i, ch := range dirty {
		names[i] = ch.String()
	}
	log.Debug("Loading %d table entries into %s, changed channels: %s", len(seq.Entries), d.name,
		strings.Join(names, " "))

	if err := d.command(ctx, device.CmdTableClear); err != nil {
		return err
	}
	for i, e := range seq.Entries {
		args := append([]interface{}{i}, hexWords(e.Fields)...)
		args = append(args, e.Words)
		if err := d.command(ctx, device.CmdTableEntry, args...); err != nil {
			return err
		}
	}
	if err := d.command(ctx, device.CmdTableLength, len(seq.Entries)); err != nil {
		return err
	}
	if err := d.command(ctx, device.CmdTableLoad); err != nil {
		return err
	}
	if err := d.waitReady(ctx); err != nil {
		return err
	}
	d.loads++
	return nil
}

// Run starts or stops the output.
func (d *Device) Run(ctx context.Context, on bool) error {
	alias := device.CmdStop
	if on {
		alias = device.CmdRun
	}
	if err := d.command(ctx, alias); err != nil {
		return err
	}
	return d.waitReady(ctx)
}

// Close unlocks the front panel and closes the link.
func (d *Device) Close() error {
	if err := d.command(context.Background(), device.CmdLocal); err != nil {
		log.Warning("Error returning %s to local control: %s", d.name, err)
	}
	return d.link.Close()
}
