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

package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	bugst "go.bug.st/serial"

	"jinr.ru/greenlab/go-pulser/pkg/config"
)

// Link sends line oriented commands to the instrument.
type Link interface {
	// Command sends cmd without waiting for a reply.
	Command(ctx context.Context, cmd string) error
	// Query sends cmd and returns the reply line without the terminator.
	Query(ctx context.Context, cmd string) (string, error)
	Close() error
}

// ErrUnknownTransport returned when the configured transport kind is not supported
type ErrUnknownTransport struct {
	Kind string
}

func (e ErrUnknownTransport) Error() string {
	return fmt.Sprintf("Unknown transport: %s. Must be one of: %s, %s, %s",
		e.Kind, config.TransportSerial, config.TransportGPIB, config.TransportNone)
}

// ErrTimeout returned when the instrument does not answer a query in time
type ErrTimeout struct {
	Port    string
	Cmd     string
	Timeout time.Duration
}

func (e ErrTimeout) Error() string {
	return fmt.Sprintf("No reply to %q from %s within %s", e.Cmd, e.Port, e.Timeout)
}

func (e ErrTimeout) IsTimeout() bool {
	return true
}

// Open connects to the instrument the way cfg describes.
func Open(cfg *config.TransportConfig) (Link, error) {
	switch strings.ToLower(cfg.Kind) {
	case config.TransportSerial:
		return OpenSerial(cfg.Port, cfg.Baud, cfg.TimeoutDuration())
	case config.TransportGPIB:
		return OpenGPIB(cfg.Port, cfg.GPIBAddress)
	case config.TransportNone:
		return NewRecorder(nil), nil
	}
	return nil, ErrUnknownTransport{Kind: cfg.Kind}
}

// ListPorts returns the names of the serial ports found on this machine.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "listing serial ports")
	}
	return ports, nil
}

// canceled returns the context error, if any, wrapped with what was being done.
func canceled(ctx context.Context, what string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, what)
	}
	return nil
}
