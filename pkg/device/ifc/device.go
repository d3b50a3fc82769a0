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
	"context"

	"jinr.ru/greenlab/go-pulser/pkg/pulser"
)

// Status is the decoded reply to a status query.
type Status struct {
	Busy    bool `json:"busy"`
	Running bool `json:"running"`
	Error   bool `json:"error"`
	Trigger bool `json:"trigger"`
}

type Device interface {
	pulser.Programmer

	Identify(ctx context.Context) (string, error)
	Status(ctx context.Context) (*Status, error)
	Reset(ctx context.Context) error
	IsRunning(ctx context.Context) (bool, error)
	Close() error

	GetName() string
}
