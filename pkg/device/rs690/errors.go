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
	"fmt"
)

// ErrDevice returned when the pulser reports an error
type ErrDevice struct {
	Name string
	Msg  string
}

func (e ErrDevice) Error() string {
	return fmt.Sprintf("Pulser %s reports an error: %s", e.Name, e.Msg)
}

// ErrNotInitialized returned when a table is loaded before the pulser is set up
type ErrNotInitialized struct {
	Name string
}

func (e ErrNotInitialized) Error() string {
	return fmt.Sprintf("Pulser %s is not initialized", e.Name)
}

// ErrBadReply returned when a reply can not be parsed
type ErrBadReply struct {
	Cmd   string
	Reply string
}

func (e ErrBadReply) Error() string {
	return fmt.Sprintf("Unexpected reply to %s: %q", e.Cmd, e.Reply)
}
