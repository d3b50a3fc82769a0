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
	"strconv"
	"strings"
)

// ChannelID identifies one output bit: field*BitsPerField + bit.
type ChannelID int

func NewChannelID(field, bit int) (ChannelID, error) {
	if field < 0 || field >= NumFields || bit < 0 || bit >= BitsPerField {
		return 0, newError(CodeConfig, "invalid channel: field %d bit %d", field, bit)
	}
	return ChannelID(field*BitsPerField + bit), nil
}

func (c ChannelID) Field() int {
	return int(c) / BitsPerField
}

func (c ChannelID) Bit() int {
	return int(c) % BitsPerField
}

func (c ChannelID) mask() uint16 {
	return 1 << uint(c.Bit())
}

// String returns the connector name, e.g. A0 or D15.
func (c ChannelID) String() string {
	return fmt.Sprintf("%c%d", 'A'+c.Field(), c.Bit())
}

// ParseChannel accepts connector names like "A0", "c12" or plain channel numbers.
func ParseChannel(name string) (ChannelID, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, newError(CodeConfig, "empty channel name")
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n < 0 || n >= NumChannels {
			return 0, newError(CodeConfig, "invalid channel number %d", n)
		}
		return ChannelID(n), nil
	}
	field := int(name[0] - 'A')
	bit, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, newError(CodeConfig, "invalid channel name %q", name)
	}
	return NewChannelID(field, bit)
}

// PulseParams is one active interval on a channel.
type PulseParams struct {
	Pos     Ticks
	Len     Ticks
	PulseID int
}

// Channel is one physical output bit.
type Channel struct {
	ID          ChannelID
	Function    Function
	Assigned    bool
	Current     []PulseParams
	Old         []PulseParams
	NeedsUpdate bool
}

func newChannel(id ChannelID) *Channel {
	return &Channel{ID: id}
}

// sameParams compares the current and the last committed buffer.
func (c *Channel) sameParams() bool {
	if len(c.Current) != len(c.Old) {
		return false
	}
	for i := range c.Current {
		if c.Current[i].Pos != c.Old[i].Pos || c.Current[i].Len != c.Old[i].Len {
			return false
		}
	}
	return true
}

func (c *Channel) commit() {
	c.Old = append(c.Old[:0], c.Current...)
	c.NeedsUpdate = false
}
