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

package device

type CmdAlias int

const (
	CmdReset CmdAlias = iota
	CmdIdentify
	CmdStatus
	CmdError
	CmdTimebase
	CmdTrigger
	CmdSlope
	CmdMapChannel
	CmdIdle
	CmdTableClear
	CmdTableEntry
	CmdTableLength
	CmdTableLoad
	CmdRun
	CmdStop
	CmdLock
	CmdLocal
	CmdAliasLimit
)

// CmdMap holds the command mnemonics of the RS690 remote interface.
// Arguments are appended after a space and separated by commas.
var CmdMap = map[CmdAlias]string{
	CmdReset:       "*RST",
	CmdIdentify:    "*IDN?",
	CmdStatus:      "STAT?",
	CmdError:       "SYST:ERR?",
	CmdTimebase:    "TB",
	CmdTrigger:     "TRIG",
	CmdSlope:       "TRIG:SLOP",
	CmdMapChannel:  "MAP",
	CmdIdle:        "IDLE",
	CmdTableClear:  "TAB:CLR",
	CmdTableEntry:  "TAB:ENT",
	CmdTableLength: "TAB:LEN",
	CmdTableLoad:   "TAB:LOAD",
	CmdRun:         "RUN",
	CmdStop:        "STOP",
	CmdLock:        "LLO",
	CmdLocal:       "LOC",
}

const (
	StatusBitBusy    uint16 = 0x0001
	StatusBitRunning uint16 = 0x0002
	StatusBitError   uint16 = 0x0004
	StatusBitTrigger uint16 = 0x0008
)

const (
	TriggerInternal = "INT"
	TriggerExternal = "EXT"
	SlopePositive   = "POS"
	SlopeNegative   = "NEG"
)
