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

package layers

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-pulser/pkg/pulser"
)

const (
	// SetupLayerNum identifies the layer
	SetupLayerNum = 2997
	// time base, trigger mode and slope
	setupFixedSize = 8
	mappingSize    = 4
)

type SetupLayer struct {
	layers.BaseLayer
	TimebaseNs uint32
	Trigger    pulser.TriggerMode
	Slope      pulser.TriggerSlope
	Channels   []pulser.ChannelMapping
}

var SetupLayerType = gopacket.RegisterLayerType(SetupLayerNum,
	gopacket.LayerTypeMetadata{Name: "SetupLayerType", Decoder: gopacket.DecodeFunc(DecodeSetupLayer)})

func (sl *SetupLayer) LayerType() gopacket.LayerType {
	return SetupLayerType
}

func (sl *SetupLayer) Size() int {
	return setupFixedSize + len(sl.Channels)*mappingSize
}

func (sl *SetupLayer) Serialize(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], sl.TimebaseNs)
	buf[4] = uint8(sl.Trigger)
	buf[5] = uint8(sl.Slope)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	for i, m := range sl.Channels {
		b := buf[setupFixedSize+i*mappingSize : setupFixedSize+(i+1)*mappingSize]
		b[0] = uint8(m.Channel)
		b[1] = uint8(m.Function)
		b[2] = 0
		if m.Inverted {
			b[2] = 1
		}
		b[3] = 0
	}
}

// SerializeTo serializes the setup into bytes and writes the bytes to the SerializeBuffer
func (sl *SetupLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(sl.Size())
	if err != nil {
		return err
	}
	sl.Serialize(bytes)
	return nil
}

func (sl *SetupLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < setupFixedSize || (len(data)-setupFixedSize)%mappingSize != 0 {
		df.SetTruncated()
		return fmt.Errorf("setup payload of %d bytes is malformed", len(data))
	}
	sl.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	sl.TimebaseNs = binary.LittleEndian.Uint32(data[0:4])
	sl.Trigger = pulser.TriggerMode(data[4])
	sl.Slope = pulser.TriggerSlope(data[5])
	n := (len(data) - setupFixedSize) / mappingSize
	sl.Channels = make([]pulser.ChannelMapping, n)
	for i := range sl.Channels {
		b := data[setupFixedSize+i*mappingSize:]
		sl.Channels[i] = pulser.ChannelMapping{
			Channel:  pulser.ChannelID(b[0]),
			Function: pulser.Function(b[1]),
			Inverted: b[2] != 0,
		}
	}
	return nil
}

func DecodeSetupLayer(data []byte, p gopacket.PacketBuilder) error {
	sl := &SetupLayer{}
	err := sl.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(sl)
	return nil
}

// SetupToBytes returns the image of the hardware setup.
func SetupToBytes(setup *pulser.HardwareSetup) ([]byte, error) {
	tl := &TableLayer{}
	tl.Type = TableTypeSetup
	tl.Len = uint16(len(setup.Channels))
	tl.Class = uint16(setup.Timebase.Class())
	tl.Idle = setup.Idle
	sl := &SetupLayer{
		TimebaseNs: uint32(setup.Timebase.Nanoseconds()),
		Trigger:    setup.Trigger,
		Slope:      setup.Slope,
		Channels:   setup.Channels,
	}
	return tableToBytes(tl, sl)
}

func BytesToSetup(data []byte) (*pulser.HardwareSetup, error) {
	tl, layer, err := decodeTable(data, SetupLayerType)
	if err != nil {
		return nil, err
	}
	sl := layer.(*SetupLayer)
	tb, err := pulser.NewTimebase(float64(sl.TimebaseNs) * 1e-9)
	if err != nil {
		return nil, err
	}
	return &pulser.HardwareSetup{
		Timebase: tb,
		Trigger:  sl.Trigger,
		Slope:    sl.Slope,
		Channels: sl.Channels,
		Idle:     tl.Idle,
	}, nil
}
