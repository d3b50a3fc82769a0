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
	// EntriesLayerNum identifies the layer
	EntriesLayerNum = 2998
	// EntrySize is the size of one table entry: a word per field, the word
	// count and the flags
	EntrySize = 2*pulser.NumFields + 4
)

const entryComposite = 0x0001

type EntriesLayer struct {
	layers.BaseLayer
	Entries []pulser.Entry
}

var EntriesLayerType = gopacket.RegisterLayerType(EntriesLayerNum,
	gopacket.LayerTypeMetadata{Name: "EntriesLayerType", Decoder: gopacket.DecodeFunc(DecodeEntriesLayer)})

// LayerType returns the type of the entries layer in the layer catalog
func (el *EntriesLayer) LayerType() gopacket.LayerType {
	return EntriesLayerType
}

func (el *EntriesLayer) Size() int {
	return len(el.Entries) * EntrySize
}

// Serialize writes the entries to buf which must be at least Size bytes long.
func (el *EntriesLayer) Serialize(buf []byte) {
	for i, e := range el.Entries {
		b := buf[i*EntrySize : (i+1)*EntrySize]
		for f, w := range e.Fields {
			binary.LittleEndian.PutUint16(b[2*f:2*f+2], w)
		}
		binary.LittleEndian.PutUint16(b[8:10], uint16(e.Words))
		var flags uint16
		if e.Composite {
			flags |= entryComposite
		}
		binary.LittleEndian.PutUint16(b[10:12], flags)
	}
}

// SerializeTo serializes the entries into bytes and writes the bytes to the SerializeBuffer
func (el *EntriesLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	for _, e := range el.Entries {
		if e.Words <= 0 || e.Words > pulser.MaxWordsPerEntry {
			return fmt.Errorf("entry with %d words can not be serialized", e.Words)
		}
	}
	bytes, err := b.AppendBytes(el.Size())
	if err != nil {
		return err
	}
	el.Serialize(bytes)
	return nil
}

func (el *EntriesLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data)%EntrySize != 0 {
		df.SetTruncated()
		return fmt.Errorf("entries payload of %d bytes is not a multiple of %d", len(data), EntrySize)
	}
	el.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	el.Entries = make([]pulser.Entry, len(data)/EntrySize)
	for i := range el.Entries {
		b := data[i*EntrySize : (i+1)*EntrySize]
		e := &el.Entries[i]
		for f := range e.Fields {
			e.Fields[f] = binary.LittleEndian.Uint16(b[2*f : 2*f+2])
		}
		e.Words = int64(binary.LittleEndian.Uint16(b[8:10]))
		e.Composite = binary.LittleEndian.Uint16(b[10:12])&entryComposite != 0
	}
	return nil
}

func DecodeEntriesLayer(data []byte, p gopacket.PacketBuilder) error {
	el := &EntriesLayer{}
	err := el.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(el)
	return nil
}

// SequenceToBytes returns the table image of a compiled sequence.
func SequenceToBytes(seq *pulser.Sequence, gen uint16) ([]byte, error) {
	if len(seq.Entries) > pulser.MaxTableEntries {
		return nil, fmt.Errorf("sequence has %d entries, the maximum is %d", len(seq.Entries), pulser.MaxTableEntries)
	}
	tl := &TableLayer{}
	tl.Type = TableTypeEntries
	tl.Gen = gen
	tl.Len = uint16(len(seq.Entries))
	tl.Class = uint16(seq.Class)
	tl.PadTicks = uint16(seq.PadTicks)
	tl.Idle = seq.Idle
	return tableToBytes(tl, &EntriesLayer{Entries: seq.Entries})
}

// BytesToSequence decodes a table image. The frames of the sequence are not
// part of the image and stay empty.
func BytesToSequence(data []byte) (*pulser.Sequence, uint16, error) {
	tl, layer, err := decodeTable(data, EntriesLayerType)
	if err != nil {
		return nil, 0, err
	}
	el := layer.(*EntriesLayer)
	if int(tl.Len) != len(el.Entries) {
		return nil, 0, fmt.Errorf("table header announces %d entries, found %d", tl.Len, len(el.Entries))
	}
	seq := &pulser.Sequence{
		Class:    pulser.TimebaseClass(tl.Class),
		Entries:  el.Entries,
		Idle:     tl.Idle,
		PadTicks: pulser.Ticks(tl.PadTicks),
	}
	return seq, tl.Gen, nil
}
