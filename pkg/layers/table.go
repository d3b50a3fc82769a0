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
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-pulser/pkg/log"
)

const (
	// TableLayerNum identifies the layer
	TableLayerNum = 2999
	// TableSync is a magic number that appears in the beginning of each table image
	TableSync = 0x5253
	// TableHeaderSize is the size of the header in bytes, the CRC follows the payload
	TableHeaderSize = 20
	TableTailSize   = 4
)

type TableType uint16

const (
	TableTypeEntries TableType = 0x0001
	TableTypeSetup   TableType = 0x0002
)

type tableTypeMetadata struct {
	decoder   gopacket.Decoder
	name      string
	layerType gopacket.LayerType
}

var tableMetadata map[TableType]tableTypeMetadata

func init() {
	tableMetadata = map[TableType]tableTypeMetadata{
		TableTypeEntries: {gopacket.DecodeFunc(DecodeEntriesLayer), "Entries", EntriesLayerType},
		TableTypeSetup:   {gopacket.DecodeFunc(DecodeSetupLayer), "Setup", SetupLayerType},
	}
}

// LayerType returns the layer type of the table payload
func (t TableType) LayerType() gopacket.LayerType {
	if md, ok := tableMetadata[t]; ok {
		return md.layerType
	}
	return gopacket.LayerTypePayload
}

func (t TableType) String() string {
	if md, ok := tableMetadata[t]; ok {
		return md.name
	}
	return fmt.Sprintf("UnknownTableType(%d)", uint16(t))
}

type TableHeader struct {
	Type TableType
	Sync uint16
	// Gen counts the table images written for one experiment
	Gen uint16
	// Len is the number of records in the payload
	Len      uint16
	Class    uint16
	PadTicks uint16
	Idle     [4]uint16
}

// TableLayer is the envelope of a table image: the header, a payload of
// Len records and a crc32 sum over header and payload.
type TableLayer struct {
	layers.BaseLayer
	TableHeader
	Crc uint32
}

var TableLayerType = gopacket.RegisterLayerType(TableLayerNum,
	gopacket.LayerTypeMetadata{Name: "TableLayerType", Decoder: gopacket.DecodeFunc(decodeTableLayer)})

func (tl *TableLayer) LayerType() gopacket.LayerType {
	return TableLayerType
}

// SerializeHeader serializes only the header. The CRC is calculated from the
// serialized header and payload before the layers are put together.
func (tl *TableLayer) SerializeHeader(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(tl.Type))
	binary.LittleEndian.PutUint16(buf[2:4], tl.Sync)
	binary.LittleEndian.PutUint16(buf[4:6], tl.Gen)
	binary.LittleEndian.PutUint16(buf[6:8], tl.Len)
	binary.LittleEndian.PutUint16(buf[8:10], tl.Class)
	binary.LittleEndian.PutUint16(buf[10:12], tl.PadTicks)
	for i, w := range tl.Idle {
		binary.LittleEndian.PutUint16(buf[12+2*i:14+2*i], w)
	}
}

// SerializeTo serializes the layer into bytes and writes the bytes to the SerializeBuffer
func (tl *TableLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	headerBytes, err := b.PrependBytes(TableHeaderSize)
	if err != nil {
		return err
	}
	tl.SerializeHeader(headerBytes)

	tailBytes, err := b.AppendBytes(TableTailSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(tailBytes[0:4], tl.Crc)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a table image
func (tl *TableLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < TableHeaderSize+TableTailSize {
		df.SetTruncated()
		return errors.New("table image too short")
	}
	if binary.LittleEndian.Uint16(data[2:4]) != TableSync {
		return fmt.Errorf("wrong table sync, must be 0x%04x", TableSync)
	}

	tl.BaseLayer = layers.BaseLayer{
		Contents: data[0:TableHeaderSize],
		Payload:  data[TableHeaderSize : len(data)-TableTailSize],
	}

	tl.Type = TableType(binary.LittleEndian.Uint16(data[0:2]))
	tl.Sync = binary.LittleEndian.Uint16(data[2:4])
	tl.Gen = binary.LittleEndian.Uint16(data[4:6])
	tl.Len = binary.LittleEndian.Uint16(data[6:8])
	tl.Class = binary.LittleEndian.Uint16(data[8:10])
	tl.PadTicks = binary.LittleEndian.Uint16(data[10:12])
	for i := range tl.Idle {
		tl.Idle[i] = binary.LittleEndian.Uint16(data[12+2*i : 14+2*i])
	}
	tl.Crc = binary.LittleEndian.Uint32(data[len(data)-TableTailSize:])

	if sum := crc32.ChecksumIEEE(data[:len(data)-TableTailSize]); sum != tl.Crc {
		return fmt.Errorf("wrong table crc 0x%08x, calculated 0x%08x", tl.Crc, sum)
	}
	return nil
}

func (tl *TableLayer) NextLayerType() gopacket.LayerType {
	return tl.Type.LayerType()
}

func decodeTableLayer(data []byte, p gopacket.PacketBuilder) error {
	tl := &TableLayer{}
	err := tl.DecodeFromBytes(data, p)
	if err != nil {
		log.Debug("Error while decoding table layer: %s", err)
		return err
	}
	p.AddLayer(tl)
	return p.NextDecoder(tl.NextLayerType())
}

// payload is a table record layer that can serialize itself into a plain buffer.
type payload interface {
	gopacket.SerializableLayer
	Serialize(buf []byte)
	Size() int
}

// tableToBytes puts the table envelope around pl and returns the image.
func tableToBytes(tl *TableLayer, pl payload) ([]byte, error) {
	tl.Sync = TableSync

	headerBytes := make([]byte, TableHeaderSize)
	tl.SerializeHeader(headerBytes)
	plBytes := make([]byte, pl.Size())
	pl.Serialize(plBytes)
	tl.Crc = crc32.ChecksumIEEE(append(headerBytes, plBytes...))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, tl, pl)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeTable decodes a table image and returns the envelope and the
// payload layer of the wanted type.
func decodeTable(data []byte, want gopacket.LayerType) (*TableLayer, gopacket.Layer, error) {
	packet := gopacket.NewPacket(data, TableLayerType, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, nil, errLayer.Error()
	}
	tl, ok := packet.Layer(TableLayerType).(*TableLayer)
	if !ok {
		return nil, nil, errors.New("no table layer")
	}
	pl := packet.Layer(want)
	if pl == nil {
		return nil, nil, fmt.Errorf("table image of type %s does not contain %s", tl.Type, want)
	}
	return tl, pl, nil
}
