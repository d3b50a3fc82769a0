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
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-pulser/pkg/layers"
	"jinr.ru/greenlab/go-pulser/pkg/log"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
)

const (
	BucketNamePrefix = "seq_"
	TablesBucket     = "tables"
	SummaryBucket    = "summary"
	SetupBucket      = "setup"
	LastKey          = "last"
	SetupKey         = "setup"
)

// NewSeqSummary describes a compiled sequence. tb may be unset, then the
// length in seconds is left out.
func NewSeqSummary(gen uint16, seq *pulser.Sequence, tb pulser.Timebase, dirty []pulser.ChannelID) *ifc.SeqSummary {
	sum := &ifc.SeqSummary{
		Generation: gen,
		Class:      seq.Class.String(),
		Entries:    len(seq.Entries),
		Frames:     len(seq.Frames),
		Ticks:      int64(seq.Length()),
		PadTicks:   int64(seq.PadTicks),
		Committed:  time.Now().UTC().Format(time.RFC3339),
	}
	if tb.IsSet() {
		if t, err := tb.ToTime(seq.Length()); err == nil {
			sum.Length = pulser.FormatTime(t)
		}
	}
	for _, c := range dirty {
		sum.Dirty = append(sum.Dirty, c.String())
	}
	return sum
}

// SeqState keeps the committed hardware tables in a bbolt database, one
// binary table image and one yaml summary per generation.
type SeqState struct {
	context.Context
	DB *bbolt.DB
}

func NewSeqState(ctx context.Context, dbPath string) (*SeqState, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{TablesBucket, SummaryBucket, SetupBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucketName(name))); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &SeqState{
		Context: ctx,
		DB:      db,
	}, nil
}

func uint16ToByte(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func bucketName(name string) string {
	return fmt.Sprintf("%s%s", BucketNamePrefix, name)
}

func bucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(bucketName(name)))
	if b == nil {
		return nil, ErrBucketNotFound{Name: bucketName(name)}
	}
	return b, nil
}

// Close ...
func (s *SeqState) Close() {
	s.DB.Close()
}

// PutSequence stores the table image and the summary of a committed
// generation and marks it as the last one.
func (s *SeqState) PutSequence(sum *ifc.SeqSummary, seq *pulser.Sequence) error {
	log.Debug("Storing sequence: generation: %d entries: %d", sum.Generation, len(seq.Entries))
	image, err := layers.SequenceToBytes(seq, sum.Generation)
	if err != nil {
		return err
	}
	sumBytes, err := yaml.Marshal(sum)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		tables, err := bucket(tx, TablesBucket)
		if err != nil {
			return err
		}
		summaries, err := bucket(tx, SummaryBucket)
		if err != nil {
			return err
		}
		key := uint16ToByte(sum.Generation)
		if err := tables.Put(key, image); err != nil {
			return err
		}
		if err := summaries.Put(key, sumBytes); err != nil {
			return err
		}
		return summaries.Put([]byte(LastKey), key)
	})
}

// GetSequence returns the stored table of a generation.
func (s *SeqState) GetSequence(gen uint16) (*pulser.Sequence, error) {
	log.Debug("Getting sequence: generation: %d", gen)
	var image []byte
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, TablesBucket)
		if err != nil {
			return err
		}
		v := b.Get(uint16ToByte(gen))
		if v == nil {
			return ErrGenerationNotFound{Gen: gen}
		}
		image = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return nil, err
	}
	seq, stored, err := layers.BytesToSequence(image)
	if err != nil {
		return nil, err
	}
	if stored != gen {
		return nil, ErrGenerationMismatch{Key: gen, Stored: stored}
	}
	return seq, nil
}

// GetSummary returns the summary of a generation.
func (s *SeqState) GetSummary(gen uint16) (*ifc.SeqSummary, error) {
	sum := &ifc.SeqSummary{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, SummaryBucket)
		if err != nil {
			return err
		}
		v := b.Get(uint16ToByte(gen))
		if v == nil {
			return ErrGenerationNotFound{Gen: gen}
		}
		return yaml.Unmarshal(v, sum)
	}); err != nil {
		return nil, err
	}
	return sum, nil
}

// Last returns the summary of the last stored generation.
func (s *SeqState) Last() (*ifc.SeqSummary, error) {
	var key []byte
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, SummaryBucket)
		if err != nil {
			return err
		}
		v := b.Get([]byte(LastKey))
		if v == nil {
			return ErrNoSequence{}
		}
		key = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return nil, err
	}
	return s.GetSummary(binary.BigEndian.Uint16(key))
}

// PutSetup stores the hardware setup sent at the start of an experiment.
func (s *SeqState) PutSetup(setup *pulser.HardwareSetup) error {
	image, err := layers.SetupToBytes(setup)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, SetupBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(SetupKey), image)
	})
}

func (s *SeqState) GetSetup() (*pulser.HardwareSetup, error) {
	var image []byte
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, SetupBucket)
		if err != nil {
			return err
		}
		v := b.Get([]byte(SetupKey))
		if v == nil {
			return ErrNoSequence{}
		}
		image = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return nil, err
	}
	return layers.BytesToSetup(image)
}
