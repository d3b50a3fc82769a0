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
	"fmt"
)

// ErrBucketNotFound returned when the sequence database misses one of its buckets
type ErrBucketNotFound struct {
	Name string
}

func (e ErrBucketNotFound) Error() string {
	return fmt.Sprintf("Bucket not found: %s", e.Name)
}

type ErrGenerationNotFound struct {
	Gen uint16
}

func (e ErrGenerationNotFound) Error() string {
	return fmt.Sprintf("Generation not found: %d", e.Gen)
}

// ErrGenerationMismatch returned when a stored table carries another generation than its key
type ErrGenerationMismatch struct {
	Key    uint16
	Stored uint16
}

func (e ErrGenerationMismatch) Error() string {
	return fmt.Sprintf("Stored table for generation %d carries generation %d", e.Key, e.Stored)
}

type ErrNoSequence struct{}

func (e ErrNoSequence) Error() string {
	return "No sequence has been committed yet"
}

type ErrUnknownOperation struct {
	What string
}

func (e ErrUnknownOperation) Error() string {
	return fmt.Sprintf("Unknown operation: %s", e.What)
}
