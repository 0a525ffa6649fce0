// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/dtn7/cboring"
)

// ExtensionBlock describes the data container of a CanonicalBlock, e.g., a
// HopCountBlock or a CustodyTransferEnhancementBlock.
//
// An ExtensionBlock implements its wire representation either through
// cboring.CborMarshaler (most extension blocks) or through
// encoding.BinaryMarshaler/BinaryUnmarshaler (the PayloadBlock and the
// GenericExtensionBlock fallback), never both.
type ExtensionBlock interface {
	// BlockTypeCode returns this ExtensionBlock's block type code.
	BlockTypeCode() uint64

	// BlockTypeName returns this ExtensionBlock's name, for logging/JSON.
	BlockTypeName() string

	Valid

	// CheckContextValid checks this ExtensionBlock's validity within the
	// context of its surrounding Bundle, e.g., to enforce a single instance.
	CheckContextValid(*Bundle) error
}

// ExtensionBlockManager keeps a book on the various registered ExtensionBlock
// types, allowing new instances to be created from their block type code
// when reading a Bundle off the wire.
//
// A singleton ExtensionBlockManager can be fetched by GetExtensionBlockManager.
type ExtensionBlockManager struct {
	data sync.Map // map[block_type_code:uint64]reflect.Type
}

// NewExtensionBlockManager creates an empty ExtensionBlockManager. To use a
// singleton ExtensionBlockManager one can use GetExtensionBlockManager.
func NewExtensionBlockManager() *ExtensionBlockManager {
	return &ExtensionBlockManager{}
}

// Register a new ExtensionBlock type through an exemplary instance. The
// GenericExtensionBlock fallback must never be registered under a fixed
// type code; it is only ever created ad hoc for unknown block types.
func (ebm *ExtensionBlockManager) Register(eb ExtensionBlock) (err error) {
	if _, ok := eb.(*GenericExtensionBlock); ok {
		return fmt.Errorf("GenericExtensionBlock must not be registered")
	}

	ebCode := eb.BlockTypeCode()
	ebType := reflect.TypeOf(eb).Elem()

	if otherEb, loaded := ebm.data.LoadOrStore(ebCode, ebType); loaded {
		err = fmt.Errorf("block type code %d is already registered for %s",
			ebCode, otherEb.(reflect.Type).Name())
	}

	return
}

// Unregister an ExtensionBlock type through an exemplary instance.
func (ebm *ExtensionBlockManager) Unregister(eb ExtensionBlock) {
	ebm.data.Delete(eb.BlockTypeCode())
}

// IsKnown returns true if the ExtensionBlock for this block type code is known.
func (ebm *ExtensionBlockManager) IsKnown(typeCode uint64) (known bool) {
	_, known = ebm.data.Load(typeCode)
	return
}

// createBlock creates a fresh, zero-valued ExtensionBlock for a known block
// type code, or a GenericExtensionBlock if the type code is unregistered.
func (ebm *ExtensionBlockManager) createBlock(typeCode uint64) ExtensionBlock {
	ebType, ok := ebm.data.Load(typeCode)
	if !ok {
		return NewGenericExtensionBlock(nil, typeCode)
	}
	return reflect.New(ebType.(reflect.Type)).Interface().(ExtensionBlock)
}

// WriteBlock serializes an ExtensionBlock's value into a Writer, wrapped in
// a CBOR byte string as required by RFC 9171 section 4.3.
func (ebm *ExtensionBlockManager) WriteBlock(eb ExtensionBlock, w io.Writer) error {
	var buff []byte

	switch v := eb.(type) {
	case cboring.CborMarshaler:
		var inner bytes.Buffer
		if err := v.MarshalCbor(&inner); err != nil {
			return err
		}
		buff = inner.Bytes()

	case encoding.BinaryMarshaler:
		data, err := v.MarshalBinary()
		if err != nil {
			return err
		}
		buff = data

	default:
		return fmt.Errorf("ExtensionBlock %T implements neither CBOR nor binary marshalling", eb)
	}

	return cboring.WriteByteString(buff, w)
}

// ReadBlock reads a wire-encoded ExtensionBlock for the given block type
// code, created via createBlock and populated from the CBOR byte string
// read off r.
func (ebm *ExtensionBlockManager) ReadBlock(typeCode uint64, r io.Reader) (ExtensionBlock, error) {
	raw, err := cboring.ReadByteString(r)
	if err != nil {
		return nil, err
	}

	eb := ebm.createBlock(typeCode)

	switch v := eb.(type) {
	case cboring.CborMarshaler:
		if err := cboring.Unmarshal(v, bytes.NewReader(raw)); err != nil {
			return nil, err
		}

	case encoding.BinaryUnmarshaler:
		if err := v.UnmarshalBinary(raw); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("ExtensionBlock %T implements neither CBOR nor binary unmarshalling", eb)
	}

	return eb, nil
}

var (
	extensionBlockManager      *ExtensionBlockManager
	extensionBlockManagerMutex sync.Mutex
)

// GetExtensionBlockManager returns the singleton ExtensionBlockManager. If
// none exists, a new one is created and pre-populated with the block types
// this package ships.
func GetExtensionBlockManager() *ExtensionBlockManager {
	extensionBlockManagerMutex.Lock()
	defer extensionBlockManagerMutex.Unlock()

	if extensionBlockManager == nil {
		extensionBlockManager = NewExtensionBlockManager()

		_ = extensionBlockManager.Register(NewPayloadBlock(nil))
		_ = extensionBlockManager.Register(NewPreviousNodeBlock(EndpointID{}))
		_ = extensionBlockManager.Register(NewBundleAgeBlock(0))
		_ = extensionBlockManager.Register(NewHopCountBlock(0))
		_ = extensionBlockManager.Register(NewCustodyTransferEnhancementBlock(1, EndpointID{}))
	}

	return extensionBlockManager
}
