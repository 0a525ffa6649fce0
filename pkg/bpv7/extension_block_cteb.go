// SPDX-FileCopyrightText: 2019, 2020, 2022 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// CustodyTransferEnhancementBlock carries the transmission ID a custodian
// assigned to a bundle under custody transfer, used to correlate a later
// Aggregate Custody Signal with this bundle. Grounded in
// original_source/servlib/bundling/BundleProtocolVersion6.h's
// CUSTODY_TRANSFER_ENHANCEMENT_BLOCK and spec.md's BIBE glossary entry;
// modeled in Go on this package's HopCountBlock.
type CustodyTransferEnhancementBlock struct {
	TransmissionID uint64
	CustodianEID   EndpointID
}

// NewCustodyTransferEnhancementBlock creates a CTEB for the given
// transmission ID and custodian.
func NewCustodyTransferEnhancementBlock(txID uint64, custodian EndpointID) *CustodyTransferEnhancementBlock {
	return &CustodyTransferEnhancementBlock{TransmissionID: txID, CustodianEID: custodian}
}

// BlockTypeCode must return a constant integer, indicating the block type code.
func (cteb *CustodyTransferEnhancementBlock) BlockTypeCode() uint64 {
	return ExtBlockTypeCustodyTransferEnhancementBlock
}

// BlockTypeName must return a constant string, this block's name.
func (cteb *CustodyTransferEnhancementBlock) BlockTypeName() string {
	return "Custody Transfer Enhancement Block"
}

// MarshalCbor writes a CBOR representation of this CTEB.
func (cteb *CustodyTransferEnhancementBlock) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(cteb.TransmissionID, w); err != nil {
		return err
	}
	return cteb.CustodianEID.MarshalCbor(w)
}

// UnmarshalCbor reads a CBOR representation of a CTEB.
func (cteb *CustodyTransferEnhancementBlock) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("CustodyTransferEnhancementBlock: expected array with length 2, got %d", l)
	}

	txID, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	cteb.TransmissionID = txID

	return cteb.CustodianEID.UnmarshalCbor(r)
}

// MarshalJSON writes a JSON representation of this CTEB.
func (cteb *CustodyTransferEnhancementBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		TransmissionID uint64     `json:"transmission_id"`
		Custodian      EndpointID `json:"custodian"`
	}{cteb.TransmissionID, cteb.CustodianEID})
}

// CheckValid reports whether this CTEB's fields are well-formed. A
// transmission ID of zero is reserved to mean "no custody transfer in
// progress" (spec §4.7/BIBEExtractor.cc's handle_custody_transfer check) and
// is therefore invalid on a block that exists at all.
func (cteb *CustodyTransferEnhancementBlock) CheckValid() error {
	if cteb.TransmissionID == 0 {
		return fmt.Errorf("CustodyTransferEnhancementBlock: transmission id must be non-zero")
	}
	return nil
}

// CheckContextValid ensures at most one CTEB is present on the bundle.
func (cteb *CustodyTransferEnhancementBlock) CheckContextValid(b *Bundle) error {
	cb, err := b.ExtensionBlock(ExtBlockTypeCustodyTransferEnhancementBlock)
	if err != nil {
		return err
	} else if cb.Value != cteb {
		return fmt.Errorf("CustodyTransferEnhancementBlock's pointer differs, %p != %p", cb.Value, cteb)
	}
	return nil
}
