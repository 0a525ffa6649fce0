// SPDX-FileCopyrightText: 2019, 2020, 2022 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

// Canonical block type codes, as assigned by RFC 9171 and (for the
// DTNME-only custody extension) original_source/servlib/bundling's
// BundleProtocolVersion6.h CUSTODY_TRANSFER_ENHANCEMENT_BLOCK.
const (
	ExtBlockTypePayloadBlock      uint64 = 1
	ExtBlockTypePreviousNodeBlock uint64 = 6
	ExtBlockTypeBundleAgeBlock    uint64 = 7
	ExtBlockTypeHopCountBlock     uint64 = 10

	// ExtBlockTypeCustodyTransferEnhancementBlock carries the transmission
	// ID a BIBE tunnel uses to correlate an aggregate custody signal with
	// the bundle it was issued for (spec §4.7, supplemented from
	// original_source, not part of RFC 9171 proper).
	ExtBlockTypeCustodyTransferEnhancementBlock uint64 = 200
)
