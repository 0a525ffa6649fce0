// SPDX-FileCopyrightText: 2019, 2020, 2021 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

// BundleItem is a wrapper for meta data around a stored Bundle, mirroring
// the teacher's pkg/storage.BundleItem but keyed on the version-agnostic
// bundle.ID rather than a BPv7-only BundleID, since the store must hold both
// BPv6 and BPv7 bundles side by side (spec §6.1/§6.4).
type BundleItem struct {
	Key string `badgerhold:"key"`

	Source            string
	CreationTimestamp uint64
	SequenceNumber    uint64
	IsFragment        bool
	FragmentOffset    uint64

	Pending bool      `badgerholdIndex:"Pending"`
	Expires time.Time `badgerholdIndex:"Expires"`

	Filename   string
	Compressed bool
}

// idKey derives the badgerhold key for a bundle.ID.
func idKey(id bundle.ID) string {
	s := fmt.Sprintf("%s|%d|%d", id.Source.String(), id.CreationTimestamp, id.SequenceNumber)
	if id.IsFragment {
		s += fmt.Sprintf("|%d", id.FragmentOffset)
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}

// bundlePartPath returns the on-disk path for a bundle's serialized form.
func bundlePartPath(id bundle.ID, storageDir string) string {
	return path.Join(storageDir, idKey(id))
}

// calcExpirationDate computes when a bundle's lifetime elapses, used by
// DeleteExpired to find bundles eligible for removal.
func calcExpirationDate(b *bundle.Bundle) time.Time {
	created := time.Unix(int64(b.CreationTimestamp), 0)
	return created.Add(time.Duration(b.Lifetime) * time.Second)
}

// newBundleItem creates a BundleItem describing where b's serialized form
// will live on disk.
func newBundleItem(b *bundle.Bundle, storageDir string) BundleItem {
	id := b.ID()

	return BundleItem{
		Key:               idKey(id),
		Source:            id.Source.String(),
		CreationTimestamp: id.CreationTimestamp,
		SequenceNumber:    id.SequenceNumber,
		IsFragment:        id.IsFragment,
		FragmentOffset:    id.FragmentOffset,

		Expires:  calcExpirationDate(b),
		Filename: bundlePartPath(id, storageDir),
	}
}

// deleteFile removes the serialized bundle from disk.
func (bi BundleItem) deleteFile() error {
	if bi.Filename == "" {
		return nil
	}
	err := os.Remove(bi.Filename)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
