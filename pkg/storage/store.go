// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage implements the durable store of spec §6.4: keyed tables
// for bundles, links, registrations and route entries over badgerhold,
// adapted from the teacher's pkg/storage.Store (which only ever stored
// BPv7 bundles) generalized to the version-agnostic bundle.Bundle plus the
// three additional tables the spec's forwarding/routing engine needs to
// survive a restart.
package storage

import (
	"io"
	"os"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold"

	"github.com/dtn7/dtnme-go/pkg/bundle"
)

const (
	dirBadger string = "db"
	dirBundle string = "bndl"
	sentinelFile string = "sentinel"
)

// LinkRecord is a Link's persisted configuration, re-applied to a live Link
// implementation on daemon startup.
type LinkRecord struct {
	Name     string `badgerhold:"key"`
	Remote   string
	LinkType uint8
}

// RegistrationRecord is a local application agent's persisted subscription.
type RegistrationRecord struct {
	RegID uint32 `badgerhold:"key"`
	EID   string
}

// RouteRecord is a persisted static RouteTable entry.
type RouteRecord struct {
	Key        string `badgerhold:"key"`
	Dest       string
	NextHop    string
	RouteTo    string
	HasRouteTo bool
	Priority   int
}

// Store implements the durable storage backend over badgerhold.
type Store struct {
	bh *badgerhold.Store

	badgerDir string
	bundleDir string

	sentinel  *Sentinel
	Recovered bool
}

// NewStore creates a new Store or opens an existing one at dir. Recovered
// reports whether the prior process using this directory terminated without
// a clean Close, per the spec's flock-based crash detection.
func NewStore(dir string) (*Store, error) {
	badgerDir := path.Join(dir, dirBadger)
	bundleDir := path.Join(dir, dirBundle)

	if err := os.MkdirAll(badgerDir, 0700); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(bundleDir, 0700); err != nil {
		return nil, err
	}

	sentinel, recovered, err := OpenSentinel(path.Join(dir, sentinelFile))
	if err != nil {
		return nil, err
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	bh, err := badgerhold.Open(opts)
	if err != nil {
		sentinel.Close()
		return nil, err
	}

	return &Store{
		bh:        bh,
		badgerDir: badgerDir,
		bundleDir: bundleDir,
		sentinel:  sentinel,
		Recovered: recovered,
	}, nil
}

// Close the Store and mark its sentinel clean. It must not be used
// afterwards.
func (s *Store) Close() error {
	if err := s.bh.Close(); err != nil {
		return err
	}
	return s.sentinel.Close()
}

// PushBundle serializes and indexes a bundle, compressing its on-disk form
// when large, per spec §6.4. Pushing a bundle whose key is already present
// is a no-op, matching the teacher's "Bundle ID is known, ignoring push".
func (s *Store) PushBundle(b *bundle.Bundle, serialize func(*bundle.Bundle) ([]byte, error)) error {
	item := newBundleItem(b, s.bundleDir)

	if _, err := s.QueryBundle(item.Key); err == nil {
		log.WithField("bundle", item.Key).Debug("Bundle is already stored, ignoring push")
		return nil
	}

	raw, err := serialize(b)
	if err != nil {
		return err
	}

	data, compressed, err := compressIfLarge(raw)
	if err != nil {
		return err
	}
	item.Compressed = compressed

	if err := os.WriteFile(item.Filename, data, 0600); err != nil {
		return err
	}

	item.Pending = true
	return s.bh.Insert(item.Key, item)
}

// LoadBundle reads back the serialized bytes for a stored BundleItem,
// transparently reversing any compression applied on write.
func (s *Store) LoadBundle(item BundleItem) ([]byte, error) {
	f, err := os.Open(item.Filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if item.Compressed {
		return decompress(raw)
	}
	return raw, nil
}

// QueryBundle fetches the BundleItem for the given key (bundle_item.idKey).
func (s *Store) QueryBundle(key string) (BundleItem, error) {
	var item BundleItem
	err := s.bh.Get(key, &item)
	return item, err
}

// UpdateBundle persists changes to an existing BundleItem, e.g. clearing
// Pending once a bundle has been fully dispositioned.
func (s *Store) UpdateBundle(item BundleItem) error {
	return s.bh.Update(item.Key, item)
}

// DeleteBundle removes a BundleItem and its on-disk file.
func (s *Store) DeleteBundle(key string) error {
	item, err := s.QueryBundle(key)
	if err != nil {
		return nil
	}

	if err := item.deleteFile(); err != nil {
		log.WithError(err).WithField("bundle", key).Warn("Failed to delete bundle file")
	}

	return s.bh.Delete(key, BundleItem{})
}

// DeleteExpired removes every bundle whose Expires timestamp has passed.
func (s *Store) DeleteExpired() {
	var items []BundleItem
	if err := s.bh.Find(&items, badgerhold.Where("Expires").Lt(time.Now())); err != nil {
		log.WithError(err).Warn("Failed to query expired bundles")
		return
	}

	for _, item := range items {
		if err := s.DeleteBundle(item.Key); err != nil {
			log.WithError(err).WithField("bundle", item.Key).Warn("Failed to delete expired bundle")
		}
	}
}

// QueryPending fetches every BundleItem still marked pending. Its caller is
// pkg/agent's bundle listing; the daemon does not re-dispatch these items to
// the router on restart.
func (s *Store) QueryPending() ([]BundleItem, error) {
	var items []BundleItem
	err := s.bh.Find(&items, badgerhold.Where("Pending").Eq(true))
	return items, err
}

// PutLink persists a LinkRecord.
func (s *Store) PutLink(rec LinkRecord) error {
	return s.bh.Upsert(rec.Name, rec)
}

// Links returns every persisted LinkRecord.
func (s *Store) Links() ([]LinkRecord, error) {
	var recs []LinkRecord
	err := s.bh.Find(&recs, nil)
	return recs, err
}

// DeleteLink removes a persisted LinkRecord.
func (s *Store) DeleteLink(name string) error {
	return s.bh.Delete(name, LinkRecord{})
}

// PutRegistration persists a RegistrationRecord.
func (s *Store) PutRegistration(rec RegistrationRecord) error {
	return s.bh.Upsert(rec.RegID, rec)
}

// Registrations returns every persisted RegistrationRecord.
func (s *Store) Registrations() ([]RegistrationRecord, error) {
	var recs []RegistrationRecord
	err := s.bh.Find(&recs, nil)
	return recs, err
}

// DeleteRegistration removes a persisted RegistrationRecord.
func (s *Store) DeleteRegistration(regID uint32) error {
	return s.bh.Delete(regID, RegistrationRecord{})
}

// PutRoute persists a RouteRecord.
func (s *Store) PutRoute(rec RouteRecord) error {
	return s.bh.Upsert(rec.Key, rec)
}

// Routes returns every persisted RouteRecord.
func (s *Store) Routes() ([]RouteRecord, error) {
	var recs []RouteRecord
	err := s.bh.Find(&recs, nil)
	return recs, err
}

// DeleteRoute removes a persisted RouteRecord.
func (s *Store) DeleteRoute(key string) error {
	return s.bh.Delete(key, RouteRecord{})
}
