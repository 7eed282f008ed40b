// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package audit

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/logging"
)

const transitionKeyPrefix = "transition:"

// BadgerStore persists transition events in BadgerDB with per-entry TTL
// so retention enforcement is the database's job, not a sweeper's.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
	stopGC    chan struct{}
}

// NewBadgerStore opens (or creates) the audit database at cfg.Path.
func NewBadgerStore(cfg *config.AuditConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(badgerLogger{}).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	s := &BadgerStore{db: db, retention: cfg.Retention, stopGC: make(chan struct{})}
	go s.gcLoop()
	logging.Info().Str("path", cfg.Path).Dur("retention", cfg.Retention).Msg("audit store ready")
	return s, nil
}

// Save writes one event with the retention TTL.
func (s *BadgerStore) Save(event TransitionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := transitionKey(event)
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data).WithTTL(s.retention)
		return txn.SetEntry(entry)
	})
}

// SubjectEvents returns up to limit events for a subject, newest first.
func (s *BadgerStore) SubjectEvents(subjectID string, limit int) ([]TransitionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	prefix := []byte(transitionKeyPrefix + subjectID + ":")
	var out []TransitionEvent

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the end of the prefix range.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var event TransitionEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return fmt.Errorf("decode audit event: %w", err)
			}
			out = append(out, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close stops value-log GC and closes the database.
func (s *BadgerStore) Close() error {
	close(s.stopGC)
	return s.db.Close()
}

// gcLoop reclaims value-log space once an hour. Badger requires the
// caller to drive GC; ErrNoRewrite just means there was nothing to do.
func (s *BadgerStore) gcLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

// transitionKey orders a subject's events by time so prefix iteration
// walks them chronologically.
func transitionKey(event TransitionEvent) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s",
		transitionKeyPrefix, event.SubjectID, event.At.UnixNano(), event.ID))
}

// badgerLogger routes badger's chatty internal logging through ours at
// debug level.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}
