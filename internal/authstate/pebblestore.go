// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package authstate

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is the durable Store backend: one pebble LSM-tree keyed by
// "<kind>:<id>", used when a session's credentials and key material must
// survive a process restart (spec §6.4).
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (creating if absent) a pebble database at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("authstate: opening pebble store at %q: %w", dir, err)
	}
	return &PebbleStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func pebbleKey(kind DataKind, id string) []byte {
	return []byte(kind.String() + ":" + id)
}

func (s *PebbleStore) Get(kind DataKind, id string) ([]byte, bool, error) {
	v, closer, err := s.db.Get(pebbleKey(kind, id))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	if cerr := closer.Close(); cerr != nil {
		return nil, false, cerr
	}
	return out, true, nil
}

func (s *PebbleStore) GetBatch(kind DataKind, ids []string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, id := range ids {
		v, ok, err := s.Get(kind, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *PebbleStore) Set(kind DataKind, id string, value []byte) error {
	key := pebbleKey(kind, id)
	if value == nil {
		return s.db.Delete(key, pebble.Sync)
	}
	return s.db.Set(key, value, pebble.Sync)
}

func (s *PebbleStore) SetBatch(kind DataKind, values map[string][]byte) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	for id, v := range values {
		key := pebbleKey(kind, id)
		if v == nil {
			if err := batch.Delete(key, nil); err != nil {
				return err
			}
			continue
		}
		if err := batch.Set(key, v, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (s *PebbleStore) ListIDs(kind DataKind) ([]string, error) {
	prefix := []byte(kind.String() + ":")
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++ // ':' -> ';' bounds the prefix scan

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(prefix):]))
	}
	return ids, iter.Error()
}

func (s *PebbleStore) Clear(kind DataKind) error {
	ids, err := s.ListIDs(kind)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, id := range ids {
		if err := batch.Delete(pebbleKey(kind, id), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}
