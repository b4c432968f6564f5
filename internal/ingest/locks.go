// Copyright (C) 2025  The Mailroom Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ingest

import "sync"

// locks serializes work per conversation key. Unlike a plain mutex map,
// entries are reference counted and removed once the last holder releases
// them, so the map does not grow with every conversation ever seen.
type locks struct {
	entries map[string]*lockEntry
	mu      sync.Mutex
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLocks() *locks {
	return &locks{
		entries: make(map[string]*lockEntry),
	}
}

func (l *locks) lock(key string) {
	l.mu.Lock()

	entry, ok := l.entries[key]
	if !ok {
		entry = new(lockEntry)
		l.entries[key] = entry
	}

	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *locks) unlock(key string) {
	l.mu.Lock()

	entry := l.entries[key]
	entry.refs--

	if entry.refs == 0 {
		delete(l.entries, key)
	}

	l.mu.Unlock()
	entry.mu.Unlock()
}
