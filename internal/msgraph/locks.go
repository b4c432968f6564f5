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

package msgraph

import (
	"sync"
)

// folderKey identifies one delta stream.
type folderKey struct {
	inbox  int64
	folder string
}

// folderLocks serializes sync runs per (inbox, folder) pair. Two concurrent
// runs of the same stream would race on the cursor. The key space is bounded
// by the managed mailboxes, so entries simply live for the process lifetime.
type folderLocks struct {
	mu      sync.Mutex
	entries map[folderKey]*sync.Mutex
}

func newFolderLocks() *folderLocks {
	return &folderLocks{
		entries: make(map[folderKey]*sync.Mutex),
	}
}

func (l *folderLocks) lock(inbox int64, folder string) {
	key := folderKey{inbox: inbox, folder: folder}

	l.mu.Lock()

	entry, ok := l.entries[key]
	if !ok {
		entry = new(sync.Mutex)
		l.entries[key] = entry
	}

	l.mu.Unlock()

	entry.Lock()
}

func (l *folderLocks) unlock(inbox int64, folder string) {
	l.mu.Lock()
	entry := l.entries[folderKey{inbox: inbox, folder: folder}]
	l.mu.Unlock()

	entry.Unlock()
}
