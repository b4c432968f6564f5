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

package sla

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/models"
)

// Tracker owns the obligation state machines: the per thread machine
// (active, complete, snoozed) and the per inbox reply machine on individual
// mails. There is no terminal state, a handled conversation comes back on the
// next inbound message.
type Tracker struct {
	database      database.Conn
	threadDao     database.ThreadDao
	inboxEmailDao database.InboxEmailDao
}

// NewTracker creates a new Tracker.
func NewTracker(
	database database.Conn,
	threadDao database.ThreadDao,
	inboxEmailDao database.InboxEmailDao,
) *Tracker {
	return &Tracker{
		database:      database,
		threadDao:     threadDao,
		inboxEmailDao: inboxEmailDao,
	}
}

// Complete marks a thread as handled by the given staff member. Active and
// snoozed threads may be completed, completing twice is rejected.
func (t *Tracker) Complete(ctx context.Context, threadID, by string) error {
	tx, err := t.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	thread, err := t.threadDao.FindByID(ctx, tx, threadID)
	if err != nil {
		return err
	}

	if err := completeThread(thread, by, time.Now().Unix()); err != nil {
		return err
	}

	if err := t.threadDao.Update(ctx, tx, thread); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("thread", threadID).
		Str("by", by).
		Msg("thread completed")

	return tx.Commit()
}

// Snooze parks an active thread until the given unix wake time.
func (t *Tracker) Snooze(ctx context.Context, threadID string, until int64) error {
	tx, err := t.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	thread, err := t.threadDao.FindByID(ctx, tx, threadID)
	if err != nil {
		return err
	}

	if err := snoozeThread(thread, until); err != nil {
		return err
	}

	if err := t.threadDao.Update(ctx, tx, thread); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("thread", threadID).
		Int64("until", until).
		Msg("thread snoozed")

	return tx.Commit()
}

// ExpireSnoozes wakes every snoozed thread whose wake time has passed and
// returns the number of threads moved back to active.
func (t *Tracker) ExpireSnoozes(ctx context.Context) (int, error) {
	tx, err := t.database.Begin(ctx)
	if err != nil {
		return 0, err
	}

	defer tx.Rollback()

	now := time.Now().Unix()

	threadSlice, err := t.threadDao.FindSnoozedBefore(ctx, tx, now)
	if err != nil {
		return 0, err
	}

	for i := range threadSlice {
		thread := &threadSlice[i]
		Reopen(thread, now)

		if err := t.threadDao.Update(ctx, tx, thread); err != nil {
			return 0, err
		}

		log.InfoContext(ctx).
			Str("thread", thread.ID).
			Msg("snooze expired, thread active again")
	}

	return len(threadSlice), tx.Commit()
}

// completeThread moves a thread to complete and records who handled it.
func completeThread(thread *models.ThreadEntity, by string, now int64) error {
	if thread.State == models.SLAComplete {
		return &TransitionError{
			Entity: "thread",
			From:   string(thread.State),
			To:     string(models.SLAComplete),
		}
	}

	thread.State = models.SLAComplete
	thread.CompletedAt = sql.NullInt64{Int64: now, Valid: true}
	thread.CompletedBy = sql.NullString{String: by, Valid: true}
	thread.SnoozeUntil = sql.NullInt64{}

	return nil
}

// snoozeThread parks a thread. Only active threads may be snoozed.
func snoozeThread(thread *models.ThreadEntity, until int64) error {
	if thread.State != models.SLAActive {
		return &TransitionError{
			Entity: "thread",
			From:   string(thread.State),
			To:     string(models.SLASnoozed),
		}
	}

	thread.State = models.SLASnoozed
	thread.SnoozeUntil = sql.NullInt64{Int64: until, Valid: true}

	return nil
}

// Reopen moves a complete or snoozed thread back to active. The completion
// fields are cleared so the earlier handling leaves no trace on the active
// thread. It reports whether the thread changed.
func Reopen(thread *models.ThreadEntity, now int64) bool {
	if thread.State == models.SLAActive {
		return false
	}

	thread.State = models.SLAActive
	thread.BecameActiveAt = now
	thread.CompletedAt = sql.NullInt64{}
	thread.CompletedBy = sql.NullString{}
	thread.SnoozeUntil = sql.NullInt64{}

	return true
}
