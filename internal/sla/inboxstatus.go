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

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/models"
)

func init() {
	viper.SetDefault("sla.replywindow", "48h")
}

// Deadline computes the reply deadline for mail received at the given unix
// time using the `sla.replywindow` duration.
func Deadline(receivedAt int64) int64 {
	return receivedAt + int64(viper.GetDuration("sla.replywindow").Seconds())
}

// MarkReplied flips an awaiting inbox email to replied. Both pending and
// already overdue mails count as answered. It reports whether the row
// changed.
func MarkReplied(email *models.InboxEmailEntity, at int64) bool {
	if email.Status != models.ReplyStatusPending && email.Status != models.ReplyStatusOverdue {
		return false
	}

	email.Status = models.ReplyStatusReplied
	email.RepliedAt = sql.NullInt64{Int64: at, Valid: true}

	return true
}

// NoAction waives the reply obligation of an inbox email. Only awaiting mail
// can be waived, answered mail keeps its record.
func (t *Tracker) NoAction(ctx context.Context, inboxEmailID int64, by string) error {
	tx, err := t.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	email, err := t.inboxEmailDao.FindByID(ctx, tx, inboxEmailID)
	if err != nil {
		return err
	}

	if email.Status != models.ReplyStatusPending && email.Status != models.ReplyStatusOverdue {
		return &TransitionError{
			Entity: "inbox email",
			From:   string(email.Status),
			To:     string(models.ReplyStatusNoAction),
		}
	}

	email.Status = models.ReplyStatusNoAction
	email.StaffUser = sql.NullString{String: by, Valid: true}

	if err := t.inboxEmailDao.Update(ctx, tx, email); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Int64("inboxEmail", inboxEmailID).
		Str("by", by).
		Msg("reply obligation waived")

	return tx.Commit()
}

// SweepOverdue flips every pending inbox email past its deadline to overdue
// and returns the number of rows flipped.
func (t *Tracker) SweepOverdue(ctx context.Context) (int, error) {
	tx, err := t.database.Begin(ctx)
	if err != nil {
		return 0, err
	}

	defer tx.Rollback()

	emailSlice, err := t.inboxEmailDao.FindPendingPastDeadline(ctx, tx, time.Now().Unix())
	if err != nil {
		return 0, err
	}

	for i := range emailSlice {
		email := &emailSlice[i]
		email.Status = models.ReplyStatusOverdue

		if err := t.inboxEmailDao.Update(ctx, tx, email); err != nil {
			return 0, err
		}

		log.InfoContext(ctx).
			Int64("inboxEmail", email.ID).
			Int64("deadline", email.SLADeadline.Int64).
			Msg("reply deadline missed")
	}

	return len(emailSlice), tx.Commit()
}
