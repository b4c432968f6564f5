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

// Package quarantine manages the queue of mail that could not be attributed
// to a client. Rows enter the queue through the ingest pipeline and leave it
// through promotion or explicit dismissal, never silently.
package quarantine

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/ingest"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/match"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/storage"
)

// Queue exposes the staff operations on parked mail.
type Queue struct {
	database       database.Conn
	pipeline       *ingest.Pipeline
	normalizer     *ingest.Normalizer
	bodies         storage.Bodies
	unmatchedDao   database.UnmatchedDao
	inboxDao       database.InboxDao
	inboxEmailDao  database.InboxEmailDao
	clientDao      database.ClientDao
	clientAliasDao database.ClientAliasDao
}

// NewQueue creates a new Queue.
func NewQueue(
	conn database.Conn,
	pipeline *ingest.Pipeline,
	normalizer *ingest.Normalizer,
	bodies storage.Bodies,
	unmatchedDao database.UnmatchedDao,
	inboxDao database.InboxDao,
	inboxEmailDao database.InboxEmailDao,
	clientDao database.ClientDao,
	clientAliasDao database.ClientAliasDao,
) *Queue {
	return &Queue{
		database:       conn,
		pipeline:       pipeline,
		normalizer:     normalizer,
		bodies:         bodies,
		unmatchedDao:   unmatchedDao,
		inboxDao:       inboxDao,
		inboxEmailDao:  inboxEmailDao,
		clientDao:      clientDao,
		clientAliasDao: clientAliasDao,
	}
}

// List returns the whole queue, oldest first.
func (q *Queue) List(ctx context.Context) ([]models.UnmatchedEmailEntity, error) {
	return q.unmatchedDao.FindAll(ctx, q.database)
}

// Confirm attributes a parked mail to a client by staff decision. The
// counterpart address is registered as an alias of the client, so the same
// correspondent matches automatically from now on, and the mail is promoted
// into a message right away.
func (q *Queue) Confirm(ctx context.Context, unmatchedID string, clientID int64, by string) error {
	parked, err := q.unmatchedDao.FindByID(ctx, q.database, unmatchedID)
	if err != nil {
		return err
	}

	client, err := q.clientDao.FindByID(ctx, q.database, clientID)
	if err != nil {
		return err
	}

	counterpart, counterpartName, ok := counterpartOf(ctx, q.normalizer, q.inboxDao, q.database, parked)
	if ok {
		if err := q.registerAlias(ctx, client.ID, counterpart, counterpartName); err != nil {
			return err
		}
	}

	resolution := match.Match{
		Tier:        models.ConfidenceHigh,
		ClientID:    client.ID,
		Basis:       models.BasisAliasExact,
		DisplayName: counterpartName,
	}

	if err := q.pipeline.Promote(ctx, parked, resolution); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("unmatched", parked.ID).
		Int64("client", client.ID).
		Str("by", by).
		Msg("confirmed unmatched mail")

	return nil
}

// registerAlias records the counterpart address for the client. An alias that
// exists already is fine, confirmation must stay idempotent.
func (q *Queue) registerAlias(
	ctx context.Context,
	clientID int64,
	address models.Address,
	displayName string,
) error {
	alias := models.ClientAliasEntity{
		ClientID:    clientID,
		Address:     address,
		DisplayName: displayName,
		CreatedAt:   time.Now().Unix(),
	}

	err := q.clientAliasDao.Insert(ctx, q.database, &alias)
	if err != nil && !database.IsErrUnique(err) {
		return err
	}

	return nil
}

// Dismiss removes a parked mail from the queue by staff decision. A pending
// reply obligation is waived along with it and the stored body is deleted,
// because no message will ever reference it.
func (q *Queue) Dismiss(ctx context.Context, unmatchedID string, by string) error {
	parked, err := q.unmatchedDao.FindByID(ctx, q.database, unmatchedID)
	if err != nil {
		return err
	}

	tx, err := q.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if err := q.waiveReply(ctx, tx, parked, by); err != nil {
		return err
	}

	if err := q.unmatchedDao.Delete(ctx, tx, parked); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if parked.BodyID.Valid {
		if err := q.bodies.Delete(ctx, parked.BodyID.String); err != nil {
			log.WarnContext(ctx).
				Err(err).
				Str("body", parked.BodyID.String).
				Msg("could not delete body of dismissed mail")
		}
	}

	log.InfoContext(ctx).
		Str("unmatched", parked.ID).
		Str("by", by).
		Msg("dismissed unmatched mail")

	return nil
}

func (q *Queue) waiveReply(
	ctx context.Context,
	tx database.Tx,
	parked *models.UnmatchedEmailEntity,
	by string,
) error {
	email, err := q.inboxEmailDao.FindByInboxAndProviderID(
		ctx, tx, parked.InboxID, parked.ProviderMessageID)

	if err != nil {
		if database.IsErrNoRows(err) {
			return nil
		}

		return err
	}

	switch email.Status {
	case models.ReplyStatusPending, models.ReplyStatusOverdue:
		email.Status = models.ReplyStatusNoAction
		email.StaffUser = sql.NullString{String: by, Valid: by != ""}

		return q.inboxEmailDao.Update(ctx, tx, email)
	}

	return nil
}

// counterpartOf recovers the counterpart of a parked mail the same way the
// pipeline chose it at park time.
func counterpartOf(
	ctx context.Context,
	normalizer *ingest.Normalizer,
	inboxDao database.InboxDao,
	q database.Queryer,
	parked *models.UnmatchedEmailEntity,
) (models.Address, string, bool) {
	inbox, err := inboxDao.FindByID(ctx, q, parked.InboxID)
	if err != nil {
		return models.ZeroAddress, "", false
	}

	return match.CounterpartOf(
		parked.Direction,
		parked.Sender,
		parked.SenderName,
		parked.RecipientsTo,
		parked.RecipientsCc,
		func(addr models.Address) bool {
			return !normalizer.IsFirmAddress(inbox, addr)
		},
	)
}
