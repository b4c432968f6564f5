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

package database

import (
	"context"

	"github.com/ledgerline/mailroom/internal/models"
)

// InboxEmailDao is a data access object for the per-inbox message view. The
// unique (inbox_id, provider_message_id) pair makes ingestion replays
// detectable.
type InboxEmailDao interface {
	// Insert inserts a new inbox email.
	Insert(context.Context, Queryer, *models.InboxEmailEntity) error
	// Update updates the match and reply tracking fields.
	Update(context.Context, Queryer, *models.InboxEmailEntity) error
	// FindByID returns the inbox email with the given id.
	FindByID(context.Context, Queryer, int64) (*models.InboxEmailEntity, error)
	// FindByInboxAndProviderID returns the row for a provider message as seen
	// through one inbox.
	FindByInboxAndProviderID(context.Context, Queryer, int64, string) (*models.InboxEmailEntity, error)
	// FindByInbox returns all rows of an inbox, newest first.
	FindByInbox(context.Context, Queryer, int64) ([]models.InboxEmailEntity, error)
	// FindByInboxAndStatus returns all rows of an inbox in a reply status,
	// newest first.
	FindByInboxAndStatus(context.Context, Queryer, int64, models.ReplyStatus) ([]models.InboxEmailEntity, error)
	// FindAwaitingReply returns rows of an inbox that still wait for a reply
	// on the given thread.
	FindAwaitingReply(context.Context, Queryer, int64, string) ([]models.InboxEmailEntity, error)
	// FindPendingPastDeadline returns pending rows whose deadline lies before
	// now.
	FindPendingPastDeadline(context.Context, Queryer, int64) ([]models.InboxEmailEntity, error)
}

// inboxEmailDao is the sqlite implementation of InboxEmailDao.
type inboxEmailDao struct{}

// NewInboxEmailDao creates a new InboxEmailDao.
func NewInboxEmailDao() InboxEmailDao {
	return inboxEmailDao{}
}

func (inboxEmailDao) Insert(
	ctx context.Context,
	q Queryer,
	inboxEmail *models.InboxEmailEntity,
) error {
	const query = `
		insert into "inbox_emails" (
			"inbox_id" ,
			"provider_message_id" ,
			"internet_message_id" ,
			"message_id" ,
			"client_id" ,
			"staff_user" ,
			"status" ,
			"sla_deadline" ,
			"replied_at" ,
			"received_at" ,
			"created_at"
		) values (
			:inbox_id ,
			:provider_message_id ,
			:internet_message_id ,
			:message_id ,
			:client_id ,
			:staff_user ,
			:status ,
			:sla_deadline ,
			:replied_at ,
			:received_at ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, inboxEmail)
	if err != nil {
		return err
	}

	if err := ensureRowsAffected(result); err != nil {
		return err
	}

	inboxEmail.ID, err = result.LastInsertId()
	return err
}

func (inboxEmailDao) Update(
	ctx context.Context,
	q Queryer,
	inboxEmail *models.InboxEmailEntity,
) error {
	const query = `
		update "inbox_emails"
		set "message_id" = :message_id ,
		    "client_id" = :client_id ,
		    "staff_user" = :staff_user ,
		    "status" = :status ,
		    "sla_deadline" = :sla_deadline ,
		    "replied_at" = :replied_at
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, inboxEmail)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (inboxEmailDao) FindByID(
	ctx context.Context,
	q Queryer,
	id int64,
) (*models.InboxEmailEntity, error) {
	const query = `
		select *
		from "inbox_emails"
		where "id" = $1 ;
	`

	var inboxEmail models.InboxEmailEntity

	if err := selectOne(ctx, q, &inboxEmail, query, id); err != nil {
		return nil, err
	}

	return &inboxEmail, nil
}

func (inboxEmailDao) FindByInboxAndProviderID(
	ctx context.Context,
	q Queryer,
	inboxID int64,
	providerMessageID string,
) (*models.InboxEmailEntity, error) {
	const query = `
		select *
		from "inbox_emails"
		where "inbox_id" = $1
		  and "provider_message_id" = $2
		limit 1 ;
	`

	var inboxEmail models.InboxEmailEntity

	if err := selectOne(ctx, q, &inboxEmail, query, inboxID, providerMessageID); err != nil {
		return nil, err
	}

	return &inboxEmail, nil
}

func (inboxEmailDao) FindByInbox(
	ctx context.Context,
	q Queryer,
	inboxID int64,
) ([]models.InboxEmailEntity, error) {
	const query = `
		select *
		from "inbox_emails"
		where "inbox_id" = $1
		order by "received_at" desc ;
	`

	var inboxEmailSlice []models.InboxEmailEntity

	if err := selectSlice(ctx, q, &inboxEmailSlice, query, inboxID); err != nil {
		return nil, err
	}

	return inboxEmailSlice, nil
}

func (inboxEmailDao) FindByInboxAndStatus(
	ctx context.Context,
	q Queryer,
	inboxID int64,
	status models.ReplyStatus,
) ([]models.InboxEmailEntity, error) {
	const query = `
		select *
		from "inbox_emails"
		where "inbox_id" = $1
		  and "status" = $2
		order by "received_at" desc ;
	`

	var inboxEmailSlice []models.InboxEmailEntity

	if err := selectSlice(ctx, q, &inboxEmailSlice, query, inboxID, status); err != nil {
		return nil, err
	}

	return inboxEmailSlice, nil
}

func (inboxEmailDao) FindAwaitingReply(
	ctx context.Context,
	q Queryer,
	inboxID int64,
	threadID string,
) ([]models.InboxEmailEntity, error) {
	const query = `
		select "inbox_emails".*
		from "inbox_emails"
			inner join "messages" on "messages"."id" = "inbox_emails"."message_id"
		where "inbox_emails"."inbox_id" = $1
		  and "messages"."thread_id" = $2
		  and "inbox_emails"."status" in ( 'pending_reply' , 'overdue' ) ;
	`

	var inboxEmailSlice []models.InboxEmailEntity

	if err := selectSlice(ctx, q, &inboxEmailSlice, query, inboxID, threadID); err != nil {
		return nil, err
	}

	return inboxEmailSlice, nil
}

func (inboxEmailDao) FindPendingPastDeadline(
	ctx context.Context,
	q Queryer,
	now int64,
) ([]models.InboxEmailEntity, error) {
	const query = `
		select *
		from "inbox_emails"
		where "status" = 'pending_reply'
		  and "sla_deadline" is not null
		  and "sla_deadline" < $1 ;
	`

	var inboxEmailSlice []models.InboxEmailEntity

	if err := selectSlice(ctx, q, &inboxEmailSlice, query, now); err != nil {
		return nil, err
	}

	return inboxEmailSlice, nil
}
