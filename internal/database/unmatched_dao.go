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

// UnmatchedDao is a data access object for the quarantine queue. Rows are
// removed through promotion or dismissal only.
type UnmatchedDao interface {
	// Insert inserts a new unmatched email. The id must be assigned
	// beforehand.
	Insert(context.Context, Queryer, *models.UnmatchedEmailEntity) error
	// Update updates the retry bookkeeping and match outcome of a parked
	// email.
	Update(context.Context, Queryer, *models.UnmatchedEmailEntity) error
	// Delete removes a parked email after promotion or dismissal.
	Delete(context.Context, Queryer, *models.UnmatchedEmailEntity) error
	// FindAll returns the whole queue, oldest first.
	FindAll(context.Context, Queryer) ([]models.UnmatchedEmailEntity, error)
	// FindByID returns the parked email with the given id.
	FindByID(context.Context, Queryer, string) (*models.UnmatchedEmailEntity, error)
	// FindByInternetMessageID returns the parked email with the given rfc
	// message id.
	FindByInternetMessageID(context.Context, Queryer, string) (*models.UnmatchedEmailEntity, error)
}

// unmatchedDao is the sqlite implementation of UnmatchedDao.
type unmatchedDao struct{}

// NewUnmatchedDao creates a new UnmatchedDao.
func NewUnmatchedDao() UnmatchedDao {
	return unmatchedDao{}
}

func (unmatchedDao) Insert(
	ctx context.Context,
	q Queryer,
	unmatched *models.UnmatchedEmailEntity,
) error {
	const query = `
		insert into "unmatched_emails" (
			"id" ,
			"inbox_id" ,
			"provider_message_id" ,
			"internet_message_id" ,
			"provider_conversation_id" ,
			"direction" ,
			"sender" ,
			"sender_name" ,
			"recipients_to" ,
			"recipients_cc" ,
			"subject" ,
			"subject_stem" ,
			"preview" ,
			"in_reply_to" ,
			"references" ,
			"has_attachments" ,
			"sent_at" ,
			"received_at" ,
			"body_id" ,
			"reason" ,
			"candidate_client_id" ,
			"candidate_basis" ,
			"retry_count" ,
			"last_attempt_at" ,
			"created_at"
		) values (
			:id ,
			:inbox_id ,
			:provider_message_id ,
			:internet_message_id ,
			:provider_conversation_id ,
			:direction ,
			:sender ,
			:sender_name ,
			:recipients_to ,
			:recipients_cc ,
			:subject ,
			:subject_stem ,
			:preview ,
			:in_reply_to ,
			:references ,
			:has_attachments ,
			:sent_at ,
			:received_at ,
			:body_id ,
			:reason ,
			:candidate_client_id ,
			:candidate_basis ,
			:retry_count ,
			:last_attempt_at ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, unmatched)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (unmatchedDao) Update(
	ctx context.Context,
	q Queryer,
	unmatched *models.UnmatchedEmailEntity,
) error {
	const query = `
		update "unmatched_emails"
		set "reason" = :reason ,
		    "candidate_client_id" = :candidate_client_id ,
		    "candidate_basis" = :candidate_basis ,
		    "retry_count" = :retry_count ,
		    "last_attempt_at" = :last_attempt_at
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, unmatched)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (unmatchedDao) Delete(
	ctx context.Context,
	q Queryer,
	unmatched *models.UnmatchedEmailEntity,
) error {
	const query = `
		delete from "unmatched_emails"
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, unmatched)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (unmatchedDao) FindAll(
	ctx context.Context,
	q Queryer,
) ([]models.UnmatchedEmailEntity, error) {
	const query = `
		select *
		from "unmatched_emails"
		order by "created_at" ;
	`

	var unmatchedSlice []models.UnmatchedEmailEntity

	if err := selectSlice(ctx, q, &unmatchedSlice, query); err != nil {
		return nil, err
	}

	return unmatchedSlice, nil
}

func (unmatchedDao) FindByID(
	ctx context.Context,
	q Queryer,
	id string,
) (*models.UnmatchedEmailEntity, error) {
	const query = `
		select *
		from "unmatched_emails"
		where "id" = $1 ;
	`

	var unmatched models.UnmatchedEmailEntity

	if err := selectOne(ctx, q, &unmatched, query, id); err != nil {
		return nil, err
	}

	return &unmatched, nil
}

func (unmatchedDao) FindByInternetMessageID(
	ctx context.Context,
	q Queryer,
	internetMessageID string,
) (*models.UnmatchedEmailEntity, error) {
	const query = `
		select *
		from "unmatched_emails"
		where "internet_message_id" = $1
		limit 1 ;
	`

	var unmatched models.UnmatchedEmailEntity

	if err := selectOne(ctx, q, &unmatched, query, internetMessageID); err != nil {
		return nil, err
	}

	return &unmatched, nil
}
