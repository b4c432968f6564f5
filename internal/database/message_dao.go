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

	"github.com/jmoiron/sqlx"

	"github.com/ledgerline/mailroom/internal/models"
)

// MessageDao is a data access object for all message related queries. The
// reply-chain lookups back the canonical conversation resolution during
// ingestion.
type MessageDao interface {
	// Insert inserts a new message. The id must be assigned beforehand.
	Insert(context.Context, Queryer, *models.MessageEntity) error
	// RecordError increments the error bookkeeping of a message.
	RecordError(ctx context.Context, q Queryer, id string, lastError string) error
	// FindByID returns the message with the given id.
	FindByID(context.Context, Queryer, string) (*models.MessageEntity, error)
	// FindByThread returns all messages of a thread ordered by position.
	FindByThread(context.Context, Queryer, string) ([]models.MessageEntity, error)
	// FindByInternetMessageID returns the message with the given rfc message
	// id.
	FindByInternetMessageID(context.Context, Queryer, string) (*models.MessageEntity, error)
	// FindByAnyReference returns the newest message whose rfc message id
	// appears in the given reply chain.
	FindByAnyReference(context.Context, Queryer, []string) (*models.MessageEntity, error)
	// FindReferencing returns the newest message whose own reply chain points
	// at the given rfc message id. This resolves parents that arrive after
	// their children.
	FindReferencing(context.Context, Queryer, string) (*models.MessageEntity, error)
	// FindByProviderConversationID returns the newest message of a provider
	// side conversation.
	FindByProviderConversationID(context.Context, Queryer, string) (*models.MessageEntity, error)
	// MaxThreadPosition returns the highest assigned position in a thread, or
	// zero for an empty thread.
	MaxThreadPosition(context.Context, Queryer, string) (int64, error)
	// CountByThread returns the number of messages referencing a thread.
	CountByThread(context.Context, Queryer, string) (int64, error)
}

// messageDao is the sqlite implementation of MessageDao.
type messageDao struct{}

// NewMessageDao creates a new MessageDao.
func NewMessageDao() MessageDao {
	return messageDao{}
}

func (messageDao) Insert(ctx context.Context, q Queryer, message *models.MessageEntity) error {
	const query = `
		insert into "messages" (
			"id" ,
			"thread_id" ,
			"thread_position" ,
			"internet_message_id" ,
			"provider_conversation_id" ,
			"thread_key" ,
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
			"client_id" ,
			"match_confidence" ,
			"match_basis" ,
			"has_attachments" ,
			"sent_at" ,
			"received_at" ,
			"error_count" ,
			"last_error" ,
			"body_id" ,
			"created_at"
		) values (
			:id ,
			:thread_id ,
			:thread_position ,
			:internet_message_id ,
			:provider_conversation_id ,
			:thread_key ,
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
			:client_id ,
			:match_confidence ,
			:match_basis ,
			:has_attachments ,
			:sent_at ,
			:received_at ,
			:error_count ,
			:last_error ,
			:body_id ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, message)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (messageDao) RecordError(
	ctx context.Context,
	q Queryer,
	id string,
	lastError string,
) error {
	const query = `
		update "messages"
		set "error_count" = "error_count" + 1 ,
		    "last_error" = $2
		where "id" = $1 ;
	`

	result, err := execPositional(ctx, q, query, id, lastError)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (messageDao) FindByID(
	ctx context.Context,
	q Queryer,
	id string,
) (*models.MessageEntity, error) {
	const query = `
		select *
		from "messages"
		where "id" = $1 ;
	`

	var message models.MessageEntity

	if err := selectOne(ctx, q, &message, query, id); err != nil {
		return nil, err
	}

	return &message, nil
}

func (messageDao) FindByThread(
	ctx context.Context,
	q Queryer,
	threadID string,
) ([]models.MessageEntity, error) {
	const query = `
		select *
		from "messages"
		where "thread_id" = $1
		order by "thread_position" ;
	`

	var messageSlice []models.MessageEntity

	if err := selectSlice(ctx, q, &messageSlice, query, threadID); err != nil {
		return nil, err
	}

	return messageSlice, nil
}

func (messageDao) FindByInternetMessageID(
	ctx context.Context,
	q Queryer,
	internetMessageID string,
) (*models.MessageEntity, error) {
	const query = `
		select *
		from "messages"
		where "internet_message_id" = $1
		limit 1 ;
	`

	var message models.MessageEntity

	if err := selectOne(ctx, q, &message, query, internetMessageID); err != nil {
		return nil, err
	}

	return &message, nil
}

func (messageDao) FindByAnyReference(
	ctx context.Context,
	q Queryer,
	chain []string,
) (*models.MessageEntity, error) {
	const query = `
		select *
		from "messages"
		where "internet_message_id" in (?)
		order by "received_at" desc
		limit 1 ;
	`

	expanded, args, err := sqlx.In(query, chain)
	if err != nil {
		return nil, err
	}

	var message models.MessageEntity

	if err := selectOne(ctx, q, &message, q.Rebind(expanded), args...); err != nil {
		return nil, err
	}

	return &message, nil
}

func (messageDao) FindReferencing(
	ctx context.Context,
	q Queryer,
	internetMessageID string,
) (*models.MessageEntity, error) {
	const query = `
		select "messages".*
		from "messages"
		where "messages"."in_reply_to" = $1
		   or exists (
				select 1
				from json_each ( "messages"."references" )
				where json_each."value" = $1
		   )
		order by "messages"."received_at" desc
		limit 1 ;
	`

	var message models.MessageEntity

	if err := selectOne(ctx, q, &message, query, internetMessageID); err != nil {
		return nil, err
	}

	return &message, nil
}

func (messageDao) FindByProviderConversationID(
	ctx context.Context,
	q Queryer,
	conversationID string,
) (*models.MessageEntity, error) {
	const query = `
		select *
		from "messages"
		where "provider_conversation_id" = $1
		order by "received_at" desc
		limit 1 ;
	`

	var message models.MessageEntity

	if err := selectOne(ctx, q, &message, query, conversationID); err != nil {
		return nil, err
	}

	return &message, nil
}

func (messageDao) MaxThreadPosition(
	ctx context.Context,
	q Queryer,
	threadID string,
) (int64, error) {
	const query = `
		select coalesce ( max ( "thread_position" ) , 0 )
		from "messages"
		where "thread_id" = $1 ;
	`

	var position int64

	if err := selectOne(ctx, q, &position, query, threadID); err != nil {
		return 0, err
	}

	return position, nil
}

func (messageDao) CountByThread(
	ctx context.Context,
	q Queryer,
	threadID string,
) (int64, error) {
	const query = `
		select count ( * )
		from "messages"
		where "thread_id" = $1 ;
	`

	var count int64

	if err := selectOne(ctx, q, &count, query, threadID); err != nil {
		return 0, err
	}

	return count, nil
}
