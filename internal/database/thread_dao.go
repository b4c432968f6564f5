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

// ThreadDao is a data access object for all thread related queries.
type ThreadDao interface {
	// Insert inserts a new thread. The id must be assigned beforehand.
	Insert(context.Context, Queryer, *models.ThreadEntity) error
	// Update updates the rollup and sla fields of an existing thread.
	Update(context.Context, Queryer, *models.ThreadEntity) error
	// FindByID returns the thread with the given id.
	FindByID(context.Context, Queryer, string) (*models.ThreadEntity, error)
	// FindBySubjectStem returns merge candidates sharing a subject stem.
	FindBySubjectStem(context.Context, Queryer, string) ([]models.ThreadEntity, error)
	// FindAll returns all threads, newest activity first.
	FindAll(context.Context, Queryer) ([]models.ThreadEntity, error)
	// FindAllByState returns all threads in the given sla state, newest
	// activity first.
	FindAllByState(context.Context, Queryer, models.SLAState) ([]models.ThreadEntity, error)
	// FindSnoozedBefore returns snoozed threads whose wake time has passed.
	FindSnoozedBefore(context.Context, Queryer, int64) ([]models.ThreadEntity, error)
}

// threadDao is the sqlite implementation of ThreadDao.
type threadDao struct{}

// NewThreadDao creates a new ThreadDao.
func NewThreadDao() ThreadDao {
	return threadDao{}
}

func (threadDao) Insert(ctx context.Context, q Queryer, thread *models.ThreadEntity) error {
	const query = `
		insert into "threads" (
			"id" ,
			"subject" ,
			"subject_stem" ,
			"thread_key" ,
			"participants" ,
			"client_id" ,
			"first_message_at" ,
			"last_message_at" ,
			"message_count" ,
			"last_preview" ,
			"last_direction" ,
			"last_message_id" ,
			"state" ,
			"became_active_at" ,
			"completed_at" ,
			"completed_by" ,
			"snooze_until" ,
			"created_at"
		) values (
			:id ,
			:subject ,
			:subject_stem ,
			:thread_key ,
			:participants ,
			:client_id ,
			:first_message_at ,
			:last_message_at ,
			:message_count ,
			:last_preview ,
			:last_direction ,
			:last_message_id ,
			:state ,
			:became_active_at ,
			:completed_at ,
			:completed_by ,
			:snooze_until ,
			:created_at
		) ;
	`

	result, err := execNamed(ctx, q, query, thread)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (threadDao) Update(ctx context.Context, q Queryer, thread *models.ThreadEntity) error {
	const query = `
		update "threads"
		set "participants" = :participants ,
		    "client_id" = :client_id ,
		    "first_message_at" = :first_message_at ,
		    "last_message_at" = :last_message_at ,
		    "message_count" = :message_count ,
		    "last_preview" = :last_preview ,
		    "last_direction" = :last_direction ,
		    "last_message_id" = :last_message_id ,
		    "state" = :state ,
		    "became_active_at" = :became_active_at ,
		    "completed_at" = :completed_at ,
		    "completed_by" = :completed_by ,
		    "snooze_until" = :snooze_until
		where "id" = :id ;
	`

	result, err := execNamed(ctx, q, query, thread)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (threadDao) FindByID(
	ctx context.Context,
	q Queryer,
	id string,
) (*models.ThreadEntity, error) {
	const query = `
		select *
		from "threads"
		where "id" = $1 ;
	`

	var thread models.ThreadEntity

	if err := selectOne(ctx, q, &thread, query, id); err != nil {
		return nil, err
	}

	return &thread, nil
}

func (threadDao) FindBySubjectStem(
	ctx context.Context,
	q Queryer,
	subjectStem string,
) ([]models.ThreadEntity, error) {
	const query = `
		select *
		from "threads"
		where "subject_stem" = $1
		order by "last_message_at" desc ;
	`

	var threadSlice []models.ThreadEntity

	if err := selectSlice(ctx, q, &threadSlice, query, subjectStem); err != nil {
		return nil, err
	}

	return threadSlice, nil
}

func (threadDao) FindAll(ctx context.Context, q Queryer) ([]models.ThreadEntity, error) {
	const query = `
		select *
		from "threads"
		order by "last_message_at" desc ;
	`

	var threadSlice []models.ThreadEntity

	if err := selectSlice(ctx, q, &threadSlice, query); err != nil {
		return nil, err
	}

	return threadSlice, nil
}

func (threadDao) FindAllByState(
	ctx context.Context,
	q Queryer,
	state models.SLAState,
) ([]models.ThreadEntity, error) {
	const query = `
		select *
		from "threads"
		where "state" = $1
		order by "last_message_at" desc ;
	`

	var threadSlice []models.ThreadEntity

	if err := selectSlice(ctx, q, &threadSlice, query, state); err != nil {
		return nil, err
	}

	return threadSlice, nil
}

func (threadDao) FindSnoozedBefore(
	ctx context.Context,
	q Queryer,
	now int64,
) ([]models.ThreadEntity, error) {
	const query = `
		select *
		from "threads"
		where "state" = 'snoozed'
		  and "snooze_until" is not null
		  and "snooze_until" <= $1 ;
	`

	var threadSlice []models.ThreadEntity

	if err := selectSlice(ctx, q, &threadSlice, query, now); err != nil {
		return nil, err
	}

	return threadSlice, nil
}
