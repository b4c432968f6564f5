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

// SyncStateDao is a data access object for delta sync cursors. A cursor row
// is owned by one (inbox, folder) pair and written only under the per-key
// sync lock.
type SyncStateDao interface {
	// Upsert inserts or replaces the cursor row of an (inbox, folder) pair.
	Upsert(context.Context, Queryer, *models.SyncStateEntity) error
	// FindByInboxAndFolder returns the cursor row of an (inbox, folder) pair.
	FindByInboxAndFolder(context.Context, Queryer, int64, string) (*models.SyncStateEntity, error)
	// FindByInbox returns all cursor rows of an inbox.
	FindByInbox(context.Context, Queryer, int64) ([]models.SyncStateEntity, error)
}

// syncStateDao is the sqlite implementation of SyncStateDao.
type syncStateDao struct{}

// NewSyncStateDao creates a new SyncStateDao.
func NewSyncStateDao() SyncStateDao {
	return syncStateDao{}
}

func (syncStateDao) Upsert(ctx context.Context, q Queryer, state *models.SyncStateEntity) error {
	const query = `
		insert into "sync_states" (
			"inbox_id" ,
			"folder" ,
			"cursor" ,
			"last_synced_at" ,
			"last_error" ,
			"failure_count"
		) values (
			:inbox_id ,
			:folder ,
			:cursor ,
			:last_synced_at ,
			:last_error ,
			:failure_count
		)
		on conflict ( "inbox_id" , "folder" ) do update
		set "cursor" = "excluded"."cursor" ,
		    "last_synced_at" = "excluded"."last_synced_at" ,
		    "last_error" = "excluded"."last_error" ,
		    "failure_count" = "excluded"."failure_count" ;
	`

	result, err := execNamed(ctx, q, query, state)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (syncStateDao) FindByInboxAndFolder(
	ctx context.Context,
	q Queryer,
	inboxID int64,
	folder string,
) (*models.SyncStateEntity, error) {
	const query = `
		select *
		from "sync_states"
		where "inbox_id" = $1
		  and "folder" = $2
		limit 1 ;
	`

	var state models.SyncStateEntity

	if err := selectOne(ctx, q, &state, query, inboxID, folder); err != nil {
		return nil, err
	}

	return &state, nil
}

func (syncStateDao) FindByInbox(
	ctx context.Context,
	q Queryer,
	inboxID int64,
) ([]models.SyncStateEntity, error) {
	const query = `
		select *
		from "sync_states"
		where "inbox_id" = $1
		order by "folder" ;
	`

	var stateSlice []models.SyncStateEntity

	if err := selectSlice(ctx, q, &stateSlice, query, inboxID); err != nil {
		return nil, err
	}

	return stateSlice, nil
}
