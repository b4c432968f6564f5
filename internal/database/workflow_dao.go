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

// WorkflowDao is a data access object for the per-message triage state.
type WorkflowDao interface {
	// Upsert inserts or replaces the triage state of a message.
	Upsert(context.Context, Queryer, *models.WorkflowStateEntity) error
	// FindByMessage returns the triage state of a message.
	FindByMessage(context.Context, Queryer, string) (*models.WorkflowStateEntity, error)
}

// workflowDao is the sqlite implementation of WorkflowDao.
type workflowDao struct{}

// NewWorkflowDao creates a new WorkflowDao.
func NewWorkflowDao() WorkflowDao {
	return workflowDao{}
}

func (workflowDao) Upsert(
	ctx context.Context,
	q Queryer,
	state *models.WorkflowStateEntity,
) error {
	const query = `
		insert into "workflow_states" (
			"message_id" ,
			"state" ,
			"updated_at" ,
			"updated_by"
		) values (
			:message_id ,
			:state ,
			:updated_at ,
			:updated_by
		)
		on conflict ( "message_id" ) do update
		set "state" = "excluded"."state" ,
		    "updated_at" = "excluded"."updated_at" ,
		    "updated_by" = "excluded"."updated_by" ;
	`

	result, err := execNamed(ctx, q, query, state)
	if err != nil {
		return err
	}

	return ensureRowsAffected(result)
}

func (workflowDao) FindByMessage(
	ctx context.Context,
	q Queryer,
	messageID string,
) (*models.WorkflowStateEntity, error) {
	const query = `
		select *
		from "workflow_states"
		where "message_id" = $1 ;
	`

	var state models.WorkflowStateEntity

	if err := selectOne(ctx, q, &state, query, messageID); err != nil {
		return nil, err
	}

	return &state, nil
}
