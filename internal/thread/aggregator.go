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

package thread

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/sla"
)

// Aggregator maintains the denormalized thread rollups as messages are
// attached to their canonical conversation.
type Aggregator struct {
	threadDao  database.ThreadDao
	messageDao database.MessageDao
}

// NewAggregator creates a new Aggregator.
func NewAggregator(threadDao database.ThreadDao, messageDao database.MessageDao) *Aggregator {
	return &Aggregator{
		threadDao:  threadDao,
		messageDao: messageDao,
	}
}

// Apply attaches a message to its thread inside the caller's transaction. A
// nil thread creates one under the message's thread id. The message receives
// the next free thread position, which follows arrival order, not wall-clock
// order. Callers must hold the conversation lock for the thread id.
func (a *Aggregator) Apply(
	ctx context.Context,
	q database.Queryer,
	thread *models.ThreadEntity,
	message *models.MessageEntity,
	participants string,
) (*models.ThreadEntity, error) {
	position, err := a.messageDao.MaxThreadPosition(ctx, q, message.ThreadID)
	if err != nil {
		return nil, err
	}

	message.ThreadPosition = position + 1

	if err := a.messageDao.Insert(ctx, q, message); err != nil {
		return nil, err
	}

	if thread == nil {
		thread = newThread(message, participants, time.Now().Unix())

		if err := a.threadDao.Insert(ctx, q, thread); err != nil {
			return nil, err
		}

		log.DebugContext(ctx).
			Str("thread", thread.ID).
			Str("mail", message.ID).
			Msg("thread created")

		return thread, nil
	}

	advanceRollups(thread, message)
	thread.Participants = mergeSignatures(thread.Participants, participants)

	if !thread.ClientID.Valid && message.ClientID.Valid {
		thread.ClientID = message.ClientID
	}

	if message.Direction == models.DirectionInbound && sla.Reopen(thread, message.ReceivedAt) {
		log.InfoContext(ctx).
			Str("thread", thread.ID).
			Str("mail", message.ID).
			Msg("inbound message reopened thread")
	}

	if err := a.threadDao.Update(ctx, q, thread); err != nil {
		return nil, err
	}

	return thread, nil
}

// newThread seeds a thread from its first message.
func newThread(message *models.MessageEntity, participants string, now int64) *models.ThreadEntity {
	return &models.ThreadEntity{
		ID:             message.ThreadID,
		Subject:        message.Subject,
		SubjectStem:    message.SubjectStem,
		ThreadKey:      message.ThreadKey,
		Participants:   participants,
		ClientID:       message.ClientID,
		FirstMessageAt: message.ReceivedAt,
		LastMessageAt:  message.ReceivedAt,
		MessageCount:   1,
		LastPreview:    message.Preview,
		LastDirection:  message.Direction,
		LastMessageID:  message.ID,
		State:          models.SLAActive,
		BecameActiveAt: message.ReceivedAt,
		CreatedAt:      now,
	}
}

// advanceRollups folds a message into the thread counters. Rollups only move
// forward, a delayed message never overwrites newer activity.
func advanceRollups(thread *models.ThreadEntity, message *models.MessageEntity) {
	thread.MessageCount++

	if message.ReceivedAt < thread.FirstMessageAt {
		thread.FirstMessageAt = message.ReceivedAt
	}

	if message.ReceivedAt >= thread.LastMessageAt {
		thread.LastMessageAt = message.ReceivedAt
		thread.LastPreview = message.Preview
		thread.LastDirection = message.Direction
		thread.LastMessageID = message.ID
	}
}

// mergeSignatures unions two participant signatures. A signature is a sorted,
// "|" joined set of normalized addresses, so the union is stable no matter in
// which order participants joined the conversation.
func mergeSignatures(a, b string) string {
	set := make(map[string]bool)

	for _, signature := range []string{a, b} {
		for _, participant := range strings.Split(signature, "|") {
			if participant != "" {
				set[participant] = true
			}
		}
	}

	merged := make([]string, 0, len(set))
	for participant := range set {
		merged = append(merged, participant)
	}

	sort.Strings(merged)
	return strings.Join(merged, "|")
}
