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

package classify

import (
	"context"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/models"
)

func init() {
	viper.SetDefault("classify.queuesize", 256)
}

// Queue accepts message ids for later enrichment. Ingestion hands over ids
// and moves on, enrichment must never slow down correlation.
type Queue interface {
	Enqueue(messageID string)
}

// Overlay consumes freshly correlated messages and maintains the
// classification enrichment. An automatic result never replaces a human
// override, the check happens before the write.
type Overlay struct {
	database          database.Conn
	messageDao        database.MessageDao
	classificationDao database.ClassificationDao
	overrideDao       database.OverrideDao
	workflowDao       database.WorkflowDao
	classifier        Classifier

	queue chan string
}

// NewOverlay creates a new Overlay with a queue bounded by
// `classify.queuesize`.
func NewOverlay(
	database database.Conn,
	messageDao database.MessageDao,
	classificationDao database.ClassificationDao,
	overrideDao database.OverrideDao,
	workflowDao database.WorkflowDao,
	classifier Classifier,
) *Overlay {
	return &Overlay{
		database:          database,
		messageDao:        messageDao,
		classificationDao: classificationDao,
		overrideDao:       overrideDao,
		workflowDao:       workflowDao,
		classifier:        classifier,

		queue: make(chan string, viper.GetInt("classify.queuesize")),
	}
}

// Enqueue hands a message id to the background worker. A full queue drops the
// id, the message can still be classified by a later manual run.
func (o *Overlay) Enqueue(messageID string) {
	select {
	case o.queue <- messageID:
	default:
		log.Warn().
			Str("mail", messageID).
			Msg("classification queue full, skipping message")
	}
}

// Run consumes the queue until ctx is cancelled. Failures are logged per
// message, the worker itself keeps going.
func (o *Overlay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case messageID := <-o.queue:
			if err := o.Apply(ctx, messageID); err != nil {
				mailCtx := log.WithMail(ctx, messageID)

				log.ErrorContext(mailCtx).
					Err(err).
					Msg("could not classify message")

				o.recordError(mailCtx, messageID, err)
			}
		}
	}
}

// recordError keeps the failure visible on the message itself, so stuck
// enrichment shows up in triage and not only in the logs.
func (o *Overlay) recordError(ctx context.Context, messageID string, cause error) {
	err := o.messageDao.RecordError(ctx, o.database, messageID, cause.Error())
	if err != nil && !database.IsErrNoRows(err) {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not record classification error")
	}
}

// Apply classifies a single message and records the result with source auto.
// A message with a human override is left untouched.
func (o *Overlay) Apply(ctx context.Context, messageID string) error {
	ctx = log.WithMail(ctx, messageID)

	tx, err := o.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	hasOverride, err := o.classificationDao.HasOverride(ctx, tx, messageID)
	if err != nil {
		return err
	}

	if hasOverride {
		log.DebugContext(ctx).
			Msg("override present, skipping automatic classification")

		return nil
	}

	message, err := o.messageDao.FindByID(ctx, tx, messageID)
	if err != nil {
		return err
	}

	result, err := o.classifier.Classify(ctx, message.Subject, message.Preview)
	if err != nil {
		return err
	}

	now := time.Now().Unix()

	classification := models.ClassificationEntity{
		MessageID:    messageID,
		Sentiment:    result.Sentiment,
		Urgency:      result.Urgency,
		Opportunity:  result.Opportunity,
		Source:       models.SourceAuto,
		ClassifiedAt: now,
	}

	if err := o.classificationDao.Upsert(ctx, tx, &classification); err != nil {
		return err
	}

	if err := o.finishEnrichment(ctx, tx, messageID, now); err != nil {
		return err
	}

	log.DebugContext(ctx).
		Str("sentiment", string(result.Sentiment)).
		Str("urgency", string(result.Urgency)).
		Str("opportunity", string(result.Opportunity)).
		Msg("message classified")

	return tx.Commit()
}

// finishEnrichment flips the workflow state from pending to complete. A state
// already set by staff stays untouched.
func (o *Overlay) finishEnrichment(
	ctx context.Context,
	q database.Queryer,
	messageID string,
	now int64,
) error {
	workflow, err := o.workflowDao.FindByMessage(ctx, q, messageID)

	switch {
	case database.IsErrNoRows(err):
		// fall through to the upsert below

	case err != nil:
		return err

	case workflow.State != models.WorkflowPending:
		return nil
	}

	return o.workflowDao.Upsert(ctx, q, &models.WorkflowStateEntity{
		MessageID: messageID,
		State:     models.WorkflowComplete,
		UpdatedAt: now,
		UpdatedBy: "system",
	})
}

// Override appends a human override and rewrites the displayed
// classification. Overrides win forever, every later automatic run backs
// off.
func (o *Overlay) Override(
	ctx context.Context,
	messageID string,
	result Result,
	by string,
	reason string,
) error {
	ctx = log.WithMail(ctx, messageID)

	tx, err := o.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if _, err := o.messageDao.FindByID(ctx, tx, messageID); err != nil {
		return err
	}

	now := time.Now().Unix()

	override := models.ClassificationOverrideEntity{
		MessageID:   messageID,
		Sentiment:   result.Sentiment,
		Urgency:     result.Urgency,
		Opportunity: result.Opportunity,
		Reason:      reason,
		CreatedBy:   by,
		CreatedAt:   now,
	}

	if err := o.overrideDao.Insert(ctx, tx, &override); err != nil {
		return err
	}

	classification := models.ClassificationEntity{
		MessageID:    messageID,
		Sentiment:    result.Sentiment,
		Urgency:      result.Urgency,
		Opportunity:  result.Opportunity,
		Source:       models.SourceOverride,
		ClassifiedAt: now,
	}

	if err := o.classificationDao.Upsert(ctx, tx, &classification); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("by", by).
		Msg("classification overridden")

	return tx.Commit()
}

// SetWorkflow records a staff triage decision on a message.
func (o *Overlay) SetWorkflow(
	ctx context.Context,
	messageID string,
	state models.WorkflowState,
	by string,
) error {
	ctx = log.WithMail(ctx, messageID)

	tx, err := o.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if _, err := o.messageDao.FindByID(ctx, tx, messageID); err != nil {
		return err
	}

	workflow := models.WorkflowStateEntity{
		MessageID: messageID,
		State:     state,
		UpdatedAt: time.Now().Unix(),
		UpdatedBy: by,
	}

	if err := o.workflowDao.Upsert(ctx, tx, &workflow); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("state", string(state)).
		Str("by", by).
		Msg("workflow state set")

	return tx.Commit()
}
