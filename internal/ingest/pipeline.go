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

// Package ingest turns provider payloads into correlated messages. The
// pipeline derives the correlation identities of an envelope, resolves the
// client and the canonical conversation and either stores the message or
// parks it in the unmatched queue.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/classify"
	"github.com/ledgerline/mailroom/internal/crypto"
	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/match"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/sla"
	"github.com/ledgerline/mailroom/internal/storage"
	"github.com/ledgerline/mailroom/internal/thread"
)

func init() {
	viper.SetDefault("ingest.participantoverlap", 1.0)
}

// Pipeline ingests provider envelopes. Every envelope ends up either as a
// message attached to its canonical conversation or as a row in the
// unmatched queue. Replaying an envelope is a no-op.
type Pipeline struct {
	database      database.Conn
	conversations *locks
	normalizer    *Normalizer
	matcher       match.Matcher
	aggregator    *thread.Aggregator
	classifier    classify.Queue
	bodies        storage.Bodies
	idGenerator   crypto.IDGenerator
	messageDao    database.MessageDao
	threadDao     database.ThreadDao
	inboxEmailDao database.InboxEmailDao
	unmatchedDao  database.UnmatchedDao
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	conn database.Conn,
	normalizer *Normalizer,
	matcher match.Matcher,
	aggregator *thread.Aggregator,
	classifier classify.Queue,
	bodies storage.Bodies,
	idGenerator crypto.IDGenerator,
	messageDao database.MessageDao,
	threadDao database.ThreadDao,
	inboxEmailDao database.InboxEmailDao,
	unmatchedDao database.UnmatchedDao,
) *Pipeline {
	return &Pipeline{
		database:      conn,
		conversations: newLocks(),
		normalizer:    normalizer,
		matcher:       matcher,
		aggregator:    aggregator,
		classifier:    classifier,
		bodies:        bodies,
		idGenerator:   idGenerator,
		messageDao:    messageDao,
		threadDao:     threadDao,
		inboxEmailDao: inboxEmailDao,
		unmatchedDao:  unmatchedDao,
	}
}

// identity carries the correlation identities derived from one envelope as
// seen through one inbox.
type identity struct {
	direction models.Direction
	sender    models.Address
	to        models.AddressList
	cc        models.AddressList
	stem      string
	signature string
	threadKey string
}

// Ingest processes a single envelope received through an inbox. The raw
// entry, when not nil, is stored as the message body instead of the inline
// envelope content and stays owned by the caller.
func (p *Pipeline) Ingest(
	ctx context.Context,
	inbox *models.InboxEntity,
	envelope *Envelope,
	raw storage.SpoolEntry,
) error {
	seen, err := p.alreadySeen(ctx, inbox, envelope)
	if err != nil || seen {
		return err
	}

	id, err := p.deriveIdentity(inbox, envelope)
	if err != nil {
		return err
	}

	existing, err := p.messageDao.FindByInternetMessageID(
		ctx, p.database, envelope.InternetMessageID)

	switch {
	case err == nil:
		// The same mail was already ingested through another inbox. Only the
		// per-inbox view is added, the message itself stays untouched.
		return p.recordSighting(ctx, inbox, envelope, id, existing)

	case !database.IsErrNoRows(err):
		return err
	}

	resolution, parkReason, err := p.resolveClient(ctx, inbox, envelope, id)
	if err != nil {
		return err
	}

	if parkReason != "" {
		return p.park(ctx, inbox, envelope, id, raw, parkReason, resolution)
	}

	return p.store(ctx, inbox, envelope, id, raw, resolution)
}

// alreadySeen reports whether the (inbox, provider id) pair was processed
// before. The pair is unique, so a replayed payload stops here.
func (p *Pipeline) alreadySeen(
	ctx context.Context,
	inbox *models.InboxEntity,
	envelope *Envelope,
) (bool, error) {
	_, err := p.inboxEmailDao.FindByInboxAndProviderID(
		ctx, p.database, inbox.ID, envelope.ID)

	switch {
	case err == nil:
		log.DebugContext(ctx).
			Int64("inbox", inbox.ID).
			Str("provider", envelope.ID).
			Msg("envelope replayed, skipping")

		return true, nil

	case database.IsErrNoRows(err):
		return false, nil

	default:
		return false, err
	}
}

// deriveIdentity normalizes the envelope into its correlation identities.
func (p *Pipeline) deriveIdentity(
	inbox *models.InboxEntity,
	envelope *Envelope,
) (identity, error) {
	sender, err := envelope.From.Normalized()
	if err != nil {
		return identity{}, err
	}

	var (
		to = Addresses(envelope.ToRecipients)
		cc = Addresses(envelope.CcRecipients)
	)

	var (
		stem      = p.normalizer.SubjectStem(envelope.Subject)
		signature = p.normalizer.ParticipantSignature(sender, to, cc)
	)

	return identity{
		direction: p.normalizer.Direction(inbox, sender, to, cc),
		sender:    sender,
		to:        to,
		cc:        cc,
		stem:      stem,
		signature: signature,
		threadKey: p.normalizer.ThreadKey(stem, signature),
	}, nil
}

// resolveClient determines the client attribution of an envelope. Internal
// mail and copied-in correspondence have no counterpart and no client. A
// missing or unconfirmed candidate yields a quarantine reason instead.
func (p *Pipeline) resolveClient(
	ctx context.Context,
	inbox *models.InboxEntity,
	envelope *Envelope,
	id identity,
) (match.Match, models.QuarantineReason, error) {
	counterpart, counterpartName, ok := match.CounterpartOf(
		id.direction,
		id.sender,
		envelope.From.EmailAddress.Name,
		id.to,
		id.cc,
		func(addr models.Address) bool {
			return !p.normalizer.IsFirmAddress(inbox, addr)
		},
	)

	if !ok {
		return match.Match{Tier: models.ConfidenceNone}, "", nil
	}

	resolution, err := p.matcher.Resolve(ctx, p.database, counterpart, counterpartName)
	if err != nil {
		if errors.Is(err, match.ErrDisabled) {
			return match.Match{Tier: models.ConfidenceNone}, models.ReasonDisabled, nil
		}

		return match.Match{}, "", err
	}

	switch resolution.Tier {
	case models.ConfidenceHigh, models.ConfidenceMedium:
		return resolution, "", nil

	case models.ConfidenceLow:
		return resolution, models.ReasonNoContactMatch, nil

	default:
		return resolution, models.ReasonNoClientMatch, nil
	}
}

// store writes a fully attributed envelope: body blob, message, thread
// rollups, the per-inbox view and reply tracking. Classification is enqueued
// once the transaction is committed.
func (p *Pipeline) store(
	ctx context.Context,
	inbox *models.InboxEntity,
	envelope *Envelope,
	id identity,
	raw storage.SpoolEntry,
	resolution match.Match,
) error {
	bodyID, err := p.writeBody(ctx, envelope, raw)
	if err != nil {
		return err
	}

	message, err := p.buildMessage(envelope, id, resolution, bodyID)
	if err != nil {
		return err
	}

	p.conversations.lock(id.threadKey)
	defer p.conversations.unlock(id.threadKey)

	tx, err := p.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.RollbackWith(p.rollbackBody(ctx, bodyID))

	conversation, err := p.resolveConversation(ctx, tx, message, id)
	if err != nil {
		return err
	}

	// Thread ids and thread keys never collide, acquisition order is always
	// key before id.
	p.conversations.lock(message.ThreadID)
	defer p.conversations.unlock(message.ThreadID)

	conversation, err = p.aggregator.Apply(ctx, tx, conversation, message, id.signature)
	if err != nil {
		return err
	}

	if err := p.recordInboxEmail(ctx, tx, inbox, envelope, id, message); err != nil {
		return err
	}

	if id.direction == models.DirectionOutbound {
		if err := p.markReplied(ctx, tx, inbox, conversation.ID, message.ReceivedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("mail", message.ID).
		Str("thread", conversation.ID).
		Str("direction", string(id.direction)).
		Str("confidence", string(message.MatchConfidence)).
		Msg("ingested message")

	if message.ClientID.Valid {
		p.classifier.Enqueue(message.ID)
	}

	return nil
}

// recordSighting adds the per-inbox view of a message that already exists,
// because another inbox ingested the same mail first. Reply tracking applies
// per inbox, so an outbound sighting still closes pending obligations.
func (p *Pipeline) recordSighting(
	ctx context.Context,
	inbox *models.InboxEntity,
	envelope *Envelope,
	id identity,
	message *models.MessageEntity,
) error {
	tx, err := p.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if err := p.recordInboxEmail(ctx, tx, inbox, envelope, id, message); err != nil {
		return err
	}

	if id.direction == models.DirectionOutbound {
		if err := p.markReplied(ctx, tx, inbox, message.ThreadID, message.ReceivedAt); err != nil {
			return err
		}
	}

	log.DebugContext(ctx).
		Str("mail", message.ID).
		Int64("inbox", inbox.ID).
		Msg("recorded additional sighting of known message")

	return tx.Commit()
}

// park stores an envelope in the unmatched queue. The body blob is written
// anyway, so a later promotion does not need the provider again. Inbound
// mail keeps its reply obligation while parked.
func (p *Pipeline) park(
	ctx context.Context,
	inbox *models.InboxEntity,
	envelope *Envelope,
	id identity,
	raw storage.SpoolEntry,
	reason models.QuarantineReason,
	resolution match.Match,
) error {
	bodyID, err := p.writeBody(ctx, envelope, raw)
	if err != nil {
		return err
	}

	unmatchedID, err := p.idGenerator.GenerateID()
	if err != nil {
		return err
	}

	now := time.Now().Unix()

	parked := models.UnmatchedEmailEntity{
		ID:                     unmatchedID,
		InboxID:                inbox.ID,
		ProviderMessageID:      envelope.ID,
		InternetMessageID:      envelope.InternetMessageID,
		ProviderConversationID: nullString(envelope.ConversationID),
		Direction:              id.direction,
		Sender:                 id.sender,
		SenderName:             envelope.From.EmailAddress.Name,
		RecipientsTo:           id.to,
		RecipientsCc:           id.cc,
		Subject:                envelope.Subject,
		SubjectStem:            id.stem,
		Preview:                envelope.BodyPreview,
		InReplyTo:              nullString(envelope.InReplyTo()),
		References:             models.StringList(envelope.ReferenceChain()),
		HasAttachments:         envelope.HasAttachments,
		SentAt:                 envelope.SentDateTime.Unix(),
		ReceivedAt:             envelope.ReceivedDateTime.Unix(),
		BodyID:                 bodyID,
		Reason:                 reason,
		CreatedAt:              now,
	}

	if resolution.Tier == models.ConfidenceLow {
		parked.CandidateClientID = sql.NullInt64{Int64: resolution.ClientID, Valid: true}
		parked.CandidateBasis = resolution.Basis
	}

	tx, err := p.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.RollbackWith(p.rollbackBody(ctx, bodyID))

	if err := p.unmatchedDao.Insert(ctx, tx, &parked); err != nil {
		if database.IsErrUnique(err) {
			// Another inbox parked the same mail first. The queue is keyed
			// by internet message id, a second row would be a duplicate.
			log.DebugContext(ctx).
				Str("provider", envelope.ID).
				Msg("mail already parked, skipping")

			return nil
		}

		return err
	}

	inboxEmail := models.InboxEmailEntity{
		InboxID:           inbox.ID,
		ProviderMessageID: envelope.ID,
		InternetMessageID: envelope.InternetMessageID,
		StaffUser:         inbox.StaffUser,
		Status:            models.ReplyStatusNone,
		ReceivedAt:        parked.ReceivedAt,
		CreatedAt:         now,
	}

	if id.direction == models.DirectionInbound {
		inboxEmail.Status = models.ReplyStatusPending
		inboxEmail.SLADeadline = sql.NullInt64{
			Int64: sla.Deadline(parked.ReceivedAt),
			Valid: true,
		}
	}

	if err := p.inboxEmailDao.Insert(ctx, tx, &inboxEmail); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("unmatched", parked.ID).
		Str("reason", string(reason)).
		Str("sender", parked.Sender.String()).
		Msg("parked unmatched mail")

	return nil
}

// Promote turns a parked email into a message using a confirmed or newly
// found resolution. The queue row is removed in the same transaction, so a
// promoted mail can not be promoted twice.
func (p *Pipeline) Promote(
	ctx context.Context,
	parked *models.UnmatchedEmailEntity,
	resolution match.Match,
) error {
	id := identity{
		direction: parked.Direction,
		sender:    parked.Sender,
		to:        parked.RecipientsTo,
		cc:        parked.RecipientsCc,
		stem:      parked.SubjectStem,
	}

	id.signature = p.normalizer.ParticipantSignature(id.sender, id.to, id.cc)
	id.threadKey = p.normalizer.ThreadKey(id.stem, id.signature)

	message, err := p.buildMessageFromParked(parked, id, resolution)
	if err != nil {
		return err
	}

	p.conversations.lock(id.threadKey)
	defer p.conversations.unlock(id.threadKey)

	tx, err := p.database.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	var inserted bool

	existing, err := p.messageDao.FindByInternetMessageID(
		ctx, tx, parked.InternetMessageID)

	switch {
	case err == nil:
		// Already ingested through another path. Point the per-inbox view at
		// the existing message and clear the queue without a duplicate.
		message = existing

	case database.IsErrNoRows(err):
		inserted = true
		conversation, err := p.resolveConversation(ctx, tx, message, id)
		if err != nil {
			return err
		}

		p.conversations.lock(message.ThreadID)
		defer p.conversations.unlock(message.ThreadID)

		if _, err := p.aggregator.Apply(ctx, tx, conversation, message, id.signature); err != nil {
			return err
		}

	default:
		return err
	}

	if err := p.adoptInboxEmail(ctx, tx, parked, message); err != nil {
		return err
	}

	if err := p.unmatchedDao.Delete(ctx, tx, parked); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Str("unmatched", parked.ID).
		Str("mail", message.ID).
		Str("confidence", string(message.MatchConfidence)).
		Msg("promoted unmatched mail")

	if inserted && message.ClientID.Valid {
		p.classifier.Enqueue(message.ID)
	}

	return nil
}

// adoptInboxEmail points the per-inbox view of a parked mail at its promoted
// message. The row was created at park time and keeps its reply tracking.
func (p *Pipeline) adoptInboxEmail(
	ctx context.Context,
	tx database.Tx,
	parked *models.UnmatchedEmailEntity,
	message *models.MessageEntity,
) error {
	inboxEmail, err := p.inboxEmailDao.FindByInboxAndProviderID(
		ctx, tx, parked.InboxID, parked.ProviderMessageID)
	if err != nil {
		return err
	}

	inboxEmail.MessageID = nullString(message.ID)
	inboxEmail.ClientID = message.ClientID

	return p.inboxEmailDao.Update(ctx, tx, inboxEmail)
}

// recordInboxEmail inserts the per-inbox view of a stored message. Inbound
// mail starts its reply window here.
func (p *Pipeline) recordInboxEmail(
	ctx context.Context,
	tx database.Tx,
	inbox *models.InboxEntity,
	envelope *Envelope,
	id identity,
	message *models.MessageEntity,
) error {
	inboxEmail := models.InboxEmailEntity{
		InboxID:           inbox.ID,
		ProviderMessageID: envelope.ID,
		InternetMessageID: envelope.InternetMessageID,
		MessageID:         nullString(message.ID),
		ClientID:          message.ClientID,
		StaffUser:         inbox.StaffUser,
		Status:            models.ReplyStatusNone,
		ReceivedAt:        envelope.ReceivedDateTime.Unix(),
		CreatedAt:         time.Now().Unix(),
	}

	if id.direction == models.DirectionInbound {
		inboxEmail.Status = models.ReplyStatusPending
		inboxEmail.SLADeadline = sql.NullInt64{
			Int64: sla.Deadline(inboxEmail.ReceivedAt),
			Valid: true,
		}
	}

	return p.inboxEmailDao.Insert(ctx, tx, &inboxEmail)
}

// markReplied closes pending reply obligations of an inbox on a conversation
// once an outbound message went through it.
func (p *Pipeline) markReplied(
	ctx context.Context,
	tx database.Tx,
	inbox *models.InboxEntity,
	threadID string,
	repliedAt int64,
) error {
	awaiting, err := p.inboxEmailDao.FindAwaitingReply(ctx, tx, inbox.ID, threadID)
	if err != nil {
		return err
	}

	for i := range awaiting {
		email := &awaiting[i]

		if !sla.MarkReplied(email, repliedAt) {
			continue
		}

		if err := p.inboxEmailDao.Update(ctx, tx, email); err != nil {
			return err
		}

		log.DebugContext(ctx).
			Int64("email", email.ID).
			Str("thread", threadID).
			Msg("marked inbox email replied")
	}

	return nil
}

// resolveConversation finds the canonical conversation of a message and sets
// its thread id. Reply headers take precedence over the provider conversation
// id, which in turn beats the subject and participant fallback. Without any
// hit a fresh thread id is generated and a nil thread returned.
func (p *Pipeline) resolveConversation(
	ctx context.Context,
	tx database.Tx,
	message *models.MessageEntity,
	id identity,
) (*models.ThreadEntity, error) {
	threadID, err := p.resolveThreadID(ctx, tx, message, id)
	if err != nil {
		return nil, err
	}

	if threadID != "" {
		message.ThreadID = threadID
		return p.threadDao.FindByID(ctx, tx, threadID)
	}

	threadID, err = p.idGenerator.GenerateID()
	if err != nil {
		return nil, err
	}

	message.ThreadID = threadID
	return nil, nil
}

func (p *Pipeline) resolveThreadID(
	ctx context.Context,
	tx database.Tx,
	message *models.MessageEntity,
	id identity,
) (string, error) {
	if len(message.References) > 0 {
		ancestor, err := p.messageDao.FindByAnyReference(ctx, tx, message.References)
		if err == nil {
			return ancestor.ThreadID, nil
		}

		if !database.IsErrNoRows(err) {
			return "", err
		}
	}

	// Children may arrive before their parent when folders sync in
	// different order.
	descendant, err := p.messageDao.FindReferencing(ctx, tx, message.InternetMessageID)
	if err == nil {
		return descendant.ThreadID, nil
	}

	if !database.IsErrNoRows(err) {
		return "", err
	}

	if message.ProviderConversationID.Valid {
		sibling, err := p.messageDao.FindByProviderConversationID(
			ctx, tx, message.ProviderConversationID.String)
		if err == nil {
			return sibling.ThreadID, nil
		}

		if !database.IsErrNoRows(err) {
			return "", err
		}
	}

	return p.resolveBySubject(ctx, tx, id)
}

// resolveBySubject is the last resort for mail without usable headers. A
// candidate thread must share the subject stem and enough of the audience.
func (p *Pipeline) resolveBySubject(
	ctx context.Context,
	tx database.Tx,
	id identity,
) (string, error) {
	if id.stem == "" {
		return "", nil
	}

	candidates, err := p.threadDao.FindBySubjectStem(ctx, tx, id.stem)
	if err != nil {
		return "", err
	}

	overlap := viper.GetFloat64("ingest.participantoverlap")

	for i := range candidates {
		candidate := &candidates[i]

		if containment(candidate.Participants, id.signature) >= overlap {
			return candidate.ID, nil
		}
	}

	return "", nil
}

// buildMessage assembles the message entity of an envelope.
func (p *Pipeline) buildMessage(
	envelope *Envelope,
	id identity,
	resolution match.Match,
	bodyID sql.NullString,
) (*models.MessageEntity, error) {
	messageID, err := p.idGenerator.GenerateID()
	if err != nil {
		return nil, err
	}

	message := models.MessageEntity{
		ID:                     messageID,
		InternetMessageID:      envelope.InternetMessageID,
		ProviderConversationID: nullString(envelope.ConversationID),
		ThreadKey:              id.threadKey,
		Direction:              id.direction,
		Sender:                 id.sender,
		SenderName:             envelope.From.EmailAddress.Name,
		RecipientsTo:           id.to,
		RecipientsCc:           id.cc,
		Subject:                envelope.Subject,
		SubjectStem:            id.stem,
		Preview:                envelope.BodyPreview,
		InReplyTo:              nullString(envelope.InReplyTo()),
		References:             models.StringList(envelope.ReferenceChain()),
		MatchConfidence:        models.ConfidenceNone,
		HasAttachments:         envelope.HasAttachments,
		SentAt:                 envelope.SentDateTime.Unix(),
		ReceivedAt:             envelope.ReceivedDateTime.Unix(),
		BodyID:                 bodyID,
		CreatedAt:              time.Now().Unix(),
	}

	applyResolution(&message, resolution)
	return &message, nil
}

// buildMessageFromParked assembles the message entity of a promoted queue
// row. The body blob written at park time is carried over.
func (p *Pipeline) buildMessageFromParked(
	parked *models.UnmatchedEmailEntity,
	id identity,
	resolution match.Match,
) (*models.MessageEntity, error) {
	messageID, err := p.idGenerator.GenerateID()
	if err != nil {
		return nil, err
	}

	message := models.MessageEntity{
		ID:                     messageID,
		InternetMessageID:      parked.InternetMessageID,
		ProviderConversationID: parked.ProviderConversationID,
		ThreadKey:              id.threadKey,
		Direction:              parked.Direction,
		Sender:                 parked.Sender,
		SenderName:             parked.SenderName,
		RecipientsTo:           parked.RecipientsTo,
		RecipientsCc:           parked.RecipientsCc,
		Subject:                parked.Subject,
		SubjectStem:            parked.SubjectStem,
		Preview:                parked.Preview,
		InReplyTo:              parked.InReplyTo,
		References:             parked.References,
		MatchConfidence:        models.ConfidenceNone,
		HasAttachments:         parked.HasAttachments,
		SentAt:                 parked.SentAt,
		ReceivedAt:             parked.ReceivedAt,
		BodyID:                 parked.BodyID,
		CreatedAt:              time.Now().Unix(),
	}

	applyResolution(&message, resolution)
	return &message, nil
}

// applyResolution writes the client attribution of a confirmed resolution.
// Only high and medium tiers carry a client.
func applyResolution(message *models.MessageEntity, resolution match.Match) {
	switch resolution.Tier {
	case models.ConfidenceHigh, models.ConfidenceMedium:
		message.ClientID = sql.NullInt64{Int64: resolution.ClientID, Valid: true}
		message.MatchConfidence = resolution.Tier
		message.MatchBasis = resolution.Basis
	}
}

// writeBody stores the message content as a blob. The raw entry wins over
// the inline envelope content. Mail without content has no blob.
func (p *Pipeline) writeBody(
	ctx context.Context,
	envelope *Envelope,
	raw storage.SpoolEntry,
) (sql.NullString, error) {
	var r io.Reader

	switch {
	case raw != nil:
		reader, err := raw.Reader()
		if err != nil {
			return sql.NullString{}, err
		}

		r = reader

	case envelope.Body.Content != "":
		r = strings.NewReader(envelope.Body.Content)

	default:
		return sql.NullString{}, nil
	}

	id, _, err := p.bodies.Write(ctx, r)
	if err != nil {
		return sql.NullString{}, err
	}

	return nullString(id), nil
}

// rollbackBody removes a blob again when the surrounding transaction does
// not commit. Errors are logged but not handled to keep the original cause
// of the rollback visible.
func (p *Pipeline) rollbackBody(ctx context.Context, bodyID sql.NullString) func() {
	return func() {
		if !bodyID.Valid {
			return
		}

		log.WarnContext(ctx).
			Str("body", bodyID.String).
			Msg("rolling back message body")

		if err := p.bodies.Delete(ctx, bodyID.String); err != nil {
			log.WarnContext(ctx).
				Err(err).
				Str("body", bodyID.String).
				Msg("could not delete body blob")
		}
	}
}

// containment is the share of the smaller participant set covered by both
// signatures.
func containment(a, b string) float64 {
	var (
		setA = signatureSet(a)
		setB = signatureSet(b)
	)

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var shared int
	for participant := range setA {
		if setB[participant] {
			shared++
		}
	}

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}

	return float64(shared) / float64(smaller)
}

func signatureSet(signature string) map[string]bool {
	set := make(map[string]bool)

	for _, participant := range strings.Split(signature, "|") {
		if participant != "" {
			set[participant] = true
		}
	}

	return set
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
