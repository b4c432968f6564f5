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

package msgraph

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/ingest"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/storage"
)

func init() {
	viper.SetDefault("sync.folders", []string{"inbox", "sentitems"})
	viper.SetDefault("sync.maxattempts", 5)
	viper.SetDefault("sync.retrydelay", "2s")
}

// Syncer replays the delta streams of the managed inboxes through the ingest
// pipeline. Each (inbox, folder) pair owns a durable cursor, so a run picks
// up exactly where the previous one stopped, no matter how it stopped.
type Syncer struct {
	database     database.Conn
	client       Client
	pipeline     *ingest.Pipeline
	spool        storage.Spool
	folders      *folderLocks
	inboxDao     database.InboxDao
	messageDao   database.MessageDao
	syncStateDao database.SyncStateDao
}

// NewSyncer creates a new Syncer.
func NewSyncer(
	conn database.Conn,
	client Client,
	pipeline *ingest.Pipeline,
	spool storage.Spool,
	inboxDao database.InboxDao,
	messageDao database.MessageDao,
	syncStateDao database.SyncStateDao,
) *Syncer {
	return &Syncer{
		database:     conn,
		client:       client,
		pipeline:     pipeline,
		spool:        spool,
		folders:      newFolderLocks(),
		inboxDao:     inboxDao,
		messageDao:   messageDao,
		syncStateDao: syncStateDao,
	}
}

// SyncAll runs a delta sync over every active inbox. It is called once at
// startup to close the notification gap of the downtime.
func (s *Syncer) SyncAll(ctx context.Context) error {
	inboxSlice, err := s.inboxDao.FindAllActive(ctx, s.database)
	if err != nil {
		return err
	}

	for i := range inboxSlice {
		if err := s.syncInbox(ctx, &inboxSlice[i]); err != nil {
			return err
		}
	}

	return nil
}

// SyncInbox runs a delta sync over all folders of one inbox.
func (s *Syncer) SyncInbox(ctx context.Context, inboxID int64) error {
	inbox, err := s.inboxDao.FindByID(ctx, s.database, inboxID)
	if err != nil {
		return err
	}

	return s.syncInbox(ctx, inbox)
}

// syncInbox syncs the configured folders of an inbox one after another. A
// failed folder is recorded on its cursor row and does not stop the
// remaining folders.
func (s *Syncer) syncInbox(ctx context.Context, inbox *models.InboxEntity) error {
	ctx = log.WithInbox(ctx, inbox.ID)

	if !inbox.Active {
		log.WarnContext(ctx).Msg("inbox is inactive, skipping sync")
		return nil
	}

	for _, folder := range viper.GetStringSlice("sync.folders") {
		if err := s.syncFolder(ctx, inbox, folder); err != nil {
			if errors.Is(err, ErrSyncDisabled) {
				log.DebugContext(ctx).Msg("sync source is disabled")
				return nil
			}

			log.ErrorContext(log.WithFolder(ctx, folder)).
				Err(err).
				Msg("could not sync folder")
		}
	}

	return nil
}

// syncFolder drains one delta stream. The cursor is only persisted after the
// last page, a crashed run replays the whole enumeration from the previous
// cursor instead of losing messages in between.
func (s *Syncer) syncFolder(ctx context.Context, inbox *models.InboxEntity, folder string) error {
	s.folders.lock(inbox.ID, folder)
	defer s.folders.unlock(inbox.ID, folder)

	ctx = log.WithFolder(ctx, folder)

	state, err := s.loadState(ctx, inbox.ID, folder)
	if err != nil {
		return err
	}

	var (
		cursor   = state.Cursor
		ingested int
		rejected int
	)

	for {
		page, err := s.fetchPage(ctx, inbox, folder, cursor)
		if err != nil {
			// A disabled sync source is not a failure of the stream.
			if !errors.Is(err, ErrSyncDisabled) {
				s.recordFailure(ctx, state, err)
			}

			return err
		}

		for _, raw := range page.Messages {
			if s.ingestEnvelope(ctx, inbox, raw) {
				ingested++
			} else {
				rejected++
			}
		}

		cursor = page.Cursor
		if !page.More {
			break
		}
	}

	state.Cursor = cursor
	state.LastSyncedAt = sql.NullInt64{Int64: time.Now().Unix(), Valid: true}
	state.LastError = sql.NullString{}
	state.FailureCount = 0

	if err := s.syncStateDao.Upsert(ctx, s.database, state); err != nil {
		return err
	}

	log.InfoContext(ctx).
		Int("ingested", ingested).
		Int("rejected", rejected).
		Msg("folder sync complete")

	return nil
}

// loadState returns the cursor row of an (inbox, folder) pair. A missing row
// means the stream was never synced, which starts a fresh enumeration.
func (s *Syncer) loadState(ctx context.Context, inboxID int64, folder string) (*models.SyncStateEntity, error) {
	state, err := s.syncStateDao.FindByInboxAndFolder(ctx, s.database, inboxID, folder)

	switch {
	case err == nil:
		return state, nil

	case database.IsErrNoRows(err):
		return &models.SyncStateEntity{InboxID: inboxID, Folder: folder}, nil

	default:
		return nil, err
	}
}

// fetchPage fetches one delta page with retries for transient provider
// hiccups. Permanent failures and exhausted retries are returned as is.
func (s *Syncer) fetchPage(
	ctx context.Context,
	inbox *models.InboxEntity,
	folder string,
	cursor string,
) (*Page, error) {
	maxAttempts := viper.GetInt("sync.maxattempts")

	for attempt := 1; ; attempt++ {
		page, err := s.client.DeltaMessages(ctx, inbox.Address, folder, cursor)
		if err == nil {
			return page, nil
		}

		if !IsTransient(err) || attempt >= maxAttempts {
			return nil, err
		}

		wait := retryDelay(attempt)

		log.WarnContext(ctx).
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("provider hiccup, retrying delta fetch")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-time.After(wait):
		}
	}
}

// retryDelay picks the pause before the next delta attempt. Early retries
// come quickly, later ones back off in tiers.
func retryDelay(attempt int) time.Duration {
	base := viper.GetDuration("sync.retrydelay")

	switch {
	case attempt < 3:
		return base

	case attempt < 6:
		return base * 8
	}

	return base * 30
}

// ingestEnvelope feeds one raw provider payload through the pipeline. A bad
// payload is counted and skipped, it must not stop the remaining batch.
func (s *Syncer) ingestEnvelope(ctx context.Context, inbox *models.InboxEntity, raw []byte) bool {
	envelope, err := ingest.ParseEnvelope(raw)
	if err != nil {
		log.WarnContext(ctx).
			Err(err).
			Msg("rejected provider payload")

		return false
	}

	entry := s.fetchRawMessage(ctx, inbox, envelope)
	if entry != nil {
		defer s.releaseEntry(ctx, entry)
	}

	if err := s.pipeline.Ingest(ctx, inbox, envelope, entry); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Str("provider", envelope.ID).
			Msg("could not ingest envelope")

		s.recordMessageError(ctx, envelope, err)
		return false
	}

	return true
}

// fetchRawMessage downloads the original mime message into the spool. Only
// mail with attachments is worth the extra round trip, the plain body is
// already inline. A failed download falls back to the inline content.
func (s *Syncer) fetchRawMessage(
	ctx context.Context,
	inbox *models.InboxEntity,
	envelope *ingest.Envelope,
) storage.SpoolEntry {
	if !envelope.HasAttachments {
		return nil
	}

	r, err := s.client.RawMessage(ctx, inbox.Address, envelope.ID)
	if err != nil {
		log.WarnContext(ctx).
			Err(err).
			Str("provider", envelope.ID).
			Msg("could not download raw message, keeping inline body")

		return nil
	}

	defer r.Close()

	entry, err := s.spool.Write(ctx, r)
	if err != nil {
		log.WarnContext(ctx).
			Err(err).
			Str("provider", envelope.ID).
			Msg("could not spool raw message, keeping inline body")

		return nil
	}

	return entry
}

func (s *Syncer) releaseEntry(ctx context.Context, entry storage.SpoolEntry) {
	if err := entry.Release(ctx); err != nil {
		log.WarnContext(ctx).
			Err(err).
			Msg("could not release spool entry")
	}
}

// recordFailure bumps the failure bookkeeping of a cursor row. The cursor
// itself stays untouched, the next run retries the same enumeration.
func (s *Syncer) recordFailure(ctx context.Context, state *models.SyncStateEntity, cause error) {
	state.FailureCount++
	state.LastError = sql.NullString{String: cause.Error(), Valid: true}

	if err := s.syncStateDao.Upsert(ctx, s.database, state); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not record sync failure")
	}
}

// recordMessageError pins an ingestion failure to the message row when the
// mail is already known, so the failure shows up next to the message instead
// of only in the logs.
func (s *Syncer) recordMessageError(ctx context.Context, envelope *ingest.Envelope, cause error) {
	message, err := s.messageDao.FindByInternetMessageID(ctx, s.database, envelope.InternetMessageID)
	if err != nil {
		return
	}

	if err := s.messageDao.RecordError(ctx, s.database, message.ID, cause.Error()); err != nil {
		log.ErrorContext(ctx).
			Err(err).
			Msg("could not record message error")
	}
}
