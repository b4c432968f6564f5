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

package models

import (
	"database/sql"
)

// ClientEntity is the entity for the "clients" table.
type ClientEntity struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}

// ClientAliasEntity is the entity for the "client_aliases" table. An alias is
// a known correspondent address registered for a client. Addresses are stored
// normalized and are unique across all clients.
type ClientAliasEntity struct {
	ID          int64   `db:"id"`
	ClientID    int64   `db:"client_id"`
	Address     Address `db:"address"`
	DisplayName string  `db:"display_name"`
	CreatedAt   int64   `db:"created_at"`
}

// ClientDomainEntity is the entity for the "client_domains" table. A domain
// entry allow-lists every address under it for the owning client.
type ClientDomainEntity struct {
	ID        int64  `db:"id"`
	ClientID  int64  `db:"client_id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}

// InboxKind distinguishes personal mailboxes from shared ones.
type InboxKind string

const (
	// InboxUser is a mailbox assigned to a single staff member.
	InboxUser InboxKind = "user"
	// InboxShared is a team mailbox without a single owner.
	InboxShared InboxKind = "shared"
)

// Valid reports whether k is a known inbox kind.
func (k InboxKind) Valid() bool {
	switch k {
	case InboxUser, InboxShared:
		return true
	}

	return false
}

// InboxEntity is the entity for the "inboxes" table. An inbox is a provider
// mailbox under firm management. Sync cursors live in "sync_states" per
// folder.
type InboxEntity struct {
	ID          int64          `db:"id"`
	Address     Address        `db:"address"`
	DisplayName string         `db:"display_name"`
	Kind        InboxKind      `db:"kind"`
	StaffUser   sql.NullString `db:"staff_user"`
	Active      bool           `db:"active"`
	CreatedAt   int64          `db:"created_at"`
}

// Direction describes how a message relates to the firm: who sent it and
// whether a counterpart outside the firm is involved.
type Direction string

const (
	// DirectionInbound is mail from an external correspondent to the firm.
	DirectionInbound Direction = "inbound"
	// DirectionOutbound is mail sent by the firm to an external correspondent.
	DirectionOutbound Direction = "outbound"
	// DirectionInternal is mail between firm addresses only.
	DirectionInternal Direction = "internal"
	// DirectionExternal is mail where the inbox was merely copied on third
	// party correspondence.
	DirectionExternal Direction = "external"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionInternal, DirectionExternal:
		return true
	}

	return false
}

// Confidence is the tier of certainty for a client match.
type Confidence string

const (
	// ConfidenceHigh is an exact alias match.
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium is an allow-listed domain match without an exact
	// person.
	ConfidenceMedium Confidence = "medium"
	// ConfidenceLow is a heuristic candidate that requires human
	// confirmation.
	ConfidenceLow Confidence = "low"
	// ConfidenceNone is the absence of any candidate.
	ConfidenceNone Confidence = "none"
)

// Valid reports whether c is a known confidence tier.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNone:
		return true
	}

	return false
}

// MatchBasis names the signal a client match was derived from.
type MatchBasis string

const (
	// BasisAliasExact is a registered alias equal to the counterpart address.
	BasisAliasExact MatchBasis = "alias_exact"
	// BasisDomain is an allow-listed domain covering the counterpart address.
	BasisDomain MatchBasis = "domain"
	// BasisHeuristic is a display-name similarity hit.
	BasisHeuristic MatchBasis = "heuristic"
)

// Valid reports whether b is a known match basis.
func (b MatchBasis) Valid() bool {
	switch b {
	case BasisAliasExact, BasisDomain, BasisHeuristic:
		return true
	}

	return false
}

// MessageEntity is the entity for the "messages" table. A message always
// references exactly one thread and its thread id never changes once
// assigned. Client attribution is empty for internal and external mail.
type MessageEntity struct {
	ID                     string         `db:"id"`
	ThreadID               string         `db:"thread_id"`
	ThreadPosition         int64          `db:"thread_position"`
	InternetMessageID      string         `db:"internet_message_id"`
	ProviderConversationID sql.NullString `db:"provider_conversation_id"`
	ThreadKey              string         `db:"thread_key"`
	Direction              Direction      `db:"direction"`
	Sender                 Address        `db:"sender"`
	SenderName             string         `db:"sender_name"`
	RecipientsTo           AddressList    `db:"recipients_to"`
	RecipientsCc           AddressList    `db:"recipients_cc"`
	Subject                string         `db:"subject"`
	SubjectStem            string         `db:"subject_stem"`
	Preview                string         `db:"preview"`
	InReplyTo              sql.NullString `db:"in_reply_to"`
	References             StringList     `db:"references"`
	ClientID               sql.NullInt64  `db:"client_id"`
	MatchConfidence        Confidence     `db:"match_confidence"`
	MatchBasis             MatchBasis     `db:"match_basis"`
	HasAttachments         bool           `db:"has_attachments"`
	SentAt                 int64          `db:"sent_at"`
	ReceivedAt             int64          `db:"received_at"`
	ErrorCount             int            `db:"error_count"`
	LastError              sql.NullString `db:"last_error"`
	BodyID                 sql.NullString `db:"body_id"`
	CreatedAt              int64          `db:"created_at"`
}

// SLAState is the per-thread obligation status.
type SLAState string

const (
	// SLAActive is a thread the firm still owes a response on.
	SLAActive SLAState = "active"
	// SLAComplete is a thread marked handled by staff.
	SLAComplete SLAState = "complete"
	// SLASnoozed is a thread parked until a wake time.
	SLASnoozed SLAState = "snoozed"
)

// Valid reports whether s is a known sla state.
func (s SLAState) Valid() bool {
	switch s {
	case SLAActive, SLAComplete, SLASnoozed:
		return true
	}

	return false
}

// ThreadEntity is the entity for the "threads" table. The id is the canonical
// conversation id shared by all messages of one logical conversation.
type ThreadEntity struct {
	ID             string         `db:"id"`
	Subject        string         `db:"subject"`
	SubjectStem    string         `db:"subject_stem"`
	ThreadKey      string         `db:"thread_key"`
	Participants   string         `db:"participants"`
	ClientID       sql.NullInt64  `db:"client_id"`
	FirstMessageAt int64          `db:"first_message_at"`
	LastMessageAt  int64          `db:"last_message_at"`
	MessageCount   int64          `db:"message_count"`
	LastPreview    string         `db:"last_preview"`
	LastDirection  Direction      `db:"last_direction"`
	LastMessageID  string         `db:"last_message_id"`
	State          SLAState       `db:"state"`
	BecameActiveAt int64          `db:"became_active_at"`
	CompletedAt    sql.NullInt64  `db:"completed_at"`
	CompletedBy    sql.NullString `db:"completed_by"`
	SnoozeUntil    sql.NullInt64  `db:"snooze_until"`
	CreatedAt      int64          `db:"created_at"`
}

// QuarantineReason explains why a message sits in the unmatched queue.
type QuarantineReason string

const (
	// ReasonNoClientMatch is a counterpart with zero candidates.
	ReasonNoClientMatch QuarantineReason = "no_client_match"
	// ReasonNoContactMatch is a counterpart with only low confidence
	// candidates awaiting confirmation.
	ReasonNoContactMatch QuarantineReason = "no_contact_match"
	// ReasonDisabled records that matching was switched off when the message
	// arrived. This is a configuration state, not a fault.
	ReasonDisabled QuarantineReason = "dev_override_disabled"
)

// Valid reports whether r is a known quarantine reason.
func (r QuarantineReason) Valid() bool {
	switch r {
	case ReasonNoClientMatch, ReasonNoContactMatch, ReasonDisabled:
		return true
	}

	return false
}

// UnmatchedEmailEntity is the entity for the "unmatched_emails" table. It
// carries the subset of message fields needed to retry matching later and is
// keyed 1:1 by internet message id. Rows leave the table only through
// promotion or explicit dismissal.
type UnmatchedEmailEntity struct {
	ID                     string           `db:"id"`
	InboxID                int64            `db:"inbox_id"`
	ProviderMessageID      string           `db:"provider_message_id"`
	InternetMessageID      string           `db:"internet_message_id"`
	ProviderConversationID sql.NullString   `db:"provider_conversation_id"`
	Direction              Direction        `db:"direction"`
	Sender                 Address          `db:"sender"`
	SenderName             string           `db:"sender_name"`
	RecipientsTo           AddressList      `db:"recipients_to"`
	RecipientsCc           AddressList      `db:"recipients_cc"`
	Subject                string           `db:"subject"`
	SubjectStem            string           `db:"subject_stem"`
	Preview                string           `db:"preview"`
	InReplyTo              sql.NullString   `db:"in_reply_to"`
	References             StringList       `db:"references"`
	HasAttachments         bool             `db:"has_attachments"`
	SentAt                 int64            `db:"sent_at"`
	ReceivedAt             int64            `db:"received_at"`
	BodyID                 sql.NullString   `db:"body_id"`
	Reason                 QuarantineReason `db:"reason"`
	CandidateClientID      sql.NullInt64    `db:"candidate_client_id"`
	CandidateBasis         MatchBasis       `db:"candidate_basis"`
	RetryCount             int              `db:"retry_count"`
	LastAttemptAt          sql.NullInt64    `db:"last_attempt_at"`
	CreatedAt              int64            `db:"created_at"`
}

// ReplyStatus is the per-inbox reply obligation of a single message.
type ReplyStatus string

const (
	// ReplyStatusNone marks rows without reply tracking, such as outbound
	// mail.
	ReplyStatusNone ReplyStatus = ""
	// ReplyStatusPending is inbound mail still awaiting a staff reply.
	ReplyStatusPending ReplyStatus = "pending_reply"
	// ReplyStatusReplied is inbound mail answered through the same inbox.
	ReplyStatusReplied ReplyStatus = "replied"
	// ReplyStatusNoAction is inbound mail a staff member waived explicitly.
	ReplyStatusNoAction ReplyStatus = "no_action_needed"
	// ReplyStatusOverdue is pending mail past its deadline.
	ReplyStatusOverdue ReplyStatus = "overdue"
)

// Valid reports whether s is a known, tracked reply status.
func (s ReplyStatus) Valid() bool {
	switch s {
	case ReplyStatusPending, ReplyStatusReplied, ReplyStatusNoAction, ReplyStatusOverdue:
		return true
	}

	return false
}

// InboxEmailEntity is the entity for the "inbox_emails" table. It is the
// per-inbox view of a provider message and the idempotency pivot for
// ingestion: the (inbox_id, provider_message_id) pair is unique, so replaying
// a provider payload is a no-op. The message id stays empty while the mail is
// parked in quarantine.
type InboxEmailEntity struct {
	ID                int64          `db:"id"`
	InboxID           int64          `db:"inbox_id"`
	ProviderMessageID string         `db:"provider_message_id"`
	InternetMessageID string         `db:"internet_message_id"`
	MessageID         sql.NullString `db:"message_id"`
	ClientID          sql.NullInt64  `db:"client_id"`
	StaffUser         sql.NullString `db:"staff_user"`
	Status            ReplyStatus    `db:"status"`
	SLADeadline       sql.NullInt64  `db:"sla_deadline"`
	RepliedAt         sql.NullInt64  `db:"replied_at"`
	ReceivedAt        int64          `db:"received_at"`
	CreatedAt         int64          `db:"created_at"`
}

// Sentiment is the tone read from a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}

	return false
}

// Urgency is how quickly a message demands attention.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	}

	return false
}

// Opportunity is the commercial signal read from a message.
type Opportunity string

const (
	OpportunityNone        Opportunity = "none"
	OpportunityNewBusiness Opportunity = "new_business"
	OpportunityAdvisory    Opportunity = "advisory"
	OpportunityRenewal     Opportunity = "renewal"
)

// Valid reports whether o is a known opportunity.
func (o Opportunity) Valid() bool {
	switch o {
	case OpportunityNone, OpportunityNewBusiness, OpportunityAdvisory, OpportunityRenewal:
		return true
	}

	return false
}

// ClassificationSource tells whether the displayed classification came from
// the automatic scorer or a human override.
type ClassificationSource string

const (
	SourceAuto     ClassificationSource = "auto"
	SourceOverride ClassificationSource = "override"
)

// ClassificationEntity is the entity for the "classifications" table. One row
// per message holds the displayed classification.
type ClassificationEntity struct {
	MessageID    string               `db:"message_id"`
	Sentiment    Sentiment            `db:"sentiment"`
	Urgency      Urgency              `db:"urgency"`
	Opportunity  Opportunity          `db:"opportunity"`
	Source       ClassificationSource `db:"source"`
	ClassifiedAt int64                `db:"classified_at"`
}

// ClassificationOverrideEntity is the entity for the "classification_overrides"
// table. Overrides are append-only so the audit of who overrode what survives
// later edits.
type ClassificationOverrideEntity struct {
	ID          int64       `db:"id"`
	MessageID   string      `db:"message_id"`
	Sentiment   Sentiment   `db:"sentiment"`
	Urgency     Urgency     `db:"urgency"`
	Opportunity Opportunity `db:"opportunity"`
	Reason      string      `db:"reason"`
	CreatedBy   string      `db:"created_by"`
	CreatedAt   int64       `db:"created_at"`
}

// WorkflowState is the triage state of the enrichment work on a message.
type WorkflowState string

const (
	WorkflowPending  WorkflowState = "pending"
	WorkflowWorking  WorkflowState = "working"
	WorkflowBlocked  WorkflowState = "blocked"
	WorkflowComplete WorkflowState = "complete"
)

// Valid reports whether w is a known workflow state.
func (w WorkflowState) Valid() bool {
	switch w {
	case WorkflowPending, WorkflowWorking, WorkflowBlocked, WorkflowComplete:
		return true
	}

	return false
}

// WorkflowStateEntity is the entity for the "workflow_states" table.
type WorkflowStateEntity struct {
	MessageID string        `db:"message_id"`
	State     WorkflowState `db:"state"`
	UpdatedAt int64         `db:"updated_at"`
	UpdatedBy string        `db:"updated_by"`
}

// SyncStateEntity is the entity for the "sync_states" table. One row per
// (inbox, folder) owns the provider delta cursor. Rows are only written under
// the per-key sync lock.
type SyncStateEntity struct {
	ID           int64          `db:"id"`
	InboxID      int64          `db:"inbox_id"`
	Folder       string         `db:"folder"`
	Cursor       string         `db:"cursor"`
	LastSyncedAt sql.NullInt64  `db:"last_synced_at"`
	LastError    sql.NullString `db:"last_error"`
	FailureCount int            `db:"failure_count"`
}

// WebhookSubscriptionEntity is the entity for the "webhook_subscriptions"
// table. The client state is a secret echoed back by the provider on every
// notification.
type WebhookSubscriptionEntity struct {
	ID          string        `db:"id"`
	InboxID     int64         `db:"inbox_id"`
	Resource    string        `db:"resource"`
	ClientState string        `db:"client_state"`
	ExpiresAt   int64         `db:"expires_at"`
	RenewedAt   sql.NullInt64 `db:"renewed_at"`
	CreatedAt   int64         `db:"created_at"`
}
