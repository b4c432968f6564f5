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

package httpapi

import (
	"database/sql"

	"github.com/ledgerline/mailroom/internal/models"
)

// The response types decouple the json surface from the database entities.
// Nullable columns become pointers, internal columns such as thread keys and
// subscription secrets are not exposed.

type threadResponse struct {
	ID             string  `json:"id"`
	Subject        string  `json:"subject"`
	ClientID       *int64  `json:"clientId"`
	FirstMessageAt int64   `json:"firstMessageAt"`
	LastMessageAt  int64   `json:"lastMessageAt"`
	MessageCount   int64   `json:"messageCount"`
	LastPreview    string  `json:"lastPreview"`
	LastDirection  string  `json:"lastDirection"`
	State          string  `json:"state"`
	BecameActiveAt int64   `json:"becameActiveAt"`
	CompletedAt    *int64  `json:"completedAt"`
	CompletedBy    *string `json:"completedBy"`
	SnoozeUntil    *int64  `json:"snoozeUntil"`
}

func newThreadResponse(thread *models.ThreadEntity) threadResponse {
	return threadResponse{
		ID:             thread.ID,
		Subject:        thread.Subject,
		ClientID:       nullableInt64(thread.ClientID),
		FirstMessageAt: thread.FirstMessageAt,
		LastMessageAt:  thread.LastMessageAt,
		MessageCount:   thread.MessageCount,
		LastPreview:    thread.LastPreview,
		LastDirection:  string(thread.LastDirection),
		State:          string(thread.State),
		BecameActiveAt: thread.BecameActiveAt,
		CompletedAt:    nullableInt64(thread.CompletedAt),
		CompletedBy:    nullableString(thread.CompletedBy),
		SnoozeUntil:    nullableInt64(thread.SnoozeUntil),
	}
}

type messageResponse struct {
	ID                string   `json:"id"`
	ThreadID          string   `json:"threadId"`
	ThreadPosition    int64    `json:"threadPosition"`
	InternetMessageID string   `json:"internetMessageId"`
	Direction         string   `json:"direction"`
	Sender            string   `json:"sender"`
	SenderName        string   `json:"senderName"`
	RecipientsTo      []string `json:"recipientsTo"`
	RecipientsCc      []string `json:"recipientsCc"`
	Subject           string   `json:"subject"`
	Preview           string   `json:"preview"`
	ClientID          *int64   `json:"clientId"`
	MatchConfidence   string   `json:"matchConfidence"`
	MatchBasis        string   `json:"matchBasis"`
	HasAttachments    bool     `json:"hasAttachments"`
	HasBody           bool     `json:"hasBody"`
	SentAt            int64    `json:"sentAt"`
	ReceivedAt        int64    `json:"receivedAt"`
	LastError         *string  `json:"lastError"`
}

func newMessageResponse(message *models.MessageEntity) messageResponse {
	return messageResponse{
		ID:                message.ID,
		ThreadID:          message.ThreadID,
		ThreadPosition:    message.ThreadPosition,
		InternetMessageID: message.InternetMessageID,
		Direction:         string(message.Direction),
		Sender:            message.Sender.String(),
		SenderName:        message.SenderName,
		RecipientsTo:      message.RecipientsTo.Strings(),
		RecipientsCc:      message.RecipientsCc.Strings(),
		Subject:           message.Subject,
		Preview:           message.Preview,
		ClientID:          nullableInt64(message.ClientID),
		MatchConfidence:   string(message.MatchConfidence),
		MatchBasis:        string(message.MatchBasis),
		HasAttachments:    message.HasAttachments,
		HasBody:           message.BodyID.Valid,
		SentAt:            message.SentAt,
		ReceivedAt:        message.ReceivedAt,
		LastError:         nullableString(message.LastError),
	}
}

type unmatchedResponse struct {
	ID                string `json:"id"`
	InboxID           int64  `json:"inboxId"`
	Direction         string `json:"direction"`
	Sender            string `json:"sender"`
	SenderName        string `json:"senderName"`
	Subject           string `json:"subject"`
	Preview           string `json:"preview"`
	Reason            string `json:"reason"`
	CandidateClientID *int64 `json:"candidateClientId"`
	CandidateBasis    string `json:"candidateBasis"`
	RetryCount        int    `json:"retryCount"`
	LastAttemptAt     *int64 `json:"lastAttemptAt"`
	ReceivedAt        int64  `json:"receivedAt"`
}

func newUnmatchedResponse(parked *models.UnmatchedEmailEntity) unmatchedResponse {
	return unmatchedResponse{
		ID:                parked.ID,
		InboxID:           parked.InboxID,
		Direction:         string(parked.Direction),
		Sender:            parked.Sender.String(),
		SenderName:        parked.SenderName,
		Subject:           parked.Subject,
		Preview:           parked.Preview,
		Reason:            string(parked.Reason),
		CandidateClientID: nullableInt64(parked.CandidateClientID),
		CandidateBasis:    string(parked.CandidateBasis),
		RetryCount:        parked.RetryCount,
		LastAttemptAt:     nullableInt64(parked.LastAttemptAt),
		ReceivedAt:        parked.ReceivedAt,
	}
}

type classificationResponse struct {
	Sentiment    string `json:"sentiment"`
	Urgency      string `json:"urgency"`
	Opportunity  string `json:"opportunity"`
	Source       string `json:"source"`
	ClassifiedAt int64  `json:"classifiedAt"`
}

func newClassificationResponse(classification *models.ClassificationEntity) *classificationResponse {
	if classification == nil {
		return nil
	}

	return &classificationResponse{
		Sentiment:    string(classification.Sentiment),
		Urgency:      string(classification.Urgency),
		Opportunity:  string(classification.Opportunity),
		Source:       string(classification.Source),
		ClassifiedAt: classification.ClassifiedAt,
	}
}

type overrideResponse struct {
	Sentiment   string `json:"sentiment"`
	Urgency     string `json:"urgency"`
	Opportunity string `json:"opportunity"`
	Reason      string `json:"reason"`
	CreatedBy   string `json:"createdBy"`
	CreatedAt   int64  `json:"createdAt"`
}

func newOverrideResponse(override *models.ClassificationOverrideEntity) overrideResponse {
	return overrideResponse{
		Sentiment:   string(override.Sentiment),
		Urgency:     string(override.Urgency),
		Opportunity: string(override.Opportunity),
		Reason:      override.Reason,
		CreatedBy:   override.CreatedBy,
		CreatedAt:   override.CreatedAt,
	}
}

type workflowResponse struct {
	State     string `json:"state"`
	UpdatedAt int64  `json:"updatedAt"`
	UpdatedBy string `json:"updatedBy"`
}

func newWorkflowResponse(workflow *models.WorkflowStateEntity) *workflowResponse {
	if workflow == nil {
		return nil
	}

	return &workflowResponse{
		State:     string(workflow.State),
		UpdatedAt: workflow.UpdatedAt,
		UpdatedBy: workflow.UpdatedBy,
	}
}

type clientResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

func newClientResponse(client *models.ClientEntity) clientResponse {
	return clientResponse{
		ID:        client.ID,
		Name:      client.Name,
		CreatedAt: client.CreatedAt,
	}
}

type aliasResponse struct {
	ID          int64  `json:"id"`
	ClientID    int64  `json:"clientId"`
	Address     string `json:"address"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

func newAliasResponse(alias *models.ClientAliasEntity) aliasResponse {
	return aliasResponse{
		ID:          alias.ID,
		ClientID:    alias.ClientID,
		Address:     alias.Address.String(),
		DisplayName: alias.DisplayName,
		CreatedAt:   alias.CreatedAt,
	}
}

type domainResponse struct {
	ID        int64  `json:"id"`
	ClientID  int64  `json:"clientId"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

func newDomainResponse(domain *models.ClientDomainEntity) domainResponse {
	return domainResponse{
		ID:        domain.ID,
		ClientID:  domain.ClientID,
		Name:      domain.Name,
		CreatedAt: domain.CreatedAt,
	}
}

type inboxResponse struct {
	ID          int64   `json:"id"`
	Address     string  `json:"address"`
	DisplayName string  `json:"displayName"`
	Kind        string  `json:"kind"`
	StaffUser   *string `json:"staffUser"`
	Active      bool    `json:"active"`
	CreatedAt   int64   `json:"createdAt"`
}

func newInboxResponse(inbox *models.InboxEntity) inboxResponse {
	return inboxResponse{
		ID:          inbox.ID,
		Address:     inbox.Address.String(),
		DisplayName: inbox.DisplayName,
		Kind:        string(inbox.Kind),
		StaffUser:   nullableString(inbox.StaffUser),
		Active:      inbox.Active,
		CreatedAt:   inbox.CreatedAt,
	}
}

type inboxEmailResponse struct {
	ID                int64   `json:"id"`
	InboxID           int64   `json:"inboxId"`
	ProviderMessageID string  `json:"providerMessageId"`
	InternetMessageID string  `json:"internetMessageId"`
	MessageID         *string `json:"messageId"`
	ClientID          *int64  `json:"clientId"`
	Status            string  `json:"status"`
	SLADeadline       *int64  `json:"slaDeadline"`
	RepliedAt         *int64  `json:"repliedAt"`
	ReceivedAt        int64   `json:"receivedAt"`
}

func newInboxEmailResponse(email *models.InboxEmailEntity) inboxEmailResponse {
	return inboxEmailResponse{
		ID:                email.ID,
		InboxID:           email.InboxID,
		ProviderMessageID: email.ProviderMessageID,
		InternetMessageID: email.InternetMessageID,
		MessageID:         nullableString(email.MessageID),
		ClientID:          nullableInt64(email.ClientID),
		Status:            string(email.Status),
		SLADeadline:       nullableInt64(email.SLADeadline),
		RepliedAt:         nullableInt64(email.RepliedAt),
		ReceivedAt:        email.ReceivedAt,
	}
}

type syncStateResponse struct {
	Folder       string  `json:"folder"`
	LastSyncedAt *int64  `json:"lastSyncedAt"`
	LastError    *string `json:"lastError"`
	FailureCount int     `json:"failureCount"`
}

func newSyncStateResponse(state *models.SyncStateEntity) syncStateResponse {
	return syncStateResponse{
		Folder:       state.Folder,
		LastSyncedAt: nullableInt64(state.LastSyncedAt),
		LastError:    nullableString(state.LastError),
		FailureCount: state.FailureCount,
	}
}

type subscriptionResponse struct {
	ID        string `json:"id"`
	Resource  string `json:"resource"`
	ExpiresAt int64  `json:"expiresAt"`
	RenewedAt *int64 `json:"renewedAt"`
	CreatedAt int64  `json:"createdAt"`
}

func newSubscriptionResponse(subscription *models.WebhookSubscriptionEntity) subscriptionResponse {
	return subscriptionResponse{
		ID:        subscription.ID,
		Resource:  subscription.Resource,
		ExpiresAt: subscription.ExpiresAt,
		RenewedAt: nullableInt64(subscription.RenewedAt),
		CreatedAt: subscription.CreatedAt,
	}
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}

	return &v.Int64
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}

	return &v.String
}
