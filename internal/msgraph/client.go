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

// Package msgraph connects the managed inboxes to the mail provider. It
// fetches changed messages via delta queries, keeps the per folder cursors
// and manages the webhook subscriptions that trigger a sync in the first
// place.
package msgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/models"
)

const (
	sourceNone  = "none"
	sourceGraph = "graph"
)

func init() {
	viper.SetDefault("sync.source", sourceNone)
}

// Client is the boundary to the mail provider. Implementations cover the
// delta listing and subscription endpoints the sync process needs, nothing
// more.
type Client interface {
	// DeltaMessages fetches one page of changed messages of a folder. An
	// empty cursor starts a fresh enumeration, otherwise the cursor of the
	// previous page continues it.
	DeltaMessages(ctx context.Context, mailbox models.Address, folder, cursor string) (*Page, error)
	// RawMessage downloads the original mime representation of a message.
	RawMessage(ctx context.Context, mailbox models.Address, messageID string) (io.ReadCloser, error)
	// CreateSubscription registers a webhook subscription.
	CreateSubscription(ctx context.Context, request SubscriptionRequest) (*SubscriptionResult, error)
	// RenewSubscription extends the expiry of a subscription.
	RenewSubscription(ctx context.Context, id string, expiresAt time.Time) (*SubscriptionResult, error)
	// DeleteSubscription removes a subscription.
	DeleteSubscription(ctx context.Context, id string) error
}

// Page is one chunk of a delta enumeration.
type Page struct {
	// Messages are the raw message payloads of this page.
	Messages [][]byte
	// Cursor continues the enumeration. After the last page it becomes the
	// delta cursor for the next sync run.
	Cursor string
	// More reports whether another page must be fetched before the cursor
	// is durable.
	More bool
}

// SubscriptionRequest describes a webhook subscription to create.
type SubscriptionRequest struct {
	Resource        string
	NotificationURL string
	ClientState     string
	ExpiresAt       time.Time
}

// SubscriptionResult is the provider record of a subscription.
type SubscriptionResult struct {
	ID        string
	Resource  string
	ExpiresAt time.Time
}

// ProviderError is a failed call to the provider api.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("msgraph: provider returned status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether a retry may succeed. Throttling and server side
// failures are transient, everything else is not.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is worth retrying. Provider throttling and
// plain network timeouts count as transient.
func IsTransient(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// ErrSyncDisabled is returned for every call of the disabled client.
var ErrSyncDisabled = errors.New("msgraph: sync source is disabled")

// NewClient creates the provider client named by the `sync.source`
// configuration. The "none" source is a first class citizen: correlation
// still works on manually replayed payloads while no provider is attached.
func NewClient() (Client, error) {
	switch source := viper.GetString("sync.source"); source {
	case sourceNone:
		return disabledClient{}, nil

	case sourceGraph:
		return newRestClient(), nil

	default:
		return nil, fmt.Errorf("msgraph: unknown sync source %q", source)
	}
}

type disabledClient struct{}

func (disabledClient) DeltaMessages(context.Context, models.Address, string, string) (*Page, error) {
	return nil, ErrSyncDisabled
}

func (disabledClient) RawMessage(context.Context, models.Address, string) (io.ReadCloser, error) {
	return nil, ErrSyncDisabled
}

func (disabledClient) CreateSubscription(context.Context, SubscriptionRequest) (*SubscriptionResult, error) {
	return nil, ErrSyncDisabled
}

func (disabledClient) RenewSubscription(context.Context, string, time.Time) (*SubscriptionResult, error) {
	return nil, ErrSyncDisabled
}

func (disabledClient) DeleteSubscription(context.Context, string) error {
	return ErrSyncDisabled
}
