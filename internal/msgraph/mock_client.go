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
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ledgerline/mailroom/internal/models"
)

// MockClient is a mock implementation of Client for tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) DeltaMessages(
	ctx context.Context,
	mailbox models.Address,
	folder string,
	cursor string,
) (*Page, error) {
	args := m.Called(ctx, mailbox, folder, cursor)

	if page := args.Get(0); page != nil {
		return page.(*Page), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) RawMessage(
	ctx context.Context,
	mailbox models.Address,
	messageID string,
) (io.ReadCloser, error) {
	args := m.Called(ctx, mailbox, messageID)

	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) CreateSubscription(
	ctx context.Context,
	request SubscriptionRequest,
) (*SubscriptionResult, error) {
	args := m.Called(ctx, request)

	if result := args.Get(0); result != nil {
		return result.(*SubscriptionResult), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) RenewSubscription(
	ctx context.Context,
	id string,
	expiresAt time.Time,
) (*SubscriptionResult, error) {
	args := m.Called(ctx, id, expiresAt)

	if result := args.Get(0); result != nil {
		return result.(*SubscriptionResult), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) DeleteSubscription(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
