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

package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockBodies is a mock implementation of Bodies for tests.
type MockBodies struct {
	mock.Mock
}

func (m *MockBodies) Write(ctx context.Context, r io.Reader) (string, int64, error) {
	args := m.Called(ctx, r)
	return args.String(0), int64(args.Int(1)), args.Error(2)
}

func (m *MockBodies) Reader(id string) (io.ReadCloser, error) {
	args := m.Called(id)

	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockBodies) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
