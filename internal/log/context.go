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

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type fieldOrigin struct{}
type fieldInbox struct{}
type fieldFolder struct{}
type fieldThread struct{}
type fieldMail struct{}

// WithOrigin adds the origin of processing to the context. Origins are coarse
// entry points such as "webhook", "sync", "reconciler" or "shell".
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, fieldOrigin{}, origin)
}

// WithInbox adds the inbox identifier to the context.
func WithInbox(ctx context.Context, inbox int64) context.Context {
	return context.WithValue(ctx, fieldInbox{}, inbox)
}

// WithFolder adds the provider folder name to the context.
func WithFolder(ctx context.Context, folder string) context.Context {
	return context.WithValue(ctx, fieldFolder{}, folder)
}

// WithThread adds the canonical conversation id to the context.
func WithThread(ctx context.Context, thread string) context.Context {
	return context.WithValue(ctx, fieldThread{}, thread)
}

// WithMail adds the message identifier to the context. zerolog reserves the
// "message" key for the event text, so the field is named "mail".
func WithMail(ctx context.Context, mail string) context.Context {
	return context.WithValue(ctx, fieldMail{}, mail)
}

// appendContextFields adds defined fields in the context to the log event.
func appendContextFields(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	if origin, ok := ctx.Value(fieldOrigin{}).(string); ok {
		event.Str("origin", origin)
	}

	if inbox, ok := ctx.Value(fieldInbox{}).(int64); ok {
		event.Int64("inbox", inbox)
	}

	if folder, ok := ctx.Value(fieldFolder{}).(string); ok {
		event.Str("folder", folder)
	}

	if thread, ok := ctx.Value(fieldThread{}).(string); ok {
		event.Str("thread", thread)
	}

	if mail, ok := ctx.Value(fieldMail{}).(string); ok {
		event.Str("mail", mail)
	}

	return event
}
