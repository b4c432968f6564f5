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
	"errors"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/valyala/gozstd"

	"github.com/ledgerline/mailroom/internal/crypto"
	"github.com/ledgerline/mailroom/internal/log"
)

func init() {
	viper.SetDefault("storage.bodies.foldername", "data/bodies")
}

// ErrInvalidBodyID is returned when a body id is syntactically invalid.
var ErrInvalidBodyID = errors.New("invalid body id")

// BodiesOptions is the configuration for the body store.
type BodiesOptions struct {
	Foldername string
}

// BodiesOptionsFromViper reads the body store configuration from viper.
//
// `storage.bodies.foldername` is the foldername for body files.
func BodiesOptionsFromViper() BodiesOptions {
	return BodiesOptions{
		Foldername: viper.GetString("storage.bodies.foldername"),
	}
}

// Bodies is a permanent store for raw message bodies. Bodies are compressed
// at rest and addressed by an opaque id.
type Bodies interface {
	// Write copies all the data from r into a new body file and returns its
	// id together with the uncompressed size.
	Write(ctx context.Context, r io.Reader) (string, int64, error)
	// Reader returns a reader over the decompressed body. The responsibility
	// to close the reader is on the caller.
	Reader(id string) (io.ReadCloser, error)
	// Delete removes a body by id.
	Delete(ctx context.Context, id string) error
}

type bodies struct {
	fs          afero.Fs
	idGenerator crypto.IDGenerator
}

// NewBodies creates a new body store inside the folder named by the options.
func NewBodies(
	fs afero.Fs,
	idGenerator crypto.IDGenerator,
	options BodiesOptions,
) (Bodies, error) {
	if err := fs.MkdirAll(options.Foldername, 0700); err != nil {
		return nil, err
	}

	return &bodies{
		fs:          afero.NewBasePathFs(fs, options.Foldername),
		idGenerator: idGenerator,
	}, nil
}

func (b *bodies) Write(ctx context.Context, r io.Reader) (string, int64, error) {
	id, err := b.idGenerator.GenerateID()
	if err != nil {
		return "", -1, err
	}

	f, err := b.fs.Create(id)
	if err != nil {
		return "", -1, err
	}

	log.DebugContext(ctx).
		Str("body", id).
		Msg("writing body")

	zw := gozstd.NewWriter(f)
	defer zw.Release()

	size, err := io.Copy(zw, r)
	if err == nil {
		err = zw.Close()
	}

	if err != nil {
		f.Close()

		if err := b.Delete(ctx, id); err != nil {
			log.WarnContext(ctx).
				Str("body", id).
				Err(err).
				Msg("could not remove partial body")
		}

		return "", -1, err
	}

	return id, size, f.Close()
}

func (b *bodies) Reader(id string) (io.ReadCloser, error) {
	if id == "" {
		return nil, ErrInvalidBodyID
	}

	f, err := b.fs.Open(id)
	if err != nil {
		return nil, err
	}

	return &bodyReader{zr: gozstd.NewReader(f), f: f}, nil
}

func (b *bodies) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidBodyID
	}

	log.DebugContext(ctx).
		Str("body", id).
		Msg("removing body")

	return b.fs.Remove(id)
}

// bodyReader decompresses a body file on the fly. Closing releases the zstd
// reader back to its pool and closes the underlying file.
type bodyReader struct {
	zr *gozstd.Reader
	f  afero.File
}

func (r *bodyReader) Read(p []byte) (int, error) {
	return r.zr.Read(p)
}

func (r *bodyReader) Close() error {
	r.zr.Release()
	return r.f.Close()
}
