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
	"bytes"
	"context"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/crypto"
	"github.com/ledgerline/mailroom/internal/log"
)

func init() {
	viper.SetDefault("storage.spool.foldername", "data/spool")
	viper.SetDefault("storage.spool.memorylimit", "1mb")
}

// SpoolOptions is the configuration for the ingest spool.
type SpoolOptions struct {
	Foldername  string
	MemoryLimit uint
}

// SpoolOptionsFromViper reads the spool configuration from viper.
//
// `storage.spool.foldername` is the foldername for entries exceeding the
// memory limit.
// `storage.spool.memorylimit` is the maximum size of an entry held in memory.
func SpoolOptionsFromViper() SpoolOptions {
	return SpoolOptions{
		Foldername:  viper.GetString("storage.spool.foldername"),
		MemoryLimit: viper.GetSizeInBytes("storage.spool.memorylimit"),
	}
}

// Spool is a temporary holding area for message bodies fetched from the
// provider, before ingestion persists them.
type Spool interface {
	// Write copies all the data from r into the spool. Small bodies stay in
	// memory, larger ones evade to a file.
	Write(ctx context.Context, r io.Reader) (SpoolEntry, error)
}

// SpoolEntry is a single spooled body. Entries can be read multiple times and
// must be released after use.
type SpoolEntry interface {
	// Reader returns a new reader over the whole entry. Readers of the same
	// entry share state and must not be used concurrently.
	Reader() (io.Reader, error)
	// Release discards the entry and removes a file it may have created.
	Release(ctx context.Context) error
}

type spool struct {
	fs          afero.Fs
	idGenerator crypto.IDGenerator
	memoryLimit int64
}

// NewSpool creates a new spool inside the folder named by the options.
func NewSpool(
	fs afero.Fs,
	idGenerator crypto.IDGenerator,
	options SpoolOptions,
) (Spool, error) {
	if err := fs.MkdirAll(options.Foldername, 0700); err != nil {
		return nil, err
	}

	return &spool{
		fs:          afero.NewBasePathFs(fs, options.Foldername),
		idGenerator: idGenerator,
		memoryLimit: int64(options.MemoryLimit),
	}, nil
}

func (s *spool) Write(ctx context.Context, r io.Reader) (SpoolEntry, error) {
	memory := bytes.NewBuffer(nil)

	n, err := io.Copy(memory, io.LimitReader(r, s.memoryLimit))
	if err != nil {
		return nil, err
	}

	if n < s.memoryLimit {
		return memoryEntry{memory: memory}, nil
	}

	return s.writeFile(ctx, io.MultiReader(memory, r))
}

func (s *spool) writeFile(ctx context.Context, r io.Reader) (SpoolEntry, error) {
	id, err := s.idGenerator.GenerateID()
	if err != nil {
		return nil, err
	}

	file, err := s.fs.Create(id)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx).
		Str("filename", id).
		Int64("memoryLimit", s.memoryLimit).
		Msg("spool entry exceeding memory limit, evading to file")

	if _, err := io.Copy(file, r); err != nil {
		log.WarnContext(ctx).
			Str("filename", id).
			Msg("could not write to spool file")

		if err := file.Close(); err != nil {
			log.WarnContext(ctx).
				Str("filename", id).
				Err(err).
				Msg("could not close partial spool file")
		}

		if err := s.fs.Remove(id); err != nil {
			log.WarnContext(ctx).
				Str("filename", id).
				Err(err).
				Msg("could not remove partial spool file")
		}

		return nil, err
	}

	return fileEntry{id: id, file: file, fs: s.fs}, nil
}

// memoryEntry is a spool entry small enough to be held in memory.
type memoryEntry struct {
	memory *bytes.Buffer
}

func (e memoryEntry) Reader() (io.Reader, error) {
	return bytes.NewReader(e.memory.Bytes()), nil
}

func (e memoryEntry) Release(context.Context) error {
	return nil
}

// fileEntry is a spool entry backed by a temporary file.
type fileEntry struct {
	id   string
	file afero.File
	fs   afero.Fs
}

func (e fileEntry) Reader() (io.Reader, error) {
	if _, err := e.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	return e.file, nil
}

func (e fileEntry) Release(ctx context.Context) error {
	log.InfoContext(ctx).
		Str("filename", e.id).
		Msg("removing spool file")

	if err := e.file.Close(); err != nil {
		return err
	}

	return e.fs.Remove(e.id)
}
