//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/ledgerline/mailroom/internal/classify"
	"github.com/ledgerline/mailroom/internal/crypto"
	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/httpapi"
	"github.com/ledgerline/mailroom/internal/ingest"
	"github.com/ledgerline/mailroom/internal/match"
	"github.com/ledgerline/mailroom/internal/msgraph"
	"github.com/ledgerline/mailroom/internal/quarantine"
	"github.com/ledgerline/mailroom/internal/sla"
	"github.com/ledgerline/mailroom/internal/storage"
	"github.com/ledgerline/mailroom/internal/thread"
)

var wireSet = wire.NewSet(
	wire.Struct(new(startCommand), "*"),
	wire.Struct(new(shellCommand), "*"),

	database.WireSet,
	storage.WireSet,
	crypto.WireSet,
	ingest.WireSet,
	match.WireSet,
	thread.WireSet,
	classify.WireSet,
	sla.WireSet,
	quarantine.WireSet,
	msgraph.WireSet,
	httpapi.WireSet,
)

func newStartCommand() (*startCommand, error) {
	panic(wire.Build(wireSet))
}

func newShellCommand() (*shellCommand, error) {
	panic(wire.Build(wireSet))
}
