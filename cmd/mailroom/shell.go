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

package main

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/models"
	"github.com/ledgerline/mailroom/internal/msgraph"
	"github.com/ledgerline/mailroom/internal/quarantine"
)

type shellCommand struct {
	Database   database.Conn
	Queue      *quarantine.Queue
	Reconciler *quarantine.Reconciler
	Syncer     *msgraph.Syncer
	Subscriber *msgraph.Subscriber

	ClientDao       database.ClientDao
	ClientAliasDao  database.ClientAliasDao
	ClientDomainDao database.ClientDomainDao
	InboxDao        database.InboxDao
	UnmatchedDao    database.UnmatchedDao
	SubscriptionDao database.SubscriptionDao
}

func (s *shellCommand) run() error {
	shell := ishell.New()
	s.setupShell(shell)
	shell.Run()

	return nil
}

func (s *shellCommand) setupShell(shell *ishell.Shell) {
	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "clients",
			Help: "manage clients",
		},
		[]*ishell.Cmd{
			{
				Name: "list",
				Help: "list all clients",
				Func: s.wrapShellFunc(s.clientsList),
			},
			{
				Name: "add",
				Help: "add a new client",
				Func: s.wrapShellFunc(s.clientsAdd),
			},
		},
	))

	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "aliases",
			Help: "manage correspondent aliases of a client",
		},
		[]*ishell.Cmd{
			{
				Name: "list",
				Help: "list the aliases of a client",
				Func: s.wrapShellFunc(s.aliasesList),
			},
			{
				Name: "add",
				Help: "register a correspondent address for a client",
				Func: s.wrapServiceFunc(s.aliasesAdd),
			},
		},
	))

	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "domains",
			Help: "manage allow-listed domains of a client",
		},
		[]*ishell.Cmd{
			{
				Name: "list",
				Help: "list the domains of a client",
				Func: s.wrapShellFunc(s.domainsList),
			},
			{
				Name: "add",
				Help: "allow-list a domain for a client",
				Func: s.wrapServiceFunc(s.domainsAdd),
			},
		},
	))

	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "inboxes",
			Help: "manage managed inboxes",
		},
		[]*ishell.Cmd{
			{
				Name: "list",
				Help: "list all inboxes",
				Func: s.wrapShellFunc(s.inboxesList),
			},
			{
				Name: "add",
				Help: "put a provider mailbox under management",
				Func: s.wrapShellFunc(s.inboxesAdd),
			},
			{
				Name: "activate",
				Help: "resume syncing an inbox",
				Func: s.wrapShellFunc(s.inboxesActivate),
			},
			{
				Name: "deactivate",
				Help: "pause syncing an inbox",
				Func: s.wrapShellFunc(s.inboxesDeactivate),
			},
		},
	))

	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "quarantine",
			Help: "review unmatched mail",
		},
		[]*ishell.Cmd{
			{
				Name: "list",
				Help: "list all parked mail",
				Func: s.wrapShellFunc(s.quarantineList),
			},
			{
				Name: "confirm",
				Help: "attribute a parked mail to a client",
				Func: s.wrapServiceFunc(s.quarantineConfirm),
			},
			{
				Name: "dismiss",
				Help: "dismiss a parked mail without attribution",
				Func: s.wrapServiceFunc(s.quarantineDismiss),
			},
		},
	))

	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "sync",
			Help: "drain provider mailboxes",
		},
		[]*ishell.Cmd{
			{
				Name: "all",
				Help: "sync every active inbox",
				Func: s.wrapServiceFunc(s.syncAll),
			},
			{
				Name: "run",
				Help: "sync a single inbox",
				Func: s.wrapServiceFunc(s.syncRun),
			},
		},
	))

	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "subscriptions",
			Help: "manage provider webhook subscriptions",
		},
		[]*ishell.Cmd{
			{
				Name: "list",
				Help: "list the subscriptions of an inbox",
				Func: s.wrapShellFunc(s.subscriptionsList),
			},
			{
				Name: "add",
				Help: "subscribe to notifications for an inbox folder",
				Func: s.wrapServiceFunc(s.subscriptionsAdd),
			},
			{
				Name: "remove",
				Help: "delete a subscription",
				Func: s.wrapServiceFunc(s.subscriptionsRemove),
			},
		},
	))
}

func (s *shellCommand) clientsList(ctx shellContext) error {
	if !ctx.checkArgs(0) {
		return errors.New("Usage: clients list")
	}

	clients, err := s.ClientDao.FindAll(ctx.ctx, ctx.tx)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Clients:\n", len(clients))
	for _, client := range clients {
		ctx.printf("\t%4d  %s\n", client.ID, client.Name)
	}
	ctx.printf("\n")

	return nil
}

func (s *shellCommand) clientsAdd(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: clients add [NAME]")
	}

	client := models.ClientEntity{
		Name:      ctx.arg(0),
		CreatedAt: time.Now().Unix(),
	}

	if err := s.ClientDao.Insert(ctx.ctx, ctx.tx, &client); err != nil {
		return err
	}

	ctx.printf("\n\tClient %q added (id=%d).\n\n", client.Name, client.ID)
	return nil
}

func (s *shellCommand) aliasesList(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: aliases list [CLIENT]")
	}

	clientID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	aliases, err := s.ClientAliasDao.FindByClient(ctx.ctx, ctx.tx, clientID)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Aliases:\n", len(aliases))
	for _, alias := range aliases {
		ctx.printf("\t%s (%s)\n", alias.Address, alias.DisplayName)
	}
	ctx.printf("\n")

	return nil
}

func (s *shellCommand) aliasesAdd(ctx shellContext) error {
	if !ctx.checkArgs(2) {
		return errors.New("Usage: aliases add [CLIENT] [ADDRESS]")
	}

	clientID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	addr, err := models.ParseNormalized(ctx.arg(1))
	if err != nil {
		return err
	}

	if _, err := s.ClientDao.FindByID(ctx.ctx, s.Database, clientID); err != nil {
		return err
	}

	displayName, err := ctx.ask("Display name", false)
	if err != nil {
		return err
	}

	alias := models.ClientAliasEntity{
		ClientID:    clientID,
		Address:     addr,
		DisplayName: displayName,
		CreatedAt:   time.Now().Unix(),
	}

	if err := s.ClientAliasDao.Insert(ctx.ctx, s.Database, &alias); err != nil {
		return err
	}

	s.Reconciler.WakeUp()

	ctx.printf("\n\tAlias %q added.\n\n", addr)
	return nil
}

func (s *shellCommand) domainsList(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: domains list [CLIENT]")
	}

	clientID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	domains, err := s.ClientDomainDao.FindByClient(ctx.ctx, ctx.tx, clientID)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Domains:\n", len(domains))
	for _, domain := range domains {
		ctx.printf("\t%q\n", domain.Name)
	}
	ctx.printf("\n")

	return nil
}

func (s *shellCommand) domainsAdd(ctx shellContext) error {
	if !ctx.checkArgs(2) {
		return errors.New("Usage: domains add [CLIENT] [DOMAIN]")
	}

	clientID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	name, err := models.DomainToUnicode(ctx.arg(1))
	if err != nil {
		return err
	}

	if _, err := s.ClientDao.FindByID(ctx.ctx, s.Database, clientID); err != nil {
		return err
	}

	domain := models.ClientDomainEntity{
		ClientID:  clientID,
		Name:      name,
		CreatedAt: time.Now().Unix(),
	}

	if err := s.ClientDomainDao.Insert(ctx.ctx, s.Database, &domain); err != nil {
		return err
	}

	s.Reconciler.WakeUp()

	ctx.printf("\n\tDomain %q added.\n\n", name)
	return nil
}

func (s *shellCommand) inboxesList(ctx shellContext) error {
	if !ctx.checkArgs(0) {
		return errors.New("Usage: inboxes list")
	}

	inboxes, err := s.InboxDao.FindAll(ctx.ctx, ctx.tx)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Inboxes:\n", len(inboxes))
	for _, inbox := range inboxes {
		state := "active"
		if !inbox.Active {
			state = "inactive"
		}

		ctx.printf("\t%4d  %s (%s, %s)\n", inbox.ID, inbox.Address, inbox.Kind, state)
	}
	ctx.printf("\n")

	return nil
}

func (s *shellCommand) inboxesAdd(ctx shellContext) error {
	if !ctx.checkArgs(2) {
		return errors.New("Usage: inboxes add [ADDRESS] [KIND]")
	}

	addr, err := models.ParseNormalized(ctx.arg(0))
	if err != nil {
		return err
	}

	kind := models.InboxKind(ctx.arg(1))
	if !kind.Valid() {
		return errors.New(`kind must be "user" or "shared"`)
	}

	displayName, err := ctx.ask("Display name", false)
	if err != nil {
		return err
	}

	inbox := models.InboxEntity{
		Address:     addr,
		DisplayName: displayName,
		Kind:        kind,
		Active:      true,
		CreatedAt:   time.Now().Unix(),
	}

	if kind == models.InboxUser {
		staffUser, err := ctx.ask("Staff user", false)
		if err != nil {
			return err
		}

		inbox.StaffUser = sql.NullString{String: staffUser, Valid: staffUser != ""}
	}

	if err := s.InboxDao.Insert(ctx.ctx, ctx.tx, &inbox); err != nil {
		return err
	}

	ctx.printf("\n\tInbox %q added (id=%d).\n\n", addr, inbox.ID)
	return nil
}

func (s *shellCommand) inboxesActivate(ctx shellContext) error {
	return s.setInboxActive(ctx, true)
}

func (s *shellCommand) inboxesDeactivate(ctx shellContext) error {
	return s.setInboxActive(ctx, false)
}

func (s *shellCommand) setInboxActive(ctx shellContext, active bool) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: inboxes activate|deactivate [INBOX]")
	}

	inboxID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	inbox, err := s.InboxDao.FindByID(ctx.ctx, ctx.tx, inboxID)
	if err != nil {
		return err
	}

	inbox.Active = active
	if err := s.InboxDao.Update(ctx.ctx, ctx.tx, inbox); err != nil {
		return err
	}

	ctx.printf("\n\tInbox %q active=%v.\n\n", inbox.Address, active)
	return nil
}

func (s *shellCommand) quarantineList(ctx shellContext) error {
	if !ctx.checkArgs(0) {
		return errors.New("Usage: quarantine list")
	}

	queue, err := s.UnmatchedDao.FindAll(ctx.ctx, ctx.tx)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Parked mail:\n", len(queue))
	for _, parked := range queue {
		ctx.printf("\t%s  %s  %q (%s, retries=%d)\n",
			parked.ID, parked.Sender, parked.Subject, parked.Reason, parked.RetryCount)
	}
	ctx.printf("\n")

	return nil
}

func (s *shellCommand) quarantineConfirm(ctx shellContext) error {
	if !ctx.checkArgs(2) {
		return errors.New("Usage: quarantine confirm [MAIL] [CLIENT]")
	}

	clientID, err := ctx.argInt64(1)
	if err != nil {
		return err
	}

	staffUser, err := ctx.ask("Staff user", false)
	if err != nil {
		return err
	}

	if err := s.Queue.Confirm(ctx.ctx, ctx.arg(0), clientID, staffUser); err != nil {
		return err
	}

	ctx.printf("\n\tMail attributed to client %d.\n\n", clientID)
	return nil
}

func (s *shellCommand) quarantineDismiss(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: quarantine dismiss [MAIL]")
	}

	staffUser, err := ctx.ask("Staff user", false)
	if err != nil {
		return err
	}

	if err := s.Queue.Dismiss(ctx.ctx, ctx.arg(0), staffUser); err != nil {
		return err
	}

	ctx.printf("\n\tMail dismissed.\n\n")
	return nil
}

func (s *shellCommand) syncAll(ctx shellContext) error {
	if !ctx.checkArgs(0) {
		return errors.New("Usage: sync all")
	}

	if err := s.Syncer.SyncAll(ctx.ctx); err != nil {
		return err
	}

	ctx.printf("\n\tSync finished.\n\n")
	return nil
}

func (s *shellCommand) syncRun(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: sync run [INBOX]")
	}

	inboxID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	if err := s.Syncer.SyncInbox(ctx.ctx, inboxID); err != nil {
		return err
	}

	ctx.printf("\n\tSync finished.\n\n")
	return nil
}

func (s *shellCommand) subscriptionsList(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: subscriptions list [INBOX]")
	}

	inboxID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	subscriptions, err := s.SubscriptionDao.FindByInbox(ctx.ctx, ctx.tx, inboxID)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Subscriptions:\n", len(subscriptions))
	for _, subscription := range subscriptions {
		ctx.printf("\t%s  %s (expires %s)\n",
			subscription.ID,
			subscription.Resource,
			time.Unix(subscription.ExpiresAt, 0).Format(time.RFC3339))
	}
	ctx.printf("\n")

	return nil
}

func (s *shellCommand) subscriptionsAdd(ctx shellContext) error {
	if !ctx.checkArgs(2) {
		return errors.New("Usage: subscriptions add [INBOX] [FOLDER]")
	}

	inboxID, err := ctx.argInt64(0)
	if err != nil {
		return err
	}

	subscription, err := s.Subscriber.Subscribe(ctx.ctx, inboxID, ctx.arg(1))
	if err != nil {
		return err
	}

	ctx.printf("\n\tSubscription %q added.\n\n", subscription.ID)
	return nil
}

func (s *shellCommand) subscriptionsRemove(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: subscriptions remove [SUBSCRIPTION]")
	}

	if err := s.Subscriber.Unsubscribe(ctx.ctx, ctx.arg(0)); err != nil {
		return err
	}

	ctx.printf("\n\tSubscription removed.\n\n")
	return nil
}

type shellContext struct {
	shell *ishell.Context
	ctx   context.Context
	tx    database.Tx
}

func (c *shellContext) checkArgs(n int) bool {
	return len(c.shell.Args) == n
}

func (c *shellContext) arg(i int) string {
	return c.shell.Args[i]
}

func (c *shellContext) argInt64(i int) (int64, error) {
	return strconv.ParseInt(c.shell.Args[i], 10, 64)
}

func (c *shellContext) printf(format string, v ...interface{}) {
	c.shell.Printf(format, v...)
}

func (c *shellContext) ask(prompt string, hide bool) (string, error) {
	c.printf("%s: ", prompt)

	if hide {
		return c.shell.ReadPasswordErr()
	}

	return c.shell.ReadLineErr()
}

func composeShellCmd(cmd ishell.Cmd, children []*ishell.Cmd) *ishell.Cmd {
	for _, child := range children {
		cmd.AddCmd(child)
	}

	return &cmd
}

// wrapShellFunc runs fn inside a transaction that commits when fn succeeds.
func (s *shellCommand) wrapShellFunc(fn func(shellContext) error) func(*ishell.Context) {
	return func(shell *ishell.Context) {
		background := log.WithOrigin(context.Background(), "shell")

		tx, err := s.Database.Begin(background)
		if err != nil {
			shell.Err(err)
			return
		}

		defer tx.Rollback()

		ctx := shellContext{
			shell: shell,
			ctx:   background,
			tx:    tx,
		}

		if err := fn(ctx); err != nil {
			shell.Err(err)
			return
		}

		if err := tx.Commit(); err != nil {
			shell.Err(err)
		}
	}
}

// wrapServiceFunc runs fn without a shared transaction. Commands calling
// into the services use this wrapper, the services manage their own
// transactions.
func (s *shellCommand) wrapServiceFunc(fn func(shellContext) error) func(*ishell.Context) {
	return func(shell *ishell.Context) {
		ctx := shellContext{
			shell: shell,
			ctx:   log.WithOrigin(context.Background(), "shell"),
		}

		if err := fn(ctx); err != nil {
			shell.Err(err)
		}
	}
}
