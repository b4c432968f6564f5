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

// Package httpapi is the http surface of the service: the provider webhook,
// the staff actions and the operational views used for triage.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"

	"github.com/ledgerline/mailroom/internal/classify"
	"github.com/ledgerline/mailroom/internal/database"
	"github.com/ledgerline/mailroom/internal/log"
	"github.com/ledgerline/mailroom/internal/msgraph"
	"github.com/ledgerline/mailroom/internal/quarantine"
	"github.com/ledgerline/mailroom/internal/sla"
	"github.com/ledgerline/mailroom/internal/storage"
)

func init() {
	viper.SetDefault("httpapi.address", ":8080")
}

// Server carries the collaborators of the http handlers. Handlers read
// through the daos directly and delegate every write to the owning service.
type Server struct {
	Database   database.Conn
	Bodies     storage.Bodies
	Tracker    *sla.Tracker
	Overlay    *classify.Overlay
	Queue      *quarantine.Queue
	Reconciler *quarantine.Reconciler
	Syncer     *msgraph.Syncer
	Subscriber *msgraph.Subscriber

	ClientDao         database.ClientDao
	ClientAliasDao    database.ClientAliasDao
	ClientDomainDao   database.ClientDomainDao
	InboxDao          database.InboxDao
	InboxEmailDao     database.InboxEmailDao
	MessageDao        database.MessageDao
	ThreadDao         database.ThreadDao
	UnmatchedDao      database.UnmatchedDao
	ClassificationDao database.ClassificationDao
	OverrideDao       database.OverrideDao
	WorkflowDao       database.WorkflowDao
	SyncStateDao      database.SyncStateDao
	SubscriptionDao   database.SubscriptionDao
}

// handler builds the echo instance with all routes attached.
func (s *Server) handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger)

	e.GET("/health", s.health)
	e.POST("/webhooks/graph", s.graphWebhook)

	v1 := e.Group("/api/v1")

	v1.GET("/threads", s.listThreads)
	v1.GET("/threads/:id", s.getThread)
	v1.POST("/threads/:id/complete", s.completeThread)
	v1.POST("/threads/:id/snooze", s.snoozeThread)

	v1.GET("/messages/:id", s.getMessage)
	v1.GET("/messages/:id/body", s.getMessageBody)
	v1.POST("/messages/:id/override", s.overrideClassification)
	v1.POST("/messages/:id/workflow", s.setWorkflow)

	v1.GET("/quarantine", s.listQuarantine)
	v1.POST("/quarantine/:id/confirm", s.confirmQuarantine)
	v1.POST("/quarantine/:id/dismiss", s.dismissQuarantine)

	v1.GET("/clients", s.listClients)
	v1.POST("/clients", s.createClient)
	v1.GET("/clients/:id", s.getClient)
	v1.POST("/clients/:id/aliases", s.createAlias)
	v1.POST("/clients/:id/domains", s.createDomain)

	v1.GET("/inboxes", s.listInboxes)
	v1.POST("/inboxes", s.createInbox)
	v1.GET("/inboxes/:id", s.getInbox)
	v1.GET("/inboxes/:id/emails", s.listInboxEmails)
	v1.POST("/inboxes/:id/sync", s.triggerSync)
	v1.POST("/inboxes/:id/subscriptions", s.createSubscription)

	v1.POST("/inbox-emails/:id/no-action", s.markNoAction)

	return e
}

// ListenAndServe runs the http server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var (
		e       = s.handler()
		address = viper.GetString("httpapi.address")
	)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warn().
				Err(err).
				Msg("could not shut down the http api gracefully")
		}
	}()

	log.Info().
		Str("address", address).
		Msg("starting http api")

	if err := e.Start(address); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger writes one log line per handled request.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		log.Debug().
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Int("status", c.Response().Status).
			Dur("duration", time.Since(start)).
			Msg("handled request")

		return err
	}
}

// requestContext tags the request context for log correlation.
func requestContext(c echo.Context) context.Context {
	return log.WithOrigin(c.Request().Context(), "httpapi")
}
