// cmd/server/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtwallet/internal/booking"
	"github.com/codr1/courtwallet/internal/config"
	appdb "github.com/codr1/courtwallet/internal/db"
	"github.com/codr1/courtwallet/internal/email"
	"github.com/codr1/courtwallet/internal/events"
	"github.com/codr1/courtwallet/internal/ledger"
	"github.com/codr1/courtwallet/internal/ratelimit"
	"github.com/codr1/courtwallet/internal/scheduler"
)

// app holds the long-lived components the routes are wired to.
type app struct {
	db      *appdb.DB
	ledger  *ledger.Ledger
	booking *booking.Service
	limiter *ratelimit.Limiter
	amqp    *events.AMQPSink
	closed  bool
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	database, err := appdb.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{db: database}

	sink, err := a.buildSink(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	policy, err := booking.PolicyFromConfig(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("booking policy: %w", err)
	}

	a.ledger = ledger.New(database, ledger.WithSink(sink))
	a.booking = booking.New(database, a.ledger, booking.WithPolicy(policy), booking.WithSink(sink))
	a.limiter = ratelimit.New(&ratelimit.Config{
		HoldsPerWindow: cfg.Booking.HoldsPerMinute,
		Window:         time.Minute,
	})

	if err := scheduler.Init(); err != nil {
		a.close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	if err := scheduler.RegisterSweepJobs(a.booking, cfg.Scheduler); err != nil {
		a.close()
		return nil, fmt.Errorf("register sweep jobs: %w", err)
	}
	return a, nil
}

// buildSink assembles the post-commit event fan-out. The broker and email
// sinks are optional.
func (a *app) buildSink(ctx context.Context, cfg *config.Config) (events.Sink, error) {
	sinks := []events.Sink{events.LogSink{}}

	if cfg.Events.AMQPURL != "" {
		amqpSink, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return nil, fmt.Errorf("connect event broker: %w", err)
		}
		a.amqp = amqpSink
		sinks = append(sinks, amqpSink)
		log.Info().Str("exchange", cfg.Events.Exchange).Msg("Publishing events to AMQP")
	}

	if cfg.Email.Enabled {
		sender, err := email.NewSESClient(ctx, cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.FromAddress)
		if err != nil {
			return nil, fmt.Errorf("init ses client: %w", err)
		}
		sinks = append(sinks, events.NewEmailSink(a.db.Queries, sender))
		log.Info().Str("region", cfg.Email.Region).Msg("Member notices sent via SES")
	}

	return events.Multi(sinks...), nil
}

func (a *app) close() {
	if a.closed {
		return
	}
	a.closed = true
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close AMQP connection")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}
