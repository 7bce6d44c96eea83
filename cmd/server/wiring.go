package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	anchorhandler "vcanchor/internal/anchor/handler"
	"vcanchor/internal/anchor/chain"
	anchormetrics "vcanchor/internal/anchor/metrics"
	anchorservice "vcanchor/internal/anchor/service"
	anchorstore "vcanchor/internal/anchor/store"
	"vcanchor/internal/anchor/workers/leasesweep"
	claimhandler "vcanchor/internal/claim/handler"
	claimmetrics "vcanchor/internal/claim/metrics"
	claimservice "vcanchor/internal/claim/service"
	claimstore "vcanchor/internal/claim/store"
	credhandler "vcanchor/internal/credential/handler"
	credservice "vcanchor/internal/credential/service"
	credstore "vcanchor/internal/credential/store"
	jwttoken "vcanchor/internal/jwt_token"
	"vcanchor/internal/platform/config"
	"vcanchor/internal/platform/database"
	"vcanchor/internal/platform/health"
	"vcanchor/internal/platform/kafka"
	"vcanchor/internal/platform/kafka/producer"
	platformnats "vcanchor/internal/platform/nats"
	platformredis "vcanchor/internal/platform/redis"
	"vcanchor/internal/platform/tracer"
	httptransport "vcanchor/internal/transport/http"
	verificationhandler "vcanchor/internal/verification/handler"
	verificationmetrics "vcanchor/internal/verification/metrics"
	"vcanchor/internal/verification/notify"
	verificationservice "vcanchor/internal/verification/service"
	sessionstore "vcanchor/internal/verification/store"
	"vcanchor/internal/workers/cleanup"
	"vcanchor/migrations"
	"vcanchor/pkg/platform/audit"
	auditmetrics "vcanchor/pkg/platform/audit/metrics"
	"vcanchor/pkg/platform/audit/publisher"
	"vcanchor/pkg/platform/audit/store/kafkasink"
	auditmemory "vcanchor/pkg/platform/audit/store/memory"
	"vcanchor/pkg/platform/circuit"
	"vcanchor/pkg/platform/middleware/request"
	"vcanchor/pkg/platform/tx"
)

// credentialStore is what every module needs from the credential rows;
// both the memory and the PostgreSQL store satisfy it.
type credentialStore interface {
	anchorservice.CredentialStore
	credservice.Store
	claimservice.CredentialStore
}

type ticketStore interface {
	claimservice.TicketStore
	cleanup.TicketStore
}

type sessionStore interface {
	verificationservice.SessionStore
	cleanup.SessionStore
}

type app struct {
	router       http.Handler
	leaseSweeper *leasesweep.Sweeper
	cleanup      *cleanup.Service
	closers      []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()
	checks := health.New(cfg.Environment)

	credentials, batches, runner, err := buildPersistence(ctx, cfg, log, a, checks)
	if err != nil {
		return nil, err
	}
	tickets, sessions, err := buildEphemeral(ctx, cfg, log, a, checks)
	if err != nil {
		return nil, err
	}
	auditor, err := buildAudit(cfg, log, a, checks)
	if err != nil {
		return nil, err
	}
	chainClient, err := buildChain(ctx, cfg.Chain, log)
	if err != nil {
		return nil, err
	}

	credentialSvc := credservice.New(credentials,
		credservice.WithLogger(log),
		credservice.WithAuditor(auditor),
	)
	anchorSvc := anchorservice.New(credentials, batches, chainClient, runner,
		anchorservice.WithLogger(log),
		anchorservice.WithMetrics(anchormetrics.New()),
		anchorservice.WithTracer(tracer.NewOTel()),
		anchorservice.WithAuditor(auditor),
	)
	claimSvc := claimservice.New(credentials, tickets, claimservice.Config{
		TicketTTL:        cfg.Claim.TicketTTL,
		DataFrames:       cfg.Claim.FrameCount,
		ParityFrames:     cfg.Claim.ParityFrames,
		DefaultFrameSize: cfg.Claim.DefaultFrameSize,
		MaxFrameSize:     cfg.Claim.MaxFrameSize,
		PublicBaseURL:    cfg.Server.PublicBaseURL,
		TokenSecret:      []byte(cfg.Claim.TokenSecret),
	},
		claimservice.WithLogger(log),
		claimservice.WithMetrics(claimmetrics.New()),
		claimservice.WithAuditor(auditor),
	)

	notifier, err := buildNotifier(cfg.NATS, log, a, checks)
	if err != nil {
		return nil, err
	}
	verificationSvc := verificationservice.New(sessions, credentials, anchorSvc, verificationservice.Config{
		SessionTTL: cfg.Verification.SessionTTL,
	},
		verificationservice.WithLogger(log),
		verificationservice.WithMetrics(verificationmetrics.New()),
		verificationservice.WithAuditor(auditor),
		verificationservice.WithNotifier(notifier.notifier),
	)
	if notifier.client != nil {
		sub, err := notify.NewResponder(verificationSvc, log).
			Subscribe(notifier.client.Conn(), cfg.NATS.ResponseSubject, cfg.NATS.QueueGroup)
		if err != nil {
			return nil, fmt.Errorf("subscribe to holder responses: %w", err)
		}
		a.closers = append(a.closers, func() { _ = sub.Drain() })
	}

	if a.leaseSweeper, err = leasesweep.New(anchorSvc,
		leasesweep.WithInterval(cfg.Anchor.SweepInterval),
		leasesweep.WithLeaseTTL(cfg.Anchor.MintLeaseTTL),
		leasesweep.WithLogger(log),
	); err != nil {
		return nil, err
	}
	if a.cleanup, err = cleanup.New(tickets, sessions,
		cleanup.WithInterval(cfg.Claim.CleanupInterval),
		cleanup.WithLogger(log),
	); err != nil {
		return nil, err
	}

	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience, cfg.Server.TokenTTL)
	a.router = httptransport.NewRouter(httptransport.Routes{
		Health:       checks,
		Credentials:  credhandler.New(credentialSvc, log),
		Anchor:       anchorhandler.New(anchorSvc, log),
		Claims:       claimhandler.New(claimSvc, log),
		Verification: verificationhandler.New(verificationSvc, log),
	}, jwttoken.NewJWTServiceAdapter(jwt), httptransport.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		Scopes: httptransport.Scopes{
			Credentials: jwttoken.ScopeIssue,
			Anchor:      jwttoken.ScopeAnchor,
			Claims:      jwttoken.ScopeClaims,
		},
	}, request.NewMetrics(), log)

	ok = true
	return a, nil
}

// buildPersistence selects PostgreSQL when a database URL is configured and
// in-memory stores otherwise.
func buildPersistence(ctx context.Context, cfg *config.Config, log *slog.Logger, a *app, checks *health.Handler) (credentialStore, anchorservice.BatchStore, tx.Runner, error) {
	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	if pool == nil {
		log.Warn("no database configured, using in-memory credential and batch stores")
		return credstore.NewInMemoryStore(), anchorstore.NewInMemoryStore(), tx.NewMemoryRunner(), nil
	}
	a.closers = append(a.closers, func() { _ = pool.Close() })
	checks.RegisterCheck(pool)
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	log.Info("connected to PostgreSQL")
	return credstore.NewPostgres(pool.DB()), anchorstore.NewPostgres(pool.DB()), tx.NewPostgresRunner(pool.DB()), nil
}

// buildEphemeral selects Redis for claim tickets and verification sessions
// when configured so every instance sees the same state.
func buildEphemeral(ctx context.Context, cfg *config.Config, log *slog.Logger, a *app, checks *health.Handler) (ticketStore, sessionStore, error) {
	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rc == nil {
		log.Warn("no redis configured, claim tickets and verification sessions are per-instance")
		return claimstore.NewInMemoryStore(), sessionstore.NewInMemoryStore(), nil
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })
	checks.RegisterCheck(rc)
	if err := prometheus.Register(platformredis.NewPoolCollector(rc)); err != nil {
		log.Warn("redis pool metrics not registered", "error", err)
	}
	log.Info("connected to Redis")
	return claimstore.NewRedis(rc.Client), sessionstore.NewRedis(rc.Client), nil
}

// buildAudit sends audit events to Kafka when brokers are configured.
func buildAudit(cfg *config.Config, log *slog.Logger, a *app, checks *health.Handler) (audit.Emitter, error) {
	if cfg.Kafka.Brokers == "" {
		log.Warn("no kafka brokers configured, audit events stay in memory")
		return publisher.New(auditmemory.New(), publisher.WithLogger(log)), nil
	}
	p, err := producer.New(producer.Config{
		Brokers:         cfg.Kafka.Brokers,
		Acks:            cfg.Kafka.Acks,
		Retries:         cfg.Kafka.Retries,
		DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		ClientID:        "vcanchor",
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	checks.RegisterCheck(kafka.NewHealthChecker(p))
	pub := publisher.New(kafkasink.New(p, cfg.Kafka.AuditTopic),
		publisher.WithAsyncBuffer(cfg.Kafka.AuditBuffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(auditmetrics.New()),
	)
	// Drain buffered events before the producer closes.
	a.closers = append(a.closers, func() { _ = p.Close() }, pub.Close)
	return pub, nil
}

// buildChain wraps the configured ledger client with bounded retries and a
// circuit breaker.
func buildChain(ctx context.Context, cfg config.Chain, log *slog.Logger) (chain.Client, error) {
	var inner chain.Client
	switch cfg.Driver {
	case "evm":
		c, err := chain.DialEVM(ctx, cfg.RPCURL, cfg.PrivateKey, cfg.ChainID, cfg.ConfirmTimeout)
		if err != nil {
			return nil, fmt.Errorf("dial chain: %w", err)
		}
		log.Info("anchoring to EVM chain", "chain_id", c.ChainID(), "address", c.Address().Hex())
		inner = c
	default:
		log.Warn("using in-memory chain, roots are not published anywhere")
		inner = chain.NewMemoryClient(strconv.FormatInt(cfg.ChainID, 10))
	}
	breaker := circuit.New("chain",
		circuit.WithStateChangeHook(func(name string, from, to circuit.State) {
			log.Warn("circuit breaker state changed", "circuit", name, "from", from.String(), "to", to.String())
		}),
	)
	return chain.NewResilient(inner,
		chain.WithAttempts(cfg.SubmitAttempts),
		chain.WithBackoff(cfg.RetryBackoff),
		chain.WithBreaker(breaker),
		chain.WithLogger(log),
	), nil
}

type holderChannel struct {
	client   *platformnats.Client
	notifier verificationservice.Notifier
}

// buildNotifier publishes holder requests over NATS when configured;
// otherwise holders answer through the HTTP present route only.
func buildNotifier(cfg config.NATS, log *slog.Logger, a *app, checks *health.Handler) (holderChannel, error) {
	client, err := platformnats.Connect(cfg, log)
	if err != nil {
		return holderChannel{}, err
	}
	if client == nil {
		return holderChannel{notifier: notify.NewLog(log)}, nil
	}
	a.closers = append(a.closers, func() { _ = client.Drain() })
	checks.RegisterCheck(client)
	return holderChannel{
		client:   client,
		notifier: notify.NewNATS(client.Conn(), cfg.RequestSubject, log),
	}, nil
}
