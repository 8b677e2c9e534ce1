// Package engine assembles the repositories, policies, and services into one
// ready-to-use unit. The surrounding API layer constructs an Engine once at
// startup and calls its services; nothing here opens network listeners.
package engine

import (
	"database/sql"
	"fmt"

	accountservice "license-auth/backend/internal/account/service"
	accounttyperepo "license-auth/backend/internal/accounttype/repository"
	adminrepo "license-auth/backend/internal/admin/repository"
	adminservice "license-auth/backend/internal/admin/service"
	"license-auth/backend/internal/audit"
	auditrepo "license-auth/backend/internal/audit/repository"
	authservice "license-auth/backend/internal/auth/service"
	"license-auth/backend/internal/authevent"
	eventrepo "license-auth/backend/internal/authevent/repository"
	"license-auth/backend/internal/authevent/stream"
	"license-auth/backend/internal/config"
	devicepkg "license-auth/backend/internal/device"
	devicerepo "license-auth/backend/internal/device/repository"
	"license-auth/backend/internal/security"
	sessionrepo "license-auth/backend/internal/session/repository"
	userrepo "license-auth/backend/internal/user/repository"
)

// Engine bundles the engine's services over a shared database handle.
type Engine struct {
	Auth    *authservice.AuthService
	Admin   *adminservice.AdminService
	Account *accountservice.AccountService
	Events  *eventrepo.PostgresRepository
	Audit   *auditrepo.PostgresRepository

	emitter *stream.KafkaEmitter
}

// New wires the engine from config and an open database handle. The admin
// service is only built when ADMIN_JWT_PRIVATE_KEY and ADMIN_JWT_PUBLIC_KEY
// are configured; the Kafka stream only when KAFKA_BROKERS is set.
func New(cfg *config.Config, conn *sql.DB) (*Engine, error) {
	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	accountTypes := accounttyperepo.NewPostgresRepository(conn)
	devices := devicerepo.NewPostgresRepository(conn)
	admins := adminrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)
	events := eventrepo.NewPostgresRepository(conn)

	emitter := stream.NewKafkaEmitter(cfg.KafkaBrokersList(), cfg.AuthEventsTopic)
	var recorderEmitter authevent.Emitter
	if emitter != nil {
		recorderEmitter = emitter
	}
	recorder := authevent.NewRecorder(events, recorderEmitter)

	hasher := security.NewHasher(cfg.BcryptCost)
	policy := devicepkg.NewPolicy(users, devices)
	storeTimeout := cfg.StoreCallTimeout()

	e := &Engine{
		Auth: authservice.NewAuthService(
			users, sessions, accountTypes, policy, hasher, recorder,
			cfg.SessionLifetime(), cfg.SessionSliding, storeTimeout,
		),
		Account: accountservice.NewAccountService(
			users, accountTypes, devices, sessions, hasher,
			audit.NewLogger(auditLogs), storeTimeout,
		),
		Events:  events,
		Audit:   auditLogs,
		emitter: emitter,
	}

	if cfg.AdminJWTPrivateKey != "" && cfg.AdminJWTPublicKey != "" {
		privateKey, err := security.ParsePrivateKey(cfg.AdminJWTPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("admin jwt private key: %w", err)
		}
		publicKey, err := security.ParsePublicKey(cfg.AdminJWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("admin jwt public key: %w", err)
		}
		tokens := security.NewAdminTokenProvider(
			privateKey, publicKey, cfg.AdminJWTIssuer, cfg.AdminJWTAudience, cfg.AdminTokenTTL(),
		)
		e.Admin = adminservice.NewAdminService(admins, hasher, tokens, recorder, storeTimeout)
	}

	return e, nil
}

// Close releases resources held by the engine (currently the Kafka writer).
// The database handle is owned by the caller and is not closed here.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	return e.emitter.Close()
}
