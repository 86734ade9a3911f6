package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/store"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/otpx"
)

// DefaultSetupTTL bounds how long a pending setup can be confirmed.
const DefaultSetupTTL = 15 * time.Minute

var errCodeAlreadyUsed = errors.New("backup code consumed concurrently")

// PasswordVerifier is the primary authenticator. It is only consulted
// when disabling the second factor.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID, password string) (bool, error)
}

// Notifier receives committed state changes. Implementations must not
// block and must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// VerifyResult describes a successful verification.
type VerifyResult struct {
	Method               domain.AttemptMethod
	BackupCodesRemaining int
}

// TwoFactorService drives a user's credential through its lifecycle:
// disabled, pending setup, enabled. Every transition that checks a code
// is rate limited and audited, and none is ever partially applied.
type TwoFactorService struct {
	Store     store.Store
	Sealer    *cryptox.Sealer
	Generator Generator
	Attempts  *AttemptLedger
	Passwords PasswordVerifier
	Notifier  Notifier
	Logger    *slog.Logger

	Issuer       string
	Window       uint // accepted TOTP steps either side of now
	SetupTTL     time.Duration
	StoreTimeout time.Duration
	Now          func() time.Time

	locks keyedMutex
}

// Status summarises the credential of userID.
func (s *TwoFactorService) Status(ctx context.Context, userID string) (domain.Status, error) {
	cred, err := s.loadCredential(ctx, "status", userID)
	if err != nil {
		return domain.Status{}, err
	}
	return domain.Status{
		Enabled:              cred.Enabled(),
		Method:               cred.Method,
		EnabledAt:            cred.EnabledAt,
		BackupCodesRemaining: len(cred.BackupCodes),
	}, nil
}

// BeginSetup generates a secret and a backup-code set for a user without
// a second factor. Nothing is persisted: the returned PendingSetup is
// held by the caller until ConfirmSetup or until it expires.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID, account string) (domain.PendingSetup, error) {
	const op = "begin_setup"

	cred, err := s.loadCredential(ctx, op, userID)
	if err != nil {
		return domain.PendingSetup{}, err
	}
	if cred.Enabled() {
		return domain.PendingSetup{}, domain.E(domain.KindAlreadyEnabled, op, nil)
	}

	secret, err := s.Generator.GenerateSecret()
	if err != nil {
		return domain.PendingSetup{}, err
	}
	codes, err := s.Generator.GenerateBackupCodes(domain.BackupCodeCount)
	if err != nil {
		return domain.PendingSetup{}, err
	}

	if account == "" {
		account = userID
	}
	ttl := s.SetupTTL
	if ttl <= 0 {
		ttl = DefaultSetupTTL
	}

	return domain.PendingSetup{
		UserID:          userID,
		Account:         account,
		Secret:          secret.String(),
		ProvisioningURI: otpx.ProvisioningURI(s.Issuer, account, secret),
		BackupCodes:     codes,
		ExpiresAt:       nowFunc(s.Now).Add(ttl),
	}, nil
}

// ConfirmSetup enables the second factor when code is valid for the
// pending secret. Secret, method, backup codes and enabled_at are written
// in one transaction.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, userID string, pending domain.PendingSetup, code, clientContext string) error {
	const op = "confirm_setup"
	now := nowFunc(s.Now)

	if pending.UserID != userID || pending.Expired(now) {
		return domain.E(domain.KindInvalidSetup, op, nil)
	}
	secret, err := otpx.ParseSecret(pending.Secret)
	if err != nil || len(pending.BackupCodes) == 0 {
		return domain.E(domain.KindInvalidSetup, op, err)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.loadCredential(ctx, op, userID)
	if err != nil {
		return err
	}
	if cred.Enabled() {
		return domain.E(domain.KindAlreadyEnabled, op, nil)
	}

	if err := s.checkRate(ctx, op, userID); err != nil {
		return err
	}

	ok, err := otpx.Validate(secret, code, now, s.Window)
	if err != nil {
		return domain.E(domain.KindInvalidSetup, op, err)
	}
	s.Attempts.Record(ctx, userID, domain.AttemptAuthenticator, ok, clientContext)
	if !ok {
		return domain.E(domain.KindInvalidCode, op, nil)
	}

	sealed, err := s.Sealer.Seal([]byte(pending.Secret), userID)
	if err != nil {
		return domain.E(domain.KindEntropyFailure, op, err)
	}

	enabledAt := now.Truncate(time.Millisecond)
	next := domain.Credential{
		UserID:       userID,
		Method:       domain.MethodAuthenticator,
		SealedSecret: sealed,
		BackupCodes:  HashBackupCodes(pending.BackupCodes),
		EnabledAt:    &enabledAt,
		UpdatedAt:    enabledAt,
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.saveCredential(ctx, next); err != nil {
		return unavailable(op, err)
	}

	s.logger().InfoContext(ctx, "two-factor enabled", "user_id", userID)
	s.notify(ctx, domain.EventEnabled, userID, pending.Account)
	return nil
}

// Verify checks a login code. Six digits are checked as an authenticator
// code, anything else as a backup code, which is consumed on success.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code, clientContext string) (VerifyResult, error) {
	const op = "verify"

	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.loadCredential(ctx, op, userID)
	if err != nil {
		return VerifyResult{}, err
	}
	if !cred.Enabled() {
		return VerifyResult{}, domain.E(domain.KindNotEnabled, op, nil)
	}
	if err := s.checkRate(ctx, op, userID); err != nil {
		return VerifyResult{}, err
	}

	m, ok, err := s.matchSecondFactor(op, cred, code)
	if err != nil {
		return VerifyResult{}, err
	}
	if ok && m.digest != "" {
		if ok, err = s.consumeBackupCode(ctx, userID, m.digest); err != nil {
			return VerifyResult{}, unavailable(op, err)
		}
	}
	if !ok {
		return VerifyResult{}, s.reject(ctx, op, userID, m.method, clientContext)
	}

	s.Attempts.Record(ctx, userID, m.method, true, clientContext)
	return VerifyResult{Method: m.method, BackupCodesRemaining: m.remaining}, nil
}

// RegenerateBackupCodes replaces the whole backup-code set after a valid
// second factor. A backup code may be used to authorise the change.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code, clientContext string) ([]string, error) {
	const op = "regenerate_backup_codes"

	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.loadCredential(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !cred.Enabled() {
		return nil, domain.E(domain.KindNotEnabled, op, nil)
	}
	if err := s.checkRate(ctx, op, userID); err != nil {
		return nil, err
	}
	m, ok, err := s.matchSecondFactor(op, cred, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.reject(ctx, op, userID, m.method, clientContext)
	}

	codes, err := s.Generator.GenerateBackupCodes(domain.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	digests := HashBackupCodes(codes)
	now := nowFunc(s.Now).Truncate(time.Millisecond)

	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	err = s.Store.WithTx(sctx, func(tx store.Tx) error {
		if err := spendBackupCode(sctx, tx, userID, m.digest); err != nil {
			return err
		}
		cred.BackupCodes = digests
		cred.UpdatedAt = now
		if err := tx.Credentials().PutCredential(sctx, cred); err != nil {
			return err
		}
		return tx.BackupCodes().ReplaceBackupCodes(sctx, userID, digests)
	})
	if errors.Is(err, errCodeAlreadyUsed) {
		return nil, s.reject(ctx, op, userID, m.method, clientContext)
	}
	if err != nil {
		return nil, unavailable(op, err)
	}
	s.Attempts.Record(ctx, userID, m.method, true, clientContext)

	s.logger().InfoContext(ctx, "backup codes regenerated", "user_id", userID)
	s.notify(ctx, domain.EventBackupCodesRenewed, userID, "")
	return codes, nil
}

// Disable removes the second factor. It requires the account password and
// a valid second factor. Trusted devices are left alone.
func (s *TwoFactorService) Disable(ctx context.Context, userID, password, code, clientContext string) error {
	const op = "disable"

	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.loadCredential(ctx, op, userID)
	if err != nil {
		return err
	}
	if !cred.Enabled() {
		return domain.E(domain.KindNotEnabled, op, nil)
	}
	if err := s.checkRate(ctx, op, userID); err != nil {
		return err
	}

	if s.Passwords == nil {
		return domain.E(domain.KindReauthenticationFailed, op, errors.New("no password verifier"))
	}
	ok, err := s.Passwords.VerifyPassword(ctx, userID, password)
	if err != nil {
		return unavailable(op, err)
	}
	if !ok {
		// A wrong password counts against the same failure budget.
		s.Attempts.Record(ctx, userID, DetectMethod(code), false, clientContext)
		return domain.E(domain.KindReauthenticationFailed, op, nil)
	}

	m, ok, err := s.matchSecondFactor(op, cred, code)
	if err != nil {
		return err
	}
	if !ok {
		return s.reject(ctx, op, userID, m.method, clientContext)
	}

	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	err = s.Store.WithTx(sctx, func(tx store.Tx) error {
		if err := spendBackupCode(sctx, tx, userID, m.digest); err != nil {
			return err
		}
		if err := tx.BackupCodes().DeleteAllBackupCodes(sctx, userID); err != nil {
			return err
		}
		return tx.Credentials().DeleteCredential(sctx, userID)
	})
	if errors.Is(err, errCodeAlreadyUsed) {
		return s.reject(ctx, op, userID, m.method, clientContext)
	}
	if err != nil {
		return unavailable(op, err)
	}
	s.Attempts.Record(ctx, userID, m.method, true, clientContext)

	s.logger().InfoContext(ctx, "two-factor disabled", "user_id", userID)
	s.notify(ctx, domain.EventDisabled, userID, "")
	return nil
}

// secondFactor is a code that matched a credential. For a backup code,
// digest names the row that still has to be consumed.
type secondFactor struct {
	method    domain.AttemptMethod
	digest    string
	remaining int
}

// matchSecondFactor compares code against cred without changing any
// state. The caller holds the user lock and has passed the rate limit
// check, and is responsible for consuming a matched backup code and for
// recording the attempt.
func (s *TwoFactorService) matchSecondFactor(op string, cred domain.Credential, code string) (secondFactor, bool, error) {
	m := secondFactor{method: DetectMethod(code), remaining: len(cred.BackupCodes)}

	switch m.method {
	case domain.AttemptAuthenticator:
		plain, err := s.Sealer.Open(cred.SealedSecret, cred.UserID)
		if err != nil {
			return m, false, fmt.Errorf("%s: open secret: %w", op, err)
		}
		secret, err := otpx.ParseSecret(string(plain))
		if err != nil {
			return m, false, fmt.Errorf("%s: %w", op, err)
		}
		ok, err := otpx.Validate(secret, code, nowFunc(s.Now), s.Window)
		if err != nil {
			return m, false, fmt.Errorf("%s: %w", op, err)
		}
		return m, ok, nil

	case domain.AttemptBackup:
		pos := matchBackupCode(cred.BackupCodes, code)
		if pos < 0 {
			return m, false, nil
		}
		m.digest = cred.BackupCodes[pos]
		m.remaining--
		return m, true, nil
	}
	return m, false, nil
}

// reject records a failed attempt and returns the generic code error.
func (s *TwoFactorService) reject(ctx context.Context, op, userID string, method domain.AttemptMethod, clientContext string) error {
	s.Attempts.Record(ctx, userID, method, false, clientContext)
	return domain.E(domain.KindInvalidCode, op, nil)
}

// spendBackupCode consumes digest inside tx, so it commits or rolls back
// with the rest of the transition. An empty digest is a no-op.
func spendBackupCode(ctx context.Context, tx store.Tx, userID, digest string) error {
	if digest == "" {
		return nil
	}
	ok, err := tx.BackupCodes().ConsumeBackupCode(ctx, userID, digest)
	if err != nil {
		return err
	}
	if !ok {
		return errCodeAlreadyUsed
	}
	return nil
}

// consumeBackupCode deletes one digest. Losing a race to another process
// reports false rather than an error.
func (s *TwoFactorService) consumeBackupCode(ctx context.Context, userID, digest string) (bool, error) {
	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	ok, err := s.Store.BackupCodes().ConsumeBackupCode(sctx, userID, digest)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger().WarnContext(ctx, "backup code redeemed elsewhere", "user_id", userID, "error", errCodeAlreadyUsed)
	}
	return ok, nil
}

func (s *TwoFactorService) checkRate(ctx context.Context, op, userID string) error {
	d, err := s.Attempts.Check(ctx, userID)
	if err != nil {
		return err
	}
	if !d.Allowed {
		s.logger().WarnContext(ctx, "two-factor rate limit reached",
			"user_id", userID, "op", op, "retry_after", d.RetryAfter)
		return limited(op, d)
	}
	return nil
}

func (s *TwoFactorService) loadCredential(ctx context.Context, op, userID string) (domain.Credential, error) {
	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	cred, err := s.Store.Credentials().GetCredential(sctx, userID)
	if err != nil {
		return domain.Credential{}, unavailable(op, err)
	}
	return cred, nil
}

func (s *TwoFactorService) saveCredential(ctx context.Context, c domain.Credential) error {
	sctx, cancel := boundedCtx(ctx, s.StoreTimeout)
	defer cancel()

	return s.Store.WithTx(sctx, func(tx store.Tx) error {
		if err := tx.Credentials().PutCredential(sctx, c); err != nil {
			return err
		}
		return tx.BackupCodes().ReplaceBackupCodes(sctx, c.UserID, c.BackupCodes)
	})
}

func (s *TwoFactorService) notify(ctx context.Context, event domain.Event, userID, account string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, domain.Notification{
		Event:      event,
		UserID:     userID,
		Account:    account,
		OccurredAt: nowFunc(s.Now),
	})
}

func (s *TwoFactorService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
