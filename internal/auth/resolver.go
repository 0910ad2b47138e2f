package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// Resolver turns a raw bearer token into an Identity. When the identity
// provider is unreachable it falls back to decoding the token locally; that
// mode trusts unsigned claims and is reported through logs and metrics.
type Resolver struct {
	verifier     Verifier
	timeout      time.Duration
	allowDegrade bool
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Timeout      time.Duration
	AllowDegrade bool
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewResolver constructs a Resolver.
func NewResolver(verifier Verifier, opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		verifier:     verifier,
		timeout:      opts.Timeout,
		allowDegrade: opts.AllowDegrade,
		logger:       logger,
		metrics:      opts.Metrics,
		now:          time.Now,
	}
}

// Resolve verifies raw. Every failure is an Unauthenticated DomainError except
// cancellation of ctx, which is returned as is.
func (r *Resolver) Resolve(ctx context.Context, raw string) (domain.Identity, error) {
	if raw == "" {
		return domain.Identity{}, apperrors.NewUnauthorized("no token provided")
	}

	callCtx, cancel := r.callContext(ctx)
	identity, err := r.verifier.Verify(callCtx, raw)
	cancel()
	if err == nil {
		r.metrics.RecordVerification(observability.VerificationVerified)
		r.logger.Debug("identity verified", zap.String("subject_id", identity.SubjectID))
		return identity, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Identity{}, ctxErr
	}

	if !IsUnavailable(err) && !errors.Is(err, context.DeadlineExceeded) {
		r.metrics.RecordVerification(observability.VerificationRejected)
		r.logger.Info("token rejected", zap.Error(err))
		return domain.Identity{}, apperrors.NewUnauthorized("authentication failed")
	}

	if !r.allowDegrade {
		r.metrics.RecordVerification(observability.VerificationRejected)
		r.logger.Warn("identity provider unreachable and degraded mode disabled", zap.Error(err))
		return domain.Identity{}, apperrors.NewUnauthorized("authentication failed")
	}

	identity, decodeErr := DecodeUnverified(raw, r.now())
	if decodeErr != nil {
		r.metrics.RecordVerification(observability.VerificationRejected)
		r.logger.Warn("degraded token decode failed", zap.Error(decodeErr), zap.NamedError("provider_error", err))
		return domain.Identity{}, apperrors.NewUnauthorized("authentication failed")
	}

	r.metrics.RecordVerification(observability.VerificationDegraded)
	r.logger.Warn("identity verified in degraded mode",
		zap.String("subject_id", identity.SubjectID),
		zap.NamedError("provider_error", err),
	)
	return identity, nil
}

func (r *Resolver) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
