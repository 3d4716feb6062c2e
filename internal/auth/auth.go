// Package auth assembles the header sets threshold-gated calls carry and
// manages the verification tokens that ride with them.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/storage"
)

const (
	// HeaderAuthorizationX is the positional signature header prefix. The
	// i-th collected signature goes in "AuthorizationX-i", 1-based.
	HeaderAuthorizationX = "AuthorizationX"

	HeaderVerifyToken           = "Verify-token"
	HeaderSecurityQuestionToken = "Security-Question-token"
	HeaderConfirmationToken     = "Confirmation-token"

	defaultTokenTTL = 5 * time.Minute
)

// SignaturePair is one co-signer's contribution: the signing key's master
// fingerprint and its signature over the request envelope.
type SignaturePair struct {
	Xfp       string
	Signature string
}

// HeaderOptions carries the optional verification-tier tokens a commit may
// need next to the signature headers.
type HeaderOptions struct {
	VerifyToken           string
	SecurityQuestionToken string
	ConfirmationToken     string
}

// Coordinator owns verification tokens and header assembly. Tokens are
// persisted in redis with a TTL so an interrupted flow can resume without
// re-verifying, but never outlive their server-side lifetime.
type Coordinator struct {
	logger *logrus.Logger
	client *remote.Client
	redis  *storage.RedisStorage
}

func NewCoordinator(client *remote.Client, redis *storage.RedisStorage) *Coordinator {
	return &Coordinator{
		logger: logrus.WithField("module", "auth").Logger,
		client: client,
		redis:  redis,
	}
}

// BuildHeaders renders collected signatures into positional
// AuthorizationX-1..N headers, in submission order, plus whatever tier
// tokens the options carry. Position matters: the server matches the i-th
// header against the i-th expected co-signer slot.
func BuildHeaders(pairs []SignaturePair, opts HeaderOptions) map[string]string {
	headers := make(map[string]string, len(pairs)+3)
	for i, pair := range pairs {
		headers[fmt.Sprintf("%s-%d", HeaderAuthorizationX, i+1)] = pair.Xfp + "." + pair.Signature
	}
	if opts.VerifyToken != "" {
		headers[HeaderVerifyToken] = opts.VerifyToken
	}
	if opts.SecurityQuestionToken != "" {
		headers[HeaderSecurityQuestionToken] = opts.SecurityQuestionToken
	}
	if opts.ConfirmationToken != "" {
		headers[HeaderConfirmationToken] = opts.ConfirmationToken
	}
	return headers
}

// VerifyPassword trades the account password for an action-scoped token
// and caches it.
func (c *Coordinator) VerifyPassword(ctx context.Context, scope types.Scope, action types.TargetAction, password string) (string, error) {
	token, err := c.client.VerifiedPasswordToken(ctx, action, password)
	if err != nil {
		return "", fmt.Errorf("fail to verify password: %w", err)
	}
	c.storeToken(ctx, scope, action, token)
	return token, nil
}

// VerifyPKey trades a signed challenge for an action-scoped token and
// caches it.
func (c *Coordinator) VerifyPKey(ctx context.Context, scope types.Scope, action types.TargetAction, address, signature string) (string, error) {
	token, err := c.client.VerifiedPKeyToken(ctx, action, address, signature)
	if err != nil {
		return "", fmt.Errorf("fail to verify signed challenge: %w", err)
	}
	c.storeToken(ctx, scope, action, token)
	return token, nil
}

// RequestFederatedCode kicks off the email-code verification tier.
func (c *Coordinator) RequestFederatedCode(ctx context.Context, action types.TargetAction) error {
	return c.client.RequestFederatedToken(ctx, action)
}

// VerifyFederatedCode confirms an email code and caches the resulting
// token.
func (c *Coordinator) VerifyFederatedCode(ctx context.Context, scope types.Scope, action types.TargetAction, code string) (string, error) {
	token, err := c.client.VerifyFederatedToken(ctx, action, code)
	if err != nil {
		return "", fmt.Errorf("fail to verify federated code: %w", err)
	}
	c.storeToken(ctx, scope, action, token)
	return token, nil
}

// VerifySecurityQuestions checks the supplied answers and returns the
// Security-Question-token.
func (c *Coordinator) VerifySecurityQuestions(ctx context.Context, answers []types.QuestionAnswer) (string, error) {
	token, err := c.client.VerifySecurityQuestions(ctx, answers)
	if err != nil {
		return "", fmt.Errorf("fail to verify security questions: %w", err)
	}
	return token, nil
}

// TokenFor returns a cached verification token for the action, or empty
// when none survives. Expired tokens are dropped rather than returned.
func (c *Coordinator) TokenFor(ctx context.Context, scope types.Scope, action types.TargetAction) (string, error) {
	token, err := c.redis.GetVerificationToken(ctx, scope, action)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", nil
	}
	if tokenExpired(token) {
		if err := c.redis.DeleteVerificationToken(ctx, scope, action); err != nil {
			c.logger.WithFields(logrus.Fields{
				"action": action,
				"error":  err,
			}).Error("fail to drop expired verification token")
		}
		return "", nil
	}
	return token, nil
}

// ClearToken removes the cached token for an action, typically after the
// gated call committed.
func (c *Coordinator) ClearToken(ctx context.Context, scope types.Scope, action types.TargetAction) error {
	return c.redis.DeleteVerificationToken(ctx, scope, action)
}

// NextNonce fetches a fresh single-use nonce. Nonces are never cached:
// each signing envelope gets its own.
func (c *Coordinator) NextNonce(ctx context.Context) (string, error) {
	return c.client.GetNonce(ctx)
}

func (c *Coordinator) storeToken(ctx context.Context, scope types.Scope, action types.TargetAction, token string) {
	ttl := tokenTTL(token)
	if err := c.redis.SetVerificationToken(ctx, scope, action, token, ttl); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": action,
			"error":  err,
		}).Error("fail to cache verification token")
	}
}

// tokenTTL reads the exp claim out of a server-issued token so the cache
// entry dies with it. The signature is the server's to check, not ours.
func tokenTTL(token string) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return defaultTokenTTL
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return defaultTokenTTL
	}
	ttl := time.Until(time.Unix(int64(exp), 0))
	if ttl <= 0 {
		return defaultTokenTTL
	}
	return ttl
}

func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		// not a jwt; let the server be the judge
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return time.Now().Unix() >= int64(exp)
}
