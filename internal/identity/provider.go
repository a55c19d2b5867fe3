// Package identity issues and verifies session tokens and owns user credentials.
// The rest of the service only ever sees the uid returned by Verify.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/utils"
)

// CredentialsCollection holds one document per account, keyed by normalized email.
const CredentialsCollection = "credentials"

// bcrypt only reads the first 72 bytes of a password.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

// ProviderUser is the identity provider's view of an account.
type ProviderUser struct {
	UID         string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

type Provider interface {
	// Verify returns the uid carried by a valid session token.
	Verify(ctx context.Context, token string) (string, error)
	Register(ctx context.Context, email, password, displayName string) (string, error)
	IssueSessionToken(ctx context.Context, uid string) (string, error)
	LookupByEmail(ctx context.Context, email string) (*ProviderUser, error)
	// Authenticate checks a password and returns the matching account.
	Authenticate(ctx context.Context, email, password string) (*ProviderUser, error)
	// DeleteAccount removes the credentials of uid. It reports false when
	// there were none.
	DeleteAccount(ctx context.Context, uid string) (bool, error)
}

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// JWTProvider signs HS256 session tokens and stores bcrypt password hashes in
// the document store.
type JWTProvider struct {
	credentials store.Collection
	secret      []byte
	issuer      string
	ttl         time.Duration
	now         func() time.Time
}

func NewJWTProvider(credentials store.Collection, cfg Config) (*JWTProvider, error) {
	if cfg.Secret == "" {
		return nil, errors.New("identity: signing secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &JWTProvider{
		credentials: credentials,
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		ttl:         cfg.TTL,
		now:         time.Now,
	}, nil
}

func (p *JWTProvider) Register(ctx context.Context, email, password, displayName string) (string, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return "", errs.Invalid("email", "required", "This field is required")
	}
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: must be at least %d characters", errs.ErrWeakPassword, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return "", fmt.Errorf("%w: must be at most %d bytes", errs.ErrWeakPassword, maxPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	uid := utils.GenerateID("usr")
	err = p.credentials.Create(ctx, email, store.Document{
		"uid":           uid,
		"email":         email,
		"display_name":  displayName,
		"password_hash": hash,
		"created_at":    p.now().UTC(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return "", errs.ErrDuplicateEmail
	}
	if err != nil {
		return "", fmt.Errorf("failed to store credentials: %w", err)
	}
	return uid, nil
}

func (p *JWTProvider) IssueSessionToken(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", errors.New("identity: cannot issue token without a uid")
	}
	now := p.now()
	claims := Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) Verify(ctx context.Context, token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: token carries no user id", errs.ErrUnauthorized)
	}

	// Tokens outlive deleted accounts unless checked here.
	accounts, err := p.findByUID(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("%w: account no longer exists", errs.ErrUnauthorized)
	}
	return claims.UserID, nil
}

func (p *JWTProvider) DeleteAccount(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	accounts, err := p.findByUID(ctx, uid)
	if err != nil {
		return false, err
	}
	deleted := false
	for _, a := range accounts {
		err := p.credentials.Delete(ctx, a.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to delete credentials: %w", err)
		}
		deleted = true
	}
	return deleted, nil
}

func (p *JWTProvider) findByUID(ctx context.Context, uid string) ([]store.Snapshot, error) {
	accounts, err := p.credentials.Find(ctx, store.Query{}.Where("uid", store.OpEq, uid))
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return accounts, nil
}

func (p *JWTProvider) LookupByEmail(ctx context.Context, email string) (*ProviderUser, error) {
	user, _, err := p.lookup(ctx, email)
	return user, err
}

func (p *JWTProvider) Authenticate(ctx context.Context, email, password string) (*ProviderUser, error) {
	user, hash, err := p.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, hash) {
		return nil, errs.ErrInvalidCredentials
	}
	return user, nil
}

func (p *JWTProvider) lookup(ctx context.Context, email string) (*ProviderUser, string, error) {
	doc, err := p.credentials.Get(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", errs.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load credentials: %w", err)
	}

	user := &ProviderUser{}
	user.UID, _ = doc["uid"].(string)
	user.Email, _ = doc["email"].(string)
	user.DisplayName, _ = doc["display_name"].(string)
	switch v := doc["created_at"].(type) {
	case time.Time:
		user.CreatedAt = v
	case string:
		user.CreatedAt, _ = utils.ParseTimestamp(v)
	}
	hash, _ := doc["password_hash"].(string)
	return user, hash, nil
}
