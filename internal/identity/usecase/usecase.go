package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/fekuna/artista-service/internal/identity"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/pkg/cache"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	issuer            = "artista"
)

type Config struct {
	SecretKey     string
	TokenTTL      time.Duration
	MaxFailures   int           // failed sign-ins per email before lockout
	FailureWindow time.Duration // window the failures are counted in
	BcryptCost    int
}

// Claims are the JWT claims of a session token. Id carries the jti used for revocation.
type Claims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

type identityUseCase struct {
	repo     identity.Repository
	profiles identity.ProfileSeeder
	cache    *cache.RedisClient
	hub      *identity.Hub
	cfg      Config
	logger   logger.ZapLogger
}

// NewIdentityUseCase wires sign-in and sign-up. profiles may be nil.
func NewIdentityUseCase(repo identity.Repository, profiles identity.ProfileSeeder, cache *cache.RedisClient, hub *identity.Hub, cfg Config, log logger.ZapLogger) identity.UseCase {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &identityUseCase{
		repo:     repo,
		profiles: profiles,
		cache:    cache,
		hub:      hub,
		cfg:      cfg,
		logger:   log,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", identity.Fail(identity.ReasonInvalidEmail, nil)
	}
	return email, nil
}

func (uc *identityUseCase) SignUp(ctx context.Context, email, password, name string) (*identity.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, identity.Fail(identity.ReasonWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cfg.BcryptCost)
	if err != nil {
		return nil, identity.Fail(identity.ReasonUnexpected, err)
	}

	u := &identity.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, identity.Fail(identity.ReasonEmailInUse, err)
		}
		return nil, identity.Fail(identity.ReasonNetwork, err)
	}

	if uc.profiles != nil {
		p := model.DefaultProfile(u.ID)
		p.Name = strings.TrimSpace(name)
		if err := uc.profiles.SaveProfile(ctx, &p); err != nil {
			uc.logger.Error("Failed to seed profile", zap.String("user_id", u.ID), zap.Error(err))
		}
	}

	uc.logger.Info("User signed up", zap.String("user_id", u.ID))
	return uc.startSession(ctx, u)
}

func (uc *identityUseCase) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if uc.lockedOut(ctx, email) {
		return nil, identity.Fail(identity.ReasonTooManyRequests, nil)
	}

	u, err := uc.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, identity.Fail(identity.ReasonNetwork, err)
	}
	if u == nil {
		uc.recordFailure(ctx, email)
		return nil, identity.Fail(identity.ReasonUserNotFound, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		uc.recordFailure(ctx, email)
		return nil, identity.Fail(identity.ReasonWrongPassword, nil)
	}

	if err := uc.cache.Client.Del(ctx, failureKey(email)).Err(); err != nil {
		uc.logger.Warn("Failed to reset sign-in failures", zap.Error(err))
	}
	return uc.startSession(ctx, u)
}

func (uc *identityUseCase) startSession(ctx context.Context, u *identity.User) (*identity.Session, error) {
	now := time.Now()
	expiresAt := now.Add(uc.cfg.TokenTTL)
	claims := &Claims{
		Email: u.Email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(uc.cfg.SecretKey))
	if err != nil {
		return nil, identity.Fail(identity.ReasonUnexpected, err)
	}

	principal := model.Principal{UserID: u.ID, Email: u.Email}
	uc.hub.Emit(ctx, identity.Change{Principal: principal, Present: true})

	return &identity.Session{
		Token:     tokenString,
		ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC(),
		Principal: principal,
	}, nil
}

func (uc *identityUseCase) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(uc.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, identity.Fail(identity.ReasonInvalidCredential, err)
	}
	if !token.Valid || claims.Subject == "" || claims.Id == "" {
		return nil, identity.Fail(identity.ReasonInvalidCredential, nil)
	}
	return claims, nil
}

func (uc *identityUseCase) Verify(ctx context.Context, tokenString string) (model.Principal, error) {
	claims, err := uc.parse(tokenString)
	if err != nil {
		return model.Principal{}, err
	}

	n, err := uc.cache.Client.Exists(ctx, revokedKey(claims.Id)).Result()
	if err != nil {
		return model.Principal{}, identity.Fail(identity.ReasonNetwork, err)
	}
	if n > 0 {
		return model.Principal{}, identity.Fail(identity.ReasonInvalidCredential, errors.New("token revoked"))
	}
	return model.Principal{UserID: claims.Subject, Email: claims.Email}, nil
}

// SignOut revokes the token's jti until the token would have expired anyway.
func (uc *identityUseCase) SignOut(ctx context.Context, tokenString string) error {
	claims, err := uc.parse(tokenString)
	if err != nil {
		return err
	}

	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl > 0 {
		if err := uc.cache.Client.Set(ctx, revokedKey(claims.Id), "1", ttl).Err(); err != nil {
			return identity.Fail(identity.ReasonNetwork, err)
		}
	}

	uc.logger.Info("User signed out", zap.String("user_id", claims.Subject))
	uc.hub.Emit(ctx, identity.Change{
		Principal: model.Principal{UserID: claims.Subject, Email: claims.Email},
		Present:   false,
	})
	return nil
}

func failureKey(email string) string { return "auth:failures:" + email }
func revokedKey(jti string) string   { return "auth:revoked:" + jti }

// lockedOut fails open when Redis is unreachable.
func (uc *identityUseCase) lockedOut(ctx context.Context, email string) bool {
	n, err := uc.cache.Client.Get(ctx, failureKey(email)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			uc.logger.Warn("Failed to read sign-in failures", zap.Error(err))
		}
		return false
	}
	return n >= uc.cfg.MaxFailures
}

func (uc *identityUseCase) recordFailure(ctx context.Context, email string) {
	n, err := uc.cache.Client.Incr(ctx, failureKey(email)).Result()
	if err != nil {
		uc.logger.Warn("Failed to record sign-in failure", zap.Error(err))
		return
	}
	if n == 1 {
		if err := uc.cache.Client.Expire(ctx, failureKey(email), uc.cfg.FailureWindow).Err(); err != nil {
			uc.logger.Warn("Failed to expire sign-in failures", zap.Error(err))
		}
	}
}
