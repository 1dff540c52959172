package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/repository"
	"github.com/user/reelmark/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var errInvalidCredentials = errors.New("invalid email or password")

// AccountResolver 解析当前登录用户
type AccountResolver interface {
	CurrentUser(ctx context.Context) (*model.Account, error)
}

// Claims JWT 声明
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// AccountService 账号：注册、登录、注销、当前用户
type AccountService struct {
	users   repository.UserStore
	secret  []byte
	expiry  time.Duration
	revoked *cache.Cache // 已注销的 token ID，保留到 token 过期
	logger  *zap.Logger
	now     func() time.Time
}

var _ AccountResolver = (*AccountService)(nil)

func NewAccountService(users repository.UserStore, secret string, expiry time.Duration, logger *zap.Logger) *AccountService {
	return &AccountService{
		users:   users,
		secret:  []byte(secret),
		expiry:  expiry,
		revoked: utils.NewTTLCache(expiry),
		logger:  utils.OrNop(logger),
		now:     time.Now,
	}
}

// Register 注册
func (s *AccountService) Register(ctx context.Context, email, password, name string) (*model.Account, error) {
	const op = "account.register"
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, Wrap(ErrInvalid, op, fmt.Errorf("invalid email: %w", err))
	}
	if len(password) < minPasswordLength {
		return nil, Wrap(ErrInvalid, op, fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, Wrap(ErrInvalid, op, err)
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, Wrap(ErrConflict, op, err)
		}
		return nil, Wrap(ErrTransient, op, err)
	}
	s.logger.Info("[Account] 新用户注册", zap.String("user_id", user.ID))
	return user.Account(), nil
}

// Login 邮箱密码登录，返回 token
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	const op = "account.login"
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, Wrap(ErrTransient, op, err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, Wrap(ErrUnauthenticated, op, errInvalidCredentials)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, Wrap(ErrTransient, op, err)
	}
	return token, user.Account(), nil
}

// Logout 注销 token，过期前不再被接受
func (s *AccountService) Logout(token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return Wrap(ErrUnauthenticated, "account.logout", err)
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl > 0 {
		s.revoked.Set(claims.ID, struct{}{}, ttl)
	}
	return nil
}

// Verify 校验 token，返回对应用户
func (s *AccountService) Verify(token string) (*model.Account, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, Wrap(ErrUnauthenticated, "account.verify", err)
	}
	if _, revoked := s.revoked.Get(claims.ID); revoked {
		return nil, Wrap(ErrUnauthenticated, "account.verify", errors.New("token revoked"))
	}
	return &model.Account{ID: claims.UserID, Email: claims.Email, Name: claims.Name}, nil
}

// Refresh 滑动续期：有效期已消耗过半时签发新 token，否则返回空串
func (s *AccountService) Refresh(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", Wrap(ErrUnauthenticated, "account.refresh", err)
	}
	if claims.IssuedAt == nil {
		return "", nil
	}
	total := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if s.now().Sub(claims.IssuedAt.Time) <= total/2 {
		return "", nil
	}
	fresh, err := s.issueToken(&model.User{ID: claims.UserID, Email: claims.Email, Name: claims.Name})
	if err != nil {
		return "", Wrap(ErrTransient, "account.refresh", err)
	}
	return fresh, nil
}

// CurrentUser 从 context 中取出登录用户，并确认账号仍然存在
func (s *AccountService) CurrentUser(ctx context.Context) (*model.Account, error) {
	const op = "account.current_user"
	a := model.AccountFrom(ctx)
	if a == nil {
		return nil, Wrap(ErrUnauthenticated, op, nil)
	}
	user, err := s.users.FindByID(ctx, a.ID)
	if err != nil {
		return nil, Wrap(ErrTransient, op, err)
	}
	if user == nil {
		return nil, Wrap(ErrUnauthenticated, op, errors.New("account no longer exists"))
	}
	return user.Account(), nil
}

func (s *AccountService) issueToken(user *model.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AccountService) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
