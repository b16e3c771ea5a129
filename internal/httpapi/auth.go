package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"quicksale/backend/internal/domain"
)

// AuthManager issues and checks access tokens for the accounts kept in a
// UserStore. Accounts are cached in memory and re-read on every login so
// accounts created by another process show up without a restart.
type AuthManager struct {
	mu       sync.RWMutex
	secret   []byte
	tokenTTL time.Duration
	store    UserStore
	accounts map[string]domain.UserAccount
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// Bootstrap accounts created on first start when the user store is empty.
// Blank passwords skip the account.
type Bootstrap struct {
	AdminPassword   string
	CashierPassword string
}

type tokenClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// cashierForm carries the rules for a new cashier account. bcrypt ignores
// anything past 72 bytes.
type cashierForm struct {
	Username string `validate:"required,min=4,max=32,alphanum"`
	Password string `validate:"required,min=6,max=72"`
}

const (
	tokenIssuer      = "quicksale"
	userStoreTimeout = 5 * time.Second
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInactiveAccount    = errors.New("account is inactive")

	formValidator = validator.New()
)

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore, boot Bootstrap) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	a := &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		store:    userStore,
		accounts: make(map[string]domain.UserAccount),
	}
	ctx, cancel := context.WithTimeout(context.Background(), userStoreTimeout)
	defer cancel()
	a.seed(ctx, boot)
	a.refresh(ctx)
	return a
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, userStoreTimeout)
	defer cancel()
	a.refresh(ctx)

	account, ok := a.lookup(req.Username)
	if !ok || !verifyPassword(account.Password, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !account.Active {
		return domain.LoginResponse{}, errInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(account.Username, account.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        account.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// ParseToken accepts only HS256 tokens signed with this manager's secret and
// issued by this service.
func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &tokenClaims{}
	_, err := jwtlib.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

// CreateCashier stores a new active cashier with a bcrypt password. Every
// rejection wraps domain.ErrInvalidInput.
func (a *AuthManager) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	form := cashierForm{Username: normalizeUsername(req.Username), Password: req.Password}
	if err := checkForm(form); err != nil {
		return domain.CashierUser{}, err
	}

	a.refresh(ctx)
	if _, exists := a.lookup(form.Username); exists {
		return domain.CashierUser{}, fmt.Errorf("%w: username %q already exists", domain.ErrInvalidInput, form.Username)
	}

	hashed, err := hashPassword(form.Password)
	if err != nil {
		return domain.CashierUser{}, fmt.Errorf("hash password: %w", err)
	}
	account := domain.UserAccount{
		Username:  form.Username,
		Password:  hashed,
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if a.store != nil {
		if err := a.store.CreateUser(ctx, account); err != nil {
			return domain.CashierUser{}, err
		}
	}
	a.remember(account)
	return cashierView(account), nil
}

// ListCashiers returns the cashier accounts sorted by username.
func (a *AuthManager) ListCashiers(ctx context.Context) []domain.CashierUser {
	a.refresh(ctx)

	a.mu.RLock()
	out := make([]domain.CashierUser, 0, len(a.accounts))
	for _, account := range a.accounts {
		if account.Role == domain.RoleCashier {
			out = append(out, cashierView(account))
		}
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// seed writes the bootstrap accounts when the store holds no users yet.
// Without a store they only live in memory.
func (a *AuthManager) seed(ctx context.Context, boot Bootstrap) {
	if a.store != nil {
		users, err := a.store.ListUsers(ctx)
		if err != nil || len(users) > 0 {
			return
		}
	}

	now := time.Now().UTC()
	for _, s := range []struct{ username, password, role string }{
		{"admin", boot.AdminPassword, domain.RoleAdmin},
		{"cashier", boot.CashierPassword, domain.RoleCashier},
	} {
		if s.password == "" {
			continue
		}
		hashed, err := hashPassword(s.password)
		if err != nil {
			continue
		}
		account := domain.UserAccount{Username: s.username, Password: hashed, Role: s.role, Active: true, CreatedAt: now}
		if a.store != nil && a.store.CreateUser(ctx, account) != nil {
			continue
		}
		a.remember(account)
	}
}

// refresh re-reads the store into the account cache. Stored plain-text
// passwords are hashed and written back.
func (a *AuthManager) refresh(ctx context.Context) {
	if a.store == nil {
		return
	}
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return
	}
	for _, account := range users {
		account.Username = normalizeUsername(account.Username)
		if account.Username == "" {
			continue
		}
		if !isPasswordHash(account.Password) {
			hashed, err := hashPassword(account.Password)
			if err != nil {
				continue
			}
			account.Password = hashed
			_ = a.store.UpdateUserPassword(ctx, account.Username, hashed)
		}
		a.remember(account)
	}
}

func (a *AuthManager) remember(account domain.UserAccount) {
	a.mu.Lock()
	a.accounts[account.Username] = account
	a.mu.Unlock()
}

func (a *AuthManager) lookup(username string) (domain.UserAccount, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	account, ok := a.accounts[normalizeUsername(username)]
	return account, ok
}

func cashierView(account domain.UserAccount) domain.CashierUser {
	return domain.CashierUser{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// checkForm flattens validator failures into one ErrInvalidInput error.
func checkForm(form any) error {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, strings.ToLower(ve.Field())+"="+ve.Tag())
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
}

func verifyPassword(stored string, input string) bool {
	if !isPasswordHash(stored) || strings.TrimSpace(input) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func isPasswordHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
