package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/aftersales-service/internal/config"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/repository"
)

type memResetRepo struct {
	mu     sync.Mutex
	seq    int
	tokens map[string]*repository.PasswordResetToken
}

func newMemResetRepo() *memResetRepo {
	return &memResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (r *memResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	token.ID = fmt.Sprintf("reset-%d", r.seq)
	token.CreatedAt = testTime
	clone := *token
	r.tokens[token.ID] = &clone
	return nil
}

func (r *memResetRepo) GetByToken(_ context.Context, token string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.tokens {
		if stored.Token == token {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memResetRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	used := testTime
	stored.UsedAt = &used
	return nil
}

func newAuthService() (*AuthService, *memAccountRepo, *memResetRepo) {
	accounts := newMemAccountRepo()
	resets := newMemResetRepo()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4, // bcrypt.MinCost, keeps the suite fast
		},
	}
	return NewAuthService(cfg, AuthDependencies{
		AccountRepo:       accounts,
		PasswordResetRepo: resets,
	}), accounts, resets
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()

	account, token, exp, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", domain.RoleClient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" || exp.IsZero() {
		t.Fatal("no token issued at registration")
	}
	if account.PasswordHash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}

	logged, token, _, err := svc.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != account.ID || token == "" {
		t.Fatalf("login = %v / %q", logged, token)
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != account.ID || claims.Role != domain.RoleClient {
		t.Fatalf("claims = %+v", claims)
	}

	if _, _, _, err := svc.Login(ctx, "ada@example.com", "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc, _, _ := newAuthService()
	if _, _, _, err := svc.Register(context.Background(), "Eve", "eve@example.com", "pw123456", domain.RoleAdmin); err == nil {
		t.Fatal("admin self-registration accepted")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	if _, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", domain.RoleClient); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, _, err := svc.Register(ctx, "Ada Again", "ada@example.com", "hunter22", domain.RoleProvider); err == nil {
		t.Fatal("duplicate email accepted")
	}
}

func TestSuspendedAccountCannotLogin(t *testing.T) {
	svc, accounts, _ := newAuthService()
	ctx := context.Background()

	account, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", domain.RoleClient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	account.Status = domain.AccountStatusSuspended
	if err := accounts.Update(ctx, account); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "ada@example.com", "hunter22"); err == nil {
		t.Fatal("suspended account logged in")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()

	if _, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", domain.RoleClient); err != nil {
		t.Fatalf("Register: %v", err)
	}

	reset, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if err := svc.ConfirmPasswordReset(ctx, reset.Token, "newpassword1"); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "ada@example.com", "hunter22"); err == nil {
		t.Fatal("old password still valid")
	}
	if _, _, _, err := svc.Login(ctx, "ada@example.com", "newpassword1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// The token is single use.
	if err := svc.ConfirmPasswordReset(ctx, reset.Token, "anotherpass"); err == nil {
		t.Fatal("reset token reused")
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()

	account, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", domain.RoleClient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.ChangePassword(ctx, account.ID, "wrong", "next12345"); err == nil {
		t.Fatal("password changed without the current one")
	}
	if err := svc.ChangePassword(ctx, account.ID, "hunter22", "next12345"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "ada@example.com", "next12345"); err != nil {
		t.Fatalf("login after change: %v", err)
	}
}

// Guards against the reset TTL being misread as hours or seconds.
func TestResetTokenCarriesConfiguredTTL(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	if _, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", domain.RoleClient); err != nil {
		t.Fatalf("Register: %v", err)
	}

	before := time.Now()
	reset, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	ttl := reset.ExpiresAt.Sub(before)
	if ttl < 29*time.Minute || ttl > 31*time.Minute {
		t.Fatalf("reset TTL = %v, want about 30m", ttl)
	}
}
