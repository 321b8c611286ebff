package service

import (
	"context"
	"testing"

	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/config"
	"github.com/command-center/helpdesk/internal/domain"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// Minimum bcrypt cost keeps the suite fast.
func newAuthFixture() (*AuthService, *memUserRepo) {
	users := newMemUserRepo()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}, users)
	return svc, users
}

func TestRegisterGrantsDefaultScopes(t *testing.T) {
	svc, _ := newAuthFixture()

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Customer@Example.COM ",
		Password: "hunter22",
		Name:     "Pat",
		Role:     domain.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.User.Email != "customer@example.com" {
		t.Fatalf("email not normalized: %q", result.User.Email)
	}
	if len(result.User.Scopes) == 0 {
		t.Fatal("default scopes not granted at creation")
	}
	if !result.User.IsActive {
		t.Fatal("new accounts should be active")
	}

	identity, err := svc.TokenManager().ParseToken(result.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if len(identity.Scopes) != len(result.User.Scopes) {
		t.Fatal("scopes must travel in the token")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "nope", Password: "hunter22", Name: "Pat", Role: domain.RoleCustomer},
		{Email: "a@b.com", Password: "short", Name: "Pat", Role: domain.RoleCustomer},
		{Email: "a@b.com", Password: "hunter22", Name: " ", Role: domain.RoleCustomer},
		{Email: "a@b.com", Password: "hunter22", Name: "Pat", Role: domain.Role("root")},
	}
	for i, input := range cases {
		if _, err := svc.Register(ctx, input); !apperrors.IsCode(err, "VALIDATION_FAILED") {
			t.Fatalf("case %d: got %v", i, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	input := RegisterInput{Email: "a@b.com", Password: "hunter22", Name: "Pat", Role: domain.RoleCustomer}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, input); !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("duplicate register: got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, users := newAuthFixture()
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "hunter22", Name: "Pat", Role: domain.RoleAgent})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := svc.Login(ctx, "A@B.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.ID != created.User.ID {
		t.Fatal("logged into a different account")
	}

	if _, err := svc.Login(ctx, "a@b.com", "wrong-pass"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@b.com", "hunter22"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Fatalf("unknown email: got %v", err)
	}

	// Deactivated accounts are rejected with the same generic error.
	stored := users.users[created.User.ID]
	stored.IsActive = false
	users.users[created.User.ID] = stored
	if _, err := svc.Login(ctx, "a@b.com", "hunter22"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Fatalf("inactive login: got %v", err)
	}
}

func TestLoginBackfillsLegacyScopes(t *testing.T) {
	svc, users := newAuthFixture()
	ctx := context.Background()

	hash, err := auth.HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	legacy := &domain.User{Email: "legacy@b.com", Name: "Old", PasswordHash: hash, Role: domain.RoleAgent, IsActive: true}
	if err := users.Create(ctx, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := svc.Login(ctx, "legacy@b.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(result.User.Scopes) == 0 {
		t.Fatal("legacy account should be backfilled at login")
	}

	persisted, _ := users.GetByID(ctx, legacy.ID)
	if len(persisted.Scopes) == 0 {
		t.Fatal("backfilled scopes must be persisted, not just tokenized")
	}
}

func TestListUsers(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, _ = svc.Register(ctx, RegisterInput{Email: "a1@b.com", Password: "hunter22", Name: "A1", Role: domain.RoleAgent})
	_, _ = svc.Register(ctx, RegisterInput{Email: "a2@b.com", Password: "hunter22", Name: "A2", Role: domain.RoleAgent})
	_, _ = svc.Register(ctx, RegisterInput{Email: "c1@b.com", Password: "hunter22", Name: "C1", Role: domain.RoleCustomer})

	agents, err := svc.ListUsers(ctx, domain.RoleAgent, 0, 0)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("agents = %d", len(agents))
	}

	if _, err := svc.ListUsers(ctx, domain.Role("root"), 0, 0); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("bad role: got %v", err)
	}
}

func TestGetUserSelfOrAdmin(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	customer, _ := svc.Register(ctx, RegisterInput{Email: "c@b.com", Password: "hunter22", Name: "Cus", Role: domain.RoleCustomer})
	admin, _ := svc.Register(ctx, RegisterInput{Email: "adm@b.com", Password: "hunter22", Name: "Adm", Role: domain.RoleAdmin})

	if _, err := svc.GetUser(ctx, customer.User.Identity(), customer.User.ID); err != nil {
		t.Fatalf("self read: %v", err)
	}
	if _, err := svc.GetUser(ctx, customer.User.Identity(), admin.User.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("cross read: got %v", err)
	}
	if _, err := svc.GetUser(ctx, admin.User.Identity(), customer.User.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := svc.GetUser(ctx, admin.User.Identity(), "ghost"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown id: got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	svc, users := newAuthFixture()
	ctx := context.Background()

	customer, _ := svc.Register(ctx, RegisterInput{Email: "c@b.com", Password: "hunter22", Name: "Cus", Role: domain.RoleCustomer})
	admin, _ := svc.Register(ctx, RegisterInput{Email: "adm@b.com", Password: "hunter22", Name: "Adm", Role: domain.RoleAdmin})

	name := "Renamed"
	updated, err := svc.UpdateUser(ctx, customer.User.Identity(), customer.User.ID, UserUpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("self rename: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("name = %q", updated.Name)
	}
	persisted, _ := users.GetByID(ctx, customer.User.ID)
	if persisted.Name != "Renamed" {
		t.Fatal("rename not persisted")
	}

	blank := "  "
	if _, err := svc.UpdateUser(ctx, customer.User.Identity(), customer.User.ID, UserUpdateInput{Name: &blank}); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("blank name: got %v", err)
	}

	// Only admins may touch other accounts or the active flag.
	inactive := false
	if _, err := svc.UpdateUser(ctx, customer.User.Identity(), admin.User.ID, UserUpdateInput{Name: &name}); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("cross update: got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, customer.User.Identity(), customer.User.ID, UserUpdateInput{IsActive: &inactive}); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("self deactivate: got %v", err)
	}

	deactivated, err := svc.UpdateUser(ctx, admin.User.Identity(), customer.User.ID, UserUpdateInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("admin deactivate: %v", err)
	}
	if deactivated.IsActive {
		t.Fatal("account still active")
	}
	if _, err := svc.Login(ctx, "c@b.com", "hunter22"); !apperrors.IsCode(err, "UNAUTHENTICATED") {
		t.Fatalf("deactivated login: got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	svc, users := newAuthFixture()
	ctx := context.Background()

	customer, _ := svc.Register(ctx, RegisterInput{Email: "c@b.com", Password: "hunter22", Name: "Cus", Role: domain.RoleCustomer})
	admin, _ := svc.Register(ctx, RegisterInput{Email: "adm@b.com", Password: "hunter22", Name: "Adm", Role: domain.RoleAdmin})

	if err := svc.DeleteUser(ctx, admin.User.Identity(), admin.User.ID); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("self delete: got %v", err)
	}
	if err := svc.DeleteUser(ctx, admin.User.Identity(), "ghost"); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown id: got %v", err)
	}
	if err := svc.DeleteUser(ctx, admin.User.Identity(), customer.User.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := users.GetByID(ctx, customer.User.ID); err == nil {
		t.Fatal("account should be gone")
	}
}

func TestMe(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	created, _ := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "hunter22", Name: "Pat", Role: domain.RoleCustomer})

	user, err := svc.Me(ctx, created.User.Identity())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.Email != "a@b.com" {
		t.Fatalf("wrong account: %q", user.Email)
	}

	if _, err := svc.Me(ctx, &domain.Identity{ID: "ghost"}); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown identity: got %v", err)
	}
}
