package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/genlayer-foundation/points/internal/apperror"
)

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn             func(ctx context.Context, user *User) error
	findByIDFn           func(ctx context.Context, id uint) (*User, error)
	findByAddressFn      func(ctx context.Context, address string) (*User, error)
	findByReferralCodeFn func(ctx context.Context, code string) (*User, error)
	usernameExistsFn     func(ctx context.Context, username string) (bool, error)
	referralCodeExistsFn func(ctx context.Context, code string) (bool, error)
	setReferredByFn      func(ctx context.Context, userID, referrerID uint) error
	updateProfileFn      func(ctx context.Context, user *User) error
	listValidatorsFn     func(ctx context.Context) ([]Validator, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByAddress(ctx context.Context, address string) (*User, error) {
	if m.findByAddressFn != nil {
		return m.findByAddressFn(ctx, address)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByReferralCode(ctx context.Context, code string) (*User, error) {
	if m.findByReferralCodeFn != nil {
		return m.findByReferralCodeFn(ctx, code)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	if m.referralCodeExistsFn != nil {
		return m.referralCodeExistsFn(ctx, code)
	}
	return false, nil
}

func (m *mockUserRepo) SetReferredBy(ctx context.Context, userID, referrerID uint) error {
	if m.setReferredByFn != nil {
		return m.setReferredByFn(ctx, userID, referrerID)
	}
	return errors.New("not implemented")
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *User) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockUserRepo) ListValidators(ctx context.Context) ([]Validator, error) {
	if m.listValidatorsFn != nil {
		return m.listValidatorsFn(ctx)
	}
	return nil, errors.New("not implemented")
}

const testAddress = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

// --- GetOrCreateByAddress ---

func TestGetOrCreateReturnsExistingUser(t *testing.T) {
	existing := &User{ID: 7, Address: testAddress}
	repo := &mockUserRepo{
		findByAddressFn: func(ctx context.Context, address string) (*User, error) {
			return existing, nil
		},
	}
	svc := NewUserService(repo)

	user, created, err := svc.GetOrCreateByAddress(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("GetOrCreateByAddress: %v", err)
	}
	if created {
		t.Error("existing user reported as created")
	}
	if user.ID != 7 {
		t.Errorf("user = %+v", user)
	}
}

func TestGetOrCreateCreatesWithPlaceholders(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			user.ID = 1
			created = user
			return nil
		},
	}
	svc := NewUserService(repo)

	user, isNew, err := svc.GetOrCreateByAddress(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("GetOrCreateByAddress: %v", err)
	}
	if !isNew {
		t.Error("new user not reported as created")
	}
	if created == nil {
		t.Fatal("Create not called")
	}
	if user.Username != testAddress[:10] {
		t.Errorf("placeholder username = %q", user.Username)
	}
	if !strings.HasPrefix(user.Name, "Ethereum User ") {
		t.Errorf("placeholder name = %q", user.Name)
	}
	if len(user.ReferralCode) != referralCodeLength {
		t.Errorf("referral code = %q, want %d characters", user.ReferralCode, referralCodeLength)
	}
	for _, ch := range user.ReferralCode {
		if !strings.ContainsRune(referralCodeAlphabet, ch) {
			t.Errorf("referral code %q contains %q outside the alphabet", user.ReferralCode, ch)
		}
	}
	if !user.Visible {
		t.Error("new users should default to visible")
	}
}

func TestGetOrCreateInsertRaceFallsBackToExisting(t *testing.T) {
	winner := &User{ID: 3, Address: testAddress}
	calls := 0
	repo := &mockUserRepo{
		findByAddressFn: func(ctx context.Context, address string) (*User, error) {
			calls++
			// First lookup misses; after the failed insert the
			// concurrent winner's row is visible.
			if calls == 1 {
				return nil, apperror.NewNotFound("user not found")
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, user *User) error {
			return errors.New("Error 1062: Duplicate entry")
		},
	}
	svc := NewUserService(repo)

	user, created, err := svc.GetOrCreateByAddress(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("GetOrCreateByAddress: %v", err)
	}
	if created {
		t.Error("race loser must not report created")
	}
	if user.ID != 3 {
		t.Errorf("user = %+v, want the race winner's row", user)
	}
}

// --- ApplyReferral ---

func TestApplyReferral(t *testing.T) {
	var referredUser, referrerID uint
	repo := &mockUserRepo{
		findByReferralCodeFn: func(ctx context.Context, code string) (*User, error) {
			if code != "ABCD1234" {
				t.Errorf("code = %q, want normalized uppercase", code)
			}
			return &User{ID: 9, ReferralCode: code}, nil
		},
		setReferredByFn: func(ctx context.Context, userID, refID uint) error {
			referredUser, referrerID = userID, refID
			return nil
		},
	}
	svc := NewUserService(repo)

	referrer, err := svc.ApplyReferral(context.Background(), 5, " abcd1234 ")
	if err != nil {
		t.Fatalf("ApplyReferral: %v", err)
	}
	if referrer.ID != 9 {
		t.Errorf("referrer = %+v", referrer)
	}
	if referredUser != 5 || referrerID != 9 {
		t.Errorf("recorded referral %d -> %d", referredUser, referrerID)
	}
}

func TestApplyReferralRejectsSelfReferral(t *testing.T) {
	repo := &mockUserRepo{
		findByReferralCodeFn: func(ctx context.Context, code string) (*User, error) {
			return &User{ID: 5}, nil
		},
	}
	svc := NewUserService(repo)

	_, err := svc.ApplyReferral(context.Background(), 5, "OWNCODE1")
	if apperror.SafeCode(err) != 422 {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestApplyReferralUnknownCode(t *testing.T) {
	svc := NewUserService(&mockUserRepo{})

	_, err := svc.ApplyReferral(context.Background(), 5, "NOPE0000")
	if apperror.SafeCode(err) != 422 {
		t.Errorf("expected validation error, got %v", err)
	}
}

// --- UpdateProfile ---

func profileRepo(t *testing.T, current *User) *mockUserRepo {
	t.Helper()
	return &mockUserRepo{
		findByIDFn: func(ctx context.Context, id uint) (*User, error) {
			u := *current
			return &u, nil
		},
		updateProfileFn: func(ctx context.Context, user *User) error {
			return nil
		},
	}
}

func strPtr(s string) *string { return &s }

func TestUpdateProfileAppliesFields(t *testing.T) {
	repo := profileRepo(t, &User{ID: 1, Username: "old", Visible: true})
	svc := NewUserService(repo)

	visible := false
	user, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{
		Username: strPtr("new_name"),
		Name:     strPtr("  Alice  "),
		Email:    strPtr("Alice@Example.COM"),
		Visible:  &visible,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.Username != "new_name" {
		t.Errorf("username = %q", user.Username)
	}
	if user.Name != "Alice" {
		t.Errorf("name = %q, want trimmed", user.Name)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.Visible {
		t.Error("visible not applied")
	}
}

func TestUpdateProfileRejectsBadUsernames(t *testing.T) {
	repo := profileRepo(t, &User{ID: 1, Username: "old"})
	svc := NewUserService(repo)

	for _, username := range []string{"ab", "has space", "bad/slash", strings.Repeat("x", 151)} {
		_, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{
			Username: strPtr(username),
		})
		if apperror.SafeCode(err) != 422 {
			t.Errorf("username %q: expected validation error, got %v", username, err)
		}
	}
}

func TestUpdateProfileUsernameTaken(t *testing.T) {
	repo := profileRepo(t, &User{ID: 1, Username: "old"})
	repo.usernameExistsFn = func(ctx context.Context, username string) (bool, error) {
		return true, nil
	}
	svc := NewUserService(repo)

	_, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{
		Username: strPtr("taken"),
	})
	if apperror.SafeCode(err) != 409 {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpdateProfileKeepingOwnUsernameSkipsTakenCheck(t *testing.T) {
	repo := profileRepo(t, &User{ID: 1, Username: "same"})
	repo.usernameExistsFn = func(ctx context.Context, username string) (bool, error) {
		t.Error("uniqueness check must be skipped for an unchanged username")
		return true, nil
	}
	svc := NewUserService(repo)

	if _, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{
		Username: strPtr("same"),
	}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
}

func TestUpdateProfileRejectsBadEmail(t *testing.T) {
	repo := profileRepo(t, &User{ID: 1, Username: "old"})
	svc := NewUserService(repo)

	_, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileRequest{
		Email: strPtr("not-an-email"),
	})
	if apperror.SafeCode(err) != 422 {
		t.Errorf("expected validation error, got %v", err)
	}
}
