package users

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/genlayer-foundation/points/internal/apperror"
	"github.com/genlayer-foundation/points/internal/sanitize"
)

// referralCodeLength is the length of generated referral codes.
const referralCodeLength = 8

// referralCodeAlphabet is the character set for referral codes. Uppercase
// letters and digits only, so codes survive being read aloud or typed.
const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// usernamePattern restricts usernames to a URL-safe shape.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,150}$`)

// UserService defines the business logic contract for participant accounts.
// Handlers call these methods -- they never touch the repository directly.
type UserService interface {
	GetOrCreateByAddress(ctx context.Context, address string) (user *User, created bool, err error)
	ApplyReferral(ctx context.Context, userID uint, code string) (referrer *User, err error)
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByAddress(ctx context.Context, address string) (*User, error)
	UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*User, error)
	ListValidators(ctx context.Context) ([]Validator, error)
}

// userService implements UserService.
type userService struct {
	repo UserRepository
}

// NewUserService creates a new user service with the given repository.
func NewUserService(repo UserRepository) UserService {
	return &userService{repo: repo}
}

// GetOrCreateByAddress finds the account for a wallet address, creating it
// on first sign-in. New accounts get address-derived placeholder profile
// fields and a fresh referral code. The address must already be lowercase
// hex with the 0x prefix.
func (s *userService) GetOrCreateByAddress(ctx context.Context, address string) (*User, bool, error) {
	user, err := s.repo.FindByAddress(ctx, address)
	if err == nil {
		return user, false, nil
	}
	if apperror.SafeCode(err) != 404 {
		return nil, false, apperror.NewInternal(fmt.Errorf("finding user by address: %w", err))
	}

	code, err := s.generateReferralCode(ctx)
	if err != nil {
		return nil, false, apperror.NewInternal(fmt.Errorf("generating referral code: %w", err))
	}

	user = &User{
		Address:      address,
		Username:     address[:10],
		Name:         "Ethereum User " + address[:6],
		Email:        address[2:10] + "@ethereum.address",
		Visible:      true,
		ReferralCode: code,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// A concurrent first login for the same address may have won the
		// insert race. Fall back to the existing row.
		if existing, findErr := s.repo.FindByAddress(ctx, address); findErr == nil {
			return existing, false, nil
		}
		return nil, false, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user created",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("address", user.Address),
	)

	return user, true, nil
}

// ApplyReferral redeems a referral code for a user. It is a one-shot
// operation: users who already have a referrer keep it, and self-referral
// is rejected. Unknown codes return a validation error so the caller can
// decide whether to surface or swallow it.
func (s *userService) ApplyReferral(ctx context.Context, userID uint, code string) (*User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperror.NewValidation("referral code is required")
	}

	referrer, err := s.repo.FindByReferralCode(ctx, code)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewValidation("unknown referral code")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding referrer: %w", err))
	}
	if referrer.ID == userID {
		return nil, apperror.NewValidation("cannot redeem your own referral code")
	}

	if err := s.repo.SetReferredBy(ctx, userID, referrer.ID); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("recording referral: %w", err))
	}

	slog.Info("referral applied",
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("referrer_id", uint64(referrer.ID)),
	)

	return referrer, nil
}

// GetByID returns a user by primary key.
func (s *userService) GetByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByAddress returns a user by lowercase wallet address.
func (s *userService) GetByAddress(ctx context.Context, address string) (*User, error) {
	return s.repo.FindByAddress(ctx, strings.ToLower(address))
}

// UpdateProfile applies the non-nil fields of req to the user's profile.
func (s *userService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !usernamePattern.MatchString(username) {
			return nil, apperror.NewValidation("username must be 3-150 characters: letters, digits, dot, dash, underscore")
		}
		if username != user.Username {
			taken, err := s.repo.UsernameExists(ctx, username)
			if err != nil {
				return nil, apperror.NewInternal(fmt.Errorf("checking username: %w", err))
			}
			if taken {
				return nil, apperror.NewConflict("username is already taken")
			}
			user.Username = username
		}
	}
	if req.Name != nil {
		name := sanitize.Text(*req.Name)
		if len(name) > 255 {
			return nil, apperror.NewValidation("name must be at most 255 characters")
		}
		user.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" && !strings.Contains(email, "@") {
			return nil, apperror.NewValidation("invalid email address")
		}
		user.Email = email
	}
	if req.Visible != nil {
		user.Visible = *req.Visible
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating profile: %w", err))
	}

	return user, nil
}

// ListValidators returns all validator records.
func (s *userService) ListValidators(ctx context.Context) ([]Validator, error) {
	validators, err := s.repo.ListValidators(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return validators, nil
}

// generateReferralCode produces an unused 8-character code. Collisions are
// retried a bounded number of times; with a 36^8 space they are rare
// enough that exhausting the retries means something is broken.
func (s *userService) generateReferralCode(ctx context.Context) (string, error) {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomCode(referralCodeLength)
		if err != nil {
			return "", err
		}
		exists, err := s.repo.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no unused referral code after %d attempts", maxAttempts)
}

// randomCode returns n random characters from the referral alphabet.
func randomCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = referralCodeAlphabet[int(v)%len(referralCodeAlphabet)]
	}
	return string(out), nil
}
