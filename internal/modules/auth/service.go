package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"

	"github.com/genlayer-foundation/points/internal/apperror"
	"github.com/genlayer-foundation/points/sdk/points/siwe"
)

// nonceKeyPrefix is the Redis key prefix for issued sign-in nonces.
const nonceKeyPrefix = "siwe_nonce:"

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// nonceLength is the number of characters in an issued nonce.
const nonceLength = 32

// nonceAlphabet matches the characters wallets display in the challenge.
const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// sessionTokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionTokenBytes = 32

// LoginResult carries everything the handler needs after a successful
// login: the session token for the cookie plus the response payload.
type LoginResult struct {
	Token    string
	Response LoginResponse
}

// AuthService defines the business logic contract for wallet authentication.
// Handlers call these methods -- they never touch Redis directly.
type AuthService interface {
	IssueNonce(ctx context.Context) (string, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	ValidateSession(ctx context.Context, token string) (*Session, error)
	RefreshSession(ctx context.Context, token string) error
	DestroySession(ctx context.Context, token string) error
}

// authService implements AuthService with Redis nonces and sessions.
type authService struct {
	accounts   AccountProvider
	redis      *redis.Client
	nonceTTL   time.Duration
	sessionTTL time.Duration
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(accounts AccountProvider, rdb *redis.Client, nonceTTL, sessionTTL time.Duration) AuthService {
	return &authService{
		accounts:   accounts,
		redis:      rdb,
		nonceTTL:   nonceTTL,
		sessionTTL: sessionTTL,
	}
}

// IssueNonce generates a fresh single-use nonce and stores it in Redis
// with the configured TTL. Login consumes it atomically.
func (s *authService) IssueNonce(ctx context.Context) (string, error) {
	nonce, err := randomNonce(nonceLength)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("generating nonce: %w", err))
	}

	key := nonceKeyPrefix + nonce
	if err := s.redis.Set(ctx, key, "1", s.nonceTTL).Err(); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("storing nonce: %w", err))
	}

	return nonce, nil
}

// Login verifies a signed challenge and creates a session. The nonce from
// the message must exist in Redis (unexpired and unused); it is consumed
// atomically with GETDEL so a replayed message fails even under concurrent
// submission. The signer recovered from the signature must match the
// address claimed in the message.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	msg, err := siwe.Parse(req.Message)
	if err != nil {
		return nil, apperror.NewBadRequest("malformed sign-in message")
	}

	if err := s.consumeNonce(ctx, msg.Nonce); err != nil {
		return nil, err
	}

	signer, err := recoverSigner(req.Message, req.Signature)
	if err != nil {
		return nil, apperror.NewSignatureInvalid(err)
	}

	address := strings.ToLower(msg.Address)
	if signer != address {
		return nil, apperror.NewSignatureInvalid(fmt.Errorf("recovered %s, message claims %s", signer, address))
	}

	account, created, err := s.accounts.GetOrCreateByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	res := LoginResponse{
		Authenticated: true,
		Address:       address,
		UserID:        account.ID,
		Created:       created,
		ReferralCode:  account.ReferralCode,
	}

	// Referral redemption is best effort: a bad code must not block login.
	if req.ReferralCode != "" && account.ReferredBy == nil {
		referrer, err := s.accounts.ApplyReferral(ctx, account.ID, req.ReferralCode)
		if err != nil {
			slog.Warn("referral code not applied",
				slog.Uint64("user_id", uint64(account.ID)),
				slog.Any("error", err),
			)
		} else {
			res.ReferredBy = referrer
		}
	}

	token, err := s.createSession(ctx, account.ID, address)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	slog.Info("wallet login",
		slog.Uint64("user_id", uint64(account.ID)),
		slog.String("address", address),
		slog.Bool("created", created),
	)

	return &LoginResult{Token: token, Response: res}, nil
}

// ValidateSession looks up a session token in Redis and returns the session
// data if it exists and hasn't expired.
func (s *authService) ValidateSession(ctx context.Context, token string) (*Session, error) {
	key := sessionKeyPrefix + token

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}

	return &session, nil
}

// RefreshSession resets the session TTL to the full configured duration.
// Returns an unauthorized error if the session no longer exists.
func (s *authService) RefreshSession(ctx context.Context, token string) error {
	key := sessionKeyPrefix + token

	ok, err := s.redis.Expire(ctx, key, s.sessionTTL).Result()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("refreshing session: %w", err))
	}
	if !ok {
		return apperror.NewUnauthorized("session expired or invalid")
	}
	return nil
}

// DestroySession removes a session from Redis, effectively logging the user
// out. Destroying an absent session is not an error.
func (s *authService) DestroySession(ctx context.Context, token string) error {
	key := sessionKeyPrefix + token

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting session from Redis: %w", err))
	}

	return nil
}

// consumeNonce atomically reads and deletes a nonce. Missing means
// expired, already used, or never issued; all three get the same error.
func (s *authService) consumeNonce(ctx context.Context, nonce string) error {
	if nonce == "" {
		return apperror.NewNonceExpired()
	}

	key := nonceKeyPrefix + nonce
	if err := s.redis.GetDel(ctx, key).Err(); err != nil {
		if err == redis.Nil {
			return apperror.NewNonceExpired()
		}
		return apperror.NewInternal(fmt.Errorf("consuming nonce: %w", err))
	}
	return nil
}

// createSession generates a random session token, stores the session data in
// Redis with the configured TTL, and returns the token.
func (s *authService) createSession(ctx context.Context, userID uint, address string) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	session := Session{
		UserID:    userID,
		Address:   address,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	key := sessionKeyPrefix + token
	if err := s.redis.Set(ctx, key, data, s.sessionTTL).Err(); err != nil {
		return "", fmt.Errorf("storing session in Redis: %w", err)
	}

	return token, nil
}

// --- Signature recovery ---

// recoverSigner returns the lowercase address that produced a
// personal_sign signature over message. Wallets prepend the standard
// Ethereum signed-message prefix before hashing, so verification must do
// the same.
func recoverSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature length %d, want 65", len(sig))
	}

	// Wallets emit V as 27/28; secp256k1 recovery wants 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("recovering public key: %w", err)
	}

	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// --- Helpers ---

// randomNonce returns n random characters from the nonce alphabet.
func randomNonce(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = nonceAlphabet[int(v)%len(nonceAlphabet)]
	}
	return string(out), nil
}

// generateSessionToken creates a cryptographically random hex-encoded token.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
