// Package auth implements citizen OTP login and officer/technician
// credential login, issuing JWTs consumed by the API middleware.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrOTPNotFound is returned when no OTP is pending for the mobile number
// (never issued, expired, or already consumed).
var ErrOTPNotFound = errors.New("no pending otp")

// ErrOTPMismatch is returned when the supplied code is wrong.
var ErrOTPMismatch = errors.New("otp does not match")

// otpRecord is the value stored per pending login.
type otpRecord struct {
	Code    string `json:"code"`
	Aadhaar string `json:"aadhaar"`
}

// OTPStore keeps pending login OTPs in redis with TTL eviction. It replaces
// the process-global map the platform started with: restarts don't strand
// logins, and multiple server instances share one store.
type OTPStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOTPStore creates an OTP store with the given time-to-live.
func NewOTPStore(rdb *redis.Client, ttl time.Duration) *OTPStore {
	return &OTPStore{rdb: rdb, ttl: ttl}
}

func otpKey(mobile string) string {
	return "otp:" + mobile
}

// Issue generates a six-digit OTP for the mobile number and stores it,
// replacing any previous pending OTP. Returns the code for the SMS
// collaborator to deliver.
func (s *OTPStore) Issue(ctx context.Context, mobile, aadhaar string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	payload, err := json.Marshal(otpRecord{Code: code, Aadhaar: aadhaar})
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, otpKey(mobile), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify checks the code for the mobile number. A successful verification
// consumes the OTP and returns the Aadhaar it was issued for.
func (s *OTPStore) Verify(ctx context.Context, mobile, code string) (string, error) {
	payload, err := s.rdb.Get(ctx, otpKey(mobile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", ErrOTPNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load otp: %w", err)
	}

	var rec otpRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return "", fmt.Errorf("decode otp record: %w", err)
	}
	if rec.Code != code {
		return "", ErrOTPMismatch
	}

	// Consumed: one successful login per issued code.
	_ = s.rdb.Del(ctx, otpKey(mobile)).Err()
	return rec.Aadhaar, nil
}

// generateCode returns a uniformly random six-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
