package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers every failed login: unknown identity, wrong
// password, mismatched Aadhaar/mobile pair. Callers get one error so
// responses cannot leak which half was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrMalformedInput marks login input that fails format validation.
var ErrMalformedInput = errors.New("malformed input")

var (
	aadhaarPattern = regexp.MustCompile(`^\d{12}$`)
	mobilePattern  = regexp.MustCompile(`^\d{10}$`)
)

// Identity is the authenticated principal carried in issued tokens.
type Identity struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Role    string `json:"role"` // "public" | "officer" | "technician"
}

// Service handles the three login flows and token issuance.
type Service struct {
	db        *pgxpool.Pool
	otps      *OTPStore
	jwtSecret []byte
	masterOTP string // development bypass, empty in production
	tokenTTL  time.Duration
	logger    *zap.SugaredLogger
}

// NewService creates the auth service.
func NewService(db *pgxpool.Pool, otps *OTPStore, jwtSecret, masterOTP string, logger *zap.SugaredLogger) *Service {
	return &Service{
		db:        db,
		otps:      otps,
		jwtSecret: []byte(jwtSecret),
		masterOTP: masterOTP,
		tokenTTL:  24 * time.Hour,
		logger:    logger,
	}
}

// SendOTP validates the Aadhaar/mobile pair against the citizen registry
// and issues an OTP for the mobile number. Delivery goes to the SMS
// collaborator; here it is logged.
func (s *Service) SendOTP(ctx context.Context, aadhaar, mobile string) error {
	if !aadhaarPattern.MatchString(aadhaar) {
		return fmt.Errorf("%w: aadhaar must be exactly 12 digits", ErrMalformedInput)
	}
	if !mobilePattern.MatchString(mobile) {
		return fmt.Errorf("%w: mobile must be exactly 10 digits", ErrMalformedInput)
	}

	var name string
	err := s.db.QueryRow(ctx,
		`SELECT name FROM citizens WHERE aadhaar = $1 AND mobile = $2`,
		aadhaar, mobile,
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("citizen lookup: %w", err)
	}

	code, err := s.otps.Issue(ctx, mobile, aadhaar)
	if err != nil {
		return err
	}

	// SMS dispatch is an external collaborator; its failure would be
	// logged there, not surfaced to the citizen.
	s.logger.Infow("OTP issued", "mobile", maskMobile(mobile), "code_length", len(code))
	return nil
}

// VerifyOTP checks the code and returns a signed token for the citizen.
func (s *Service) VerifyOTP(ctx context.Context, mobile, code string) (string, *Identity, error) {
	aadhaar, err := s.otps.Verify(ctx, mobile, code)
	if err != nil {
		if s.masterOTP != "" && code == s.masterOTP {
			// Development bypass when SMS delivery is unavailable.
			err = s.db.QueryRow(ctx,
				`SELECT aadhaar FROM citizens WHERE mobile = $1`, mobile,
			).Scan(&aadhaar)
			if err != nil {
				return "", nil, ErrInvalidCredentials
			}
		} else if errors.Is(err, ErrOTPNotFound) || errors.Is(err, ErrOTPMismatch) {
			return "", nil, ErrInvalidCredentials
		} else {
			return "", nil, err
		}
	}

	var name string
	if err := s.db.QueryRow(ctx,
		`SELECT name FROM citizens WHERE aadhaar = $1`, aadhaar,
	).Scan(&name); err != nil {
		return "", nil, fmt.Errorf("citizen lookup: %w", err)
	}

	identity := &Identity{Subject: aadhaar, Name: name, Role: "public"}
	token, err := s.issueToken(identity)
	if err != nil {
		return "", nil, err
	}
	return token, identity, nil
}

// OfficerLogin authenticates an officer by badge id and password.
func (s *Service) OfficerLogin(ctx context.Context, badgeID, password string) (string, *Identity, error) {
	return s.credentialLogin(ctx,
		`SELECT id, name, password_hash FROM officers WHERE badge_id = $1`,
		badgeID, password, "officer")
}

// TechnicianLogin authenticates a technician by id and password.
func (s *Service) TechnicianLogin(ctx context.Context, techID, password string) (string, *Identity, error) {
	return s.credentialLogin(ctx,
		`SELECT id, name, password_hash FROM technicians WHERE id = $1`,
		techID, password, "technician")
}

func (s *Service) credentialLogin(ctx context.Context, query, loginID, password, role string) (string, *Identity, error) {
	var id, name, passwordHash string
	err := s.db.QueryRow(ctx, query, loginID).Scan(&id, &name, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s lookup: %w", role, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	identity := &Identity{Subject: id, Name: name, Role: role}
	token, err := s.issueToken(identity)
	if err != nil {
		return "", nil, err
	}

	s.logger.Infow("Login", "role", role, "subject", id)
	return token, identity, nil
}

func (s *Service) issueToken(identity *Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  identity.Subject,
		"name": identity.Name,
		"role": identity.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func maskMobile(mobile string) string {
	if len(mobile) < 4 {
		return "****"
	}
	return "******" + mobile[len(mobile)-4:]
}
