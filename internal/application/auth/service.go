package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/homehive/homehive-api/internal/domain"
	"github.com/homehive/homehive-api/internal/pkg/id"
	"github.com/homehive/homehive-api/internal/pkg/phone"
	"github.com/homehive/homehive-api/internal/pkg/vtoken"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL is the verification token's validity window. Independent from the
// 3-minute code TTL: a user can burn through several resent codes under one
// token.
const tokenTTL = 10 * time.Minute

// DynamoDB attribute names used in partial update maps.
const (
	fieldEmailVerifiedAt = "email_verified_at"
	fieldPhoneVerifiedAt = "phone_verified_at"
)

type LoginRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password" validate:"required"`
	Remember bool    `json:"remember"`
}

type RegisterRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Role      string  `json:"role" validate:"required"`
}

type VerifyRequest struct {
	UserID            string `json:"user_id"`
	Code              string `json:"code" validate:"required"`
	VerificationToken string `json:"verification_token"`
}

// Challenge is the pending-verification half of a login or registration
// response. The token is the only place this step's state lives; there is no
// session row behind it.
type Challenge struct {
	VerificationToken string
	Method            domain.Method
	MaskedIdentifier  string
}

type LoginResult struct {
	AccessToken string
	User        *domain.User
	Challenge   *Challenge // non-nil means an OTP round-trip is required
}

type VerifyResult struct {
	AccessToken string
	User        *domain.User
	Redirect    Redirect
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Register(ctx context.Context, req RegisterRequest) (*domain.User, *Challenge, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	Resend(ctx context.Context, verificationToken string) (*Challenge, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type otpManager interface {
	Issue(ctx context.Context, method domain.Method, identifier, roleHint string) (*domain.OneTimeCode, error)
	Validate(ctx context.Context, method domain.Method, identifier, code string) (*domain.OneTimeCode, error)
	MarkVerified(ctx context.Context, method domain.Method, otp *domain.OneTimeCode) error
}

type tokenIssuer interface {
	Sign(userID, role string) (string, error)
}

type notifier interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type service struct {
	users           userStore
	otps            otpManager
	codec           *vtoken.Codec
	tokens          tokenIssuer
	notifications   notifier
	syntheticDomain string
}

type ServiceDeps struct {
	UserRepo         userStore
	OTPManager       otpManager
	Codec            *vtoken.Codec
	TokenIssuer      tokenIssuer
	NotificationRepo notifier
	SyntheticDomain  string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:           deps.UserRepo,
		otps:            deps.OTPManager,
		codec:           deps.Codec,
		tokens:          deps.TokenIssuer,
		notifications:   deps.NotificationRepo,
		syntheticDomain: deps.SyntheticDomain,
	}
}

// Login authenticates the password and either hands back an access token
// directly (channel already verified) or starts an OTP challenge.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, method, err := s.resolveAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}

	// Verification flags may have changed in another request between lookup
	// and here; decide on a fresh read, not the copy used for the password.
	u, err = s.users.Get(ctx, u.UserID)
	if err != nil {
		return nil, err
	}

	verified := u.EmailVerified()
	if method == domain.MethodPhone {
		verified = u.PhoneVerified()
	}
	if verified {
		access, err := s.tokens.Sign(u.UserID, u.Role)
		if err != nil {
			return nil, err
		}
		return &LoginResult{AccessToken: access, User: u}, nil
	}

	ch, err := s.challenge(ctx, u, req.Remember)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Challenge: ch}, nil
}

// Register creates the account and immediately starts the same challenge
// sequence Login uses. Phone-only signups get a synthetic placeholder email.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*domain.User, *Challenge, error) {
	if !domain.ValidSignupRole(req.Role) {
		return nil, nil, fmt.Errorf("invalid role %q: %w", req.Role, domain.ErrBadRequest)
	}
	if req.Email == nil && req.Phone == nil {
		return nil, nil, fmt.Errorf("email or phone required: %w", domain.ErrBadRequest)
	}

	var phoneNum *string
	if req.Phone != nil {
		n := phone.Normalize(*req.Phone)
		if n == "" {
			return nil, nil, fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
		}
		phoneNum = &n
	}
	email := ""
	if req.Email != nil {
		email = *req.Email
	} else {
		email = phone.SyntheticEmail(*phoneNum, s.syntheticDomain)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if phoneNum != nil {
		if _, err := s.users.GetByPhone(ctx, *phoneNum); err == nil {
			return nil, nil, fmt.Errorf("phone already registered: %w", domain.ErrConflict)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		Phone:        phoneNum,
		PasswordHash: string(hash),
		Role:         req.Role,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, nil, err
	}

	ch, err := s.challenge(ctx, u, false)
	if err != nil {
		return nil, nil, err
	}
	return u, ch, nil
}

// Verify consumes a submitted code against the context carried in the
// verification token. The token is checked before the code store is touched.
func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	p, err := s.decodeToken(req.VerificationToken)
	if err != nil {
		return nil, err
	}
	if req.UserID != "" && req.UserID != p.UserID {
		return nil, fmt.Errorf("token issued for another account: %w", domain.ErrTokenInvalid)
	}
	u, err := s.users.Get(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", p.UserID, domain.ErrUserNotFound)
	}

	row, err := s.otps.Validate(ctx, p.Method, p.Identifier, req.Code)
	if err != nil {
		return nil, err
	}
	if err := s.otps.MarkVerified(ctx, p.Method, row); err != nil {
		return nil, err
	}

	first := !u.EmailVerified() && !u.PhoneVerified()
	now := time.Now().UTC()
	switch p.Method {
	case domain.MethodEmail:
		if !u.EmailVerified() {
			if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldEmailVerifiedAt: now.Format(time.RFC3339)}); err != nil {
				return nil, err
			}
			u.EmailVerifiedAt = &now
		}
	case domain.MethodPhone:
		if !u.PhoneVerified() {
			if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldPhoneVerifiedAt: now.Format(time.RFC3339)}); err != nil {
				return nil, err
			}
			u.PhoneVerifiedAt = &now
		}
	}

	access, err := s.tokens.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	if first {
		// Completion of registration in the unified flow; failure must not
		// fail the verification.
		s.welcome(ctx, u)
	}
	return &VerifyResult{AccessToken: access, User: u, Redirect: RedirectFor(u.Role)}, nil
}

// Resend re-issues a code for the context in the existing token. The token
// itself is echoed back unchanged: it is still within its window, and codes
// and tokens expire independently.
func (s *service) Resend(ctx context.Context, verificationToken string) (*Challenge, error) {
	p, err := s.decodeToken(verificationToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", p.UserID, domain.ErrUserNotFound)
	}
	if _, err := s.otps.Issue(ctx, p.Method, p.Identifier, u.Role); err != nil {
		return nil, err
	}
	return &Challenge{
		VerificationToken: verificationToken,
		Method:            p.Method,
		MaskedIdentifier:  maskIdentifier(p.Method, p.Identifier),
	}, nil
}

// resolveAccount finds the user by whichever identifier field was filled.
// Lookup failure and a later password mismatch produce the same generic
// error; callers cannot probe which identifiers exist.
func (s *service) resolveAccount(ctx context.Context, req LoginRequest) (*domain.User, domain.Method, error) {
	switch {
	case req.Email != nil && *req.Email != "":
		u, err := s.users.GetByEmail(ctx, *req.Email)
		if err != nil {
			return nil, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return u, domain.MethodEmail, nil
	case req.Phone != nil && *req.Phone != "":
		u, err := s.users.GetByPhone(ctx, phone.Normalize(*req.Phone))
		if err != nil {
			return nil, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return u, domain.MethodPhone, nil
	}
	return nil, "", fmt.Errorf("email or phone required: %w", domain.ErrBadRequest)
}

// challenge runs channel selection, issues a code, and seals the context
// into a fresh verification token.
func (s *service) challenge(ctx context.Context, u *domain.User, remember bool) (*Challenge, error) {
	method, identifier, err := s.selectChannel(u)
	if err != nil {
		return nil, err
	}
	if _, err := s.otps.Issue(ctx, method, identifier, u.Role); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	token, err := s.codec.Encode(vtoken.Payload{
		UserID:     u.UserID,
		Method:     method,
		Identifier: identifier,
		Remember:   remember,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(tokenTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode verification token: %w", err)
	}
	return &Challenge{
		VerificationToken: token,
		Method:            method,
		MaskedIdentifier:  maskIdentifier(method, identifier),
	}, nil
}

// selectChannel picks the delivery channel for an unverified account:
// a real email wins, then a phone number; a synthetic placeholder email is
// not deliverable and never selected.
func (s *service) selectChannel(u *domain.User) (domain.Method, string, error) {
	if u.Email != "" && !phone.IsSyntheticEmail(u.Email, s.syntheticDomain) {
		return domain.MethodEmail, u.Email, nil
	}
	if u.Phone != nil && *u.Phone != "" {
		return domain.MethodPhone, phone.Normalize(*u.Phone), nil
	}
	return "", "", fmt.Errorf("account %s has no reachable channel: %w", u.UserID, domain.ErrNoChannel)
}

func (s *service) decodeToken(raw string) (*vtoken.Payload, error) {
	if raw == "" {
		return nil, fmt.Errorf("no verification token supplied: %w", domain.ErrSessionInvalid)
	}
	p, err := s.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode verification token: %w", domain.ErrTokenInvalid)
	}
	if p.Expired(time.Now()) {
		return nil, fmt.Errorf("verification window closed: %w", domain.ErrTokenExpired)
	}
	return p, nil
}

func (s *service) welcome(ctx context.Context, u *domain.User) {
	if s.notifications == nil {
		return
	}
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         u.UserID,
		Message:        "Welcome to HomeHive! Your account is now verified.",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.notifications.Put(ctx, n); err != nil {
		slog.Warn("could not store welcome notification", "user_id", u.UserID, "err", err)
	}
}

// maskIdentifier hides phone numbers for display; emails are shown as-is.
func maskIdentifier(method domain.Method, identifier string) string {
	if method == domain.MethodPhone {
		return phone.Mask(identifier)
	}
	return identifier
}
