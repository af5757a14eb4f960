package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/homehive/homehive-api/internal/application/auth"
	"github.com/homehive/homehive-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error) {
	args := m.Called(ctx, req)
	if res, _ := args.Get(0).(*auth.LoginResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Register(ctx context.Context, req auth.RegisterRequest) (*domain.User, *auth.Challenge, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*domain.User)
	ch, _ := args.Get(1).(*auth.Challenge)
	return u, ch, args.Error(2)
}

func (m *mockAuthSvc) Verify(ctx context.Context, req auth.VerifyRequest) (*auth.VerifyResult, error) {
	args := m.Called(ctx, req)
	if res, _ := args.Get(0).(*auth.VerifyResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Resend(ctx context.Context, token string) (*auth.Challenge, error) {
	args := m.Called(ctx, token)
	if ch, _ := args.Get(0).(*auth.Challenge); ch != nil {
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func strPtr(s string) *string { return &s }

func postJSON(t *testing.T, target string, v interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
}

// --- Login tests ---

func TestLogin_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/login", auth.LoginRequest{Email: strPtr("a@example.com"), Password: "wrong"})
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var resp MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "invalid credentials", resp.Error)
}

func TestLogin_Direct(t *testing.T) {
	svc := &mockAuthSvc{}
	u := &domain.User{UserID: "u1", Email: "a@example.com", Role: domain.RoleSeeker}
	svc.On("Login", mock.Anything, mock.Anything).Return(&auth.LoginResult{AccessToken: "access-jwt", User: u}, nil)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/login", auth.LoginRequest{Email: strPtr("a@example.com"), Password: "pw"})
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access-jwt", resp.Bearer)
	assert.Equal(t, "u1", resp.User.UserID)
	svc.AssertExpectations(t)
}

func TestLogin_Challenge(t *testing.T) {
	svc := &mockAuthSvc{}
	ch := &auth.Challenge{VerificationToken: "vt", Method: domain.MethodPhone, MaskedIdentifier: "03*******67"}
	svc.On("Login", mock.Anything, mock.Anything).Return(&auth.LoginResult{Challenge: ch}, nil)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/login", auth.LoginRequest{Phone: strPtr("03001234567"), Password: "pw"})
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp ChallengeEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "vt", resp.VerificationToken)
	assert.Equal(t, "phone", resp.Method)
	assert.Equal(t, "03*******67", resp.MaskedIdentifier)
}

// --- Verify tests ---

func TestVerify_TagMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		tag  string
	}{
		{"expired token", domain.ErrTokenExpired, "token_expired"},
		{"garbage token", domain.ErrTokenInvalid, "invalid_token"},
		{"missing token", domain.ErrSessionInvalid, "invalid_session"},
		{"deleted account", domain.ErrUserNotFound, "user_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthSvc{}
			svc.On("Verify", mock.Anything, mock.Anything).Return(nil, tc.err)
			h := NewAuthHandler(svc)

			r := postJSON(t, "/v1/auth/verify", auth.VerifyRequest{Code: "123456", VerificationToken: "vt"})
			rr := httptest.NewRecorder()
			h.Verify(rr, r)

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			var resp VerifyErrorEnvelope
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tc.tag, resp.Error)
			assert.Equal(t, "please login again", resp.Message)
		})
	}
}

func TestVerify_WrongCodeGoesUnderOTPKey(t *testing.T) {
	for _, err := range []error{domain.ErrOTPNotFound, domain.ErrOTPExpired} {
		svc := &mockAuthSvc{}
		svc.On("Verify", mock.Anything, mock.Anything).Return(nil, err)
		h := NewAuthHandler(svc)

		r := postJSON(t, "/v1/auth/verify", auth.VerifyRequest{Code: "000000", VerificationToken: "vt"})
		rr := httptest.NewRecorder()
		h.Verify(rr, r)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		var resp VerifyErrorEnvelope
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Empty(t, resp.Error)
		assert.Equal(t, "invalid or expired code", resp.Errors["otp"])
	}
}

func TestVerify_HappyPath(t *testing.T) {
	svc := &mockAuthSvc{}
	u := &domain.User{UserID: "u1", Role: domain.RoleHelper}
	res := &auth.VerifyResult{AccessToken: "access-jwt", User: u, Redirect: auth.RedirectFor(domain.RoleHelper)}
	svc.On("Verify", mock.Anything, mock.Anything).Return(res, nil)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/verify", auth.VerifyRequest{Code: "123456", VerificationToken: "vt"})
	rr := httptest.NewRecorder()
	h.Verify(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access-jwt", resp.Bearer)
	require.NotNil(t, resp.Redirect)
	assert.Equal(t, auth.TargetHelperOnboarding, resp.Redirect.Target)
}

func TestVerify_MissingCode(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{})

	r := postJSON(t, "/v1/auth/verify", auth.VerifyRequest{VerificationToken: "vt"})
	rr := httptest.NewRecorder()
	h.Verify(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Resend tests ---

func TestResend_HappyPath(t *testing.T) {
	svc := &mockAuthSvc{}
	ch := &auth.Challenge{VerificationToken: "vt", Method: domain.MethodEmail, MaskedIdentifier: "a@example.com"}
	svc.On("Resend", mock.Anything, "vt").Return(ch, nil)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/resend", map[string]string{"verification_token": "vt"})
	rr := httptest.NewRecorder()
	h.Resend(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp ChallengeEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Message, "a@example.com")
	assert.Equal(t, "vt", resp.VerificationToken)
	assert.Equal(t, string(domain.MethodEmail), resp.Method)
}

func TestResend_MissingToken(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Resend", mock.Anything, "").Return(nil, domain.ErrSessionInvalid)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/resend", map[string]string{})
	rr := httptest.NewRecorder()
	h.Resend(rr, r)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var resp VerifyErrorEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "invalid_session", resp.Error)
}

// --- Register tests ---

func TestRegister_Conflict(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, nil, domain.ErrConflict)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/register", auth.RegisterRequest{
		FirstName: "Ana", LastName: "Reyes", Email: strPtr("a@example.com"),
		Password: "sup3r-secret", Role: domain.RoleSeeker,
	})
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegister_HappyPath(t *testing.T) {
	svc := &mockAuthSvc{}
	u := &domain.User{UserID: "u1", Email: "a@example.com", Role: domain.RoleSeeker}
	ch := &auth.Challenge{VerificationToken: "vt", Method: domain.MethodEmail, MaskedIdentifier: "a@example.com"}
	svc.On("Register", mock.Anything, mock.Anything).Return(u, ch, nil)
	h := NewAuthHandler(svc)

	r := postJSON(t, "/v1/auth/register", auth.RegisterRequest{
		FirstName: "Ana", LastName: "Reyes", Email: strPtr("a@example.com"),
		Password: "sup3r-secret", Role: domain.RoleSeeker,
	})
	rr := httptest.NewRecorder()
	h.Register(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp ChallengeEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "vt", resp.VerificationToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u1", resp.User.UserID)
}
