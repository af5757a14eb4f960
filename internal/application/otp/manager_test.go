package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/homehive/homehive-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Replace(ctx context.Context, otp *domain.OneTimeCode) error {
	return m.Called(ctx, otp).Error(0)
}
func (m *mockStore) NewestUnverified(ctx context.Context, identifier, code string) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, identifier, code)
	if v, _ := args.Get(0).(*domain.OneTimeCode); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) MarkVerified(ctx context.Context, identifier, otpID string, at time.Time) error {
	return m.Called(ctx, identifier, otpID, at).Error(0)
}
func (m *mockStore) Cleanup(ctx context.Context, now time.Time, retention time.Duration) error {
	return m.Called(ctx, now, retention).Error(0)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, identifier, code, roleHint string) error {
	return m.Called(ctx, identifier, code, roleHint).Error(0)
}

func newManager(store *mockStore, sender *mockSender) *Manager {
	// Same backing mocks on both channels keeps the tests channel-agnostic.
	return NewManager(store, store, sender, sender)
}

// --- Issue ---

func TestIssue_ReplacesAndDelivers(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}

	var issued *domain.OneTimeCode
	store.On("Cleanup", mock.Anything, mock.Anything, verifiedRetention).Return(nil)
	store.On("Replace", mock.Anything, mock.AnythingOfType("*domain.OneTimeCode")).Run(func(args mock.Arguments) {
		issued = args.Get(1).(*domain.OneTimeCode)
	}).Return(nil)
	sender.On("Send", mock.Anything, "03001234567", mock.Anything, domain.RoleHelper).Return(nil)

	m := newManager(store, sender)
	otp, err := m.Issue(context.Background(), domain.MethodPhone, "03001234567", domain.RoleHelper)

	require.NoError(t, err)
	require.NotNil(t, issued)
	assert.Equal(t, issued, otp)
	assert.Equal(t, "03001234567", otp.ChannelIdentifier)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), otp.Code)
	assert.False(t, otp.Verified)
	assert.InDelta(t, time.Now().Add(codeTTL).Unix(), otp.ExpiresAt, 2)
	store.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestIssue_DeliveryFailure_IsNotFatal(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}

	store.On("Cleanup", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Replace", mock.Anything, mock.Anything).Return(nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp: connection refused"))

	m := newManager(store, sender)
	otp, err := m.Issue(context.Background(), domain.MethodEmail, "a@b.com", domain.RoleSeeker)

	// The code still exists and is valid even though nobody received it.
	require.NoError(t, err)
	assert.NotNil(t, otp)
}

func TestIssue_CleanupFailure_IsNotFatal(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}

	store.On("Cleanup", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("throttled"))
	store.On("Replace", mock.Anything, mock.Anything).Return(nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	m := newManager(store, sender)
	_, err := m.Issue(context.Background(), domain.MethodEmail, "a@b.com", domain.RoleSeeker)
	require.NoError(t, err)
}

func TestIssue_StoreFailure_Propagates(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}

	store.On("Cleanup", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Replace", mock.Anything, mock.Anything).Return(errors.New("transact canceled"))

	m := newManager(store, sender)
	_, err := m.Issue(context.Background(), domain.MethodEmail, "a@b.com", domain.RoleSeeker)
	require.Error(t, err)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_UnknownMethod(t *testing.T) {
	m := newManager(&mockStore{}, &mockSender{})
	_, err := m.Issue(context.Background(), "pigeon", "a@b.com", domain.RoleSeeker)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- Validate ---

func TestValidate_NotFound(t *testing.T) {
	store := &mockStore{}
	store.On("NewestUnverified", mock.Anything, "a@b.com", "123456").Return(nil, domain.ErrOTPNotFound)

	m := newManager(store, &mockSender{})
	_, err := m.Validate(context.Background(), domain.MethodEmail, "a@b.com", "123456")
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestValidate_Expired(t *testing.T) {
	store := &mockStore{}
	store.On("NewestUnverified", mock.Anything, "a@b.com", "012345").Return(&domain.OneTimeCode{
		ChannelIdentifier: "a@b.com",
		Code:              "012345",
		ExpiresAt:         time.Now().Add(-time.Second).Unix(),
	}, nil)

	m := newManager(store, &mockSender{})
	_, err := m.Validate(context.Background(), domain.MethodEmail, "a@b.com", "012345")
	// Expired beats matching: the code string is correct but the window passed.
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestValidate_Ok(t *testing.T) {
	store := &mockStore{}
	row := &domain.OneTimeCode{
		ChannelIdentifier: "a@b.com",
		OTPID:             "01HROW0000000000000000000",
		Code:              "012345",
		ExpiresAt:         time.Now().Add(time.Minute).Unix(),
	}
	store.On("NewestUnverified", mock.Anything, "a@b.com", "012345").Return(row, nil)

	m := newManager(store, &mockSender{})
	got, err := m.Validate(context.Background(), domain.MethodEmail, "a@b.com", "012345")
	require.NoError(t, err)
	assert.Equal(t, row, got)
}

// --- MarkVerified ---

func TestMarkVerified_SecondCallObservesNotFound(t *testing.T) {
	store := &mockStore{}
	row := &domain.OneTimeCode{ChannelIdentifier: "a@b.com", OTPID: "01HROW0000000000000000000"}
	store.On("MarkVerified", mock.Anything, "a@b.com", row.OTPID, mock.Anything).Return(nil).Once()
	store.On("MarkVerified", mock.Anything, "a@b.com", row.OTPID, mock.Anything).Return(domain.ErrOTPNotFound)

	m := newManager(store, &mockSender{})
	require.NoError(t, m.MarkVerified(context.Background(), domain.MethodEmail, row))
	err := m.MarkVerified(context.Background(), domain.MethodEmail, row)
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestGenerateCode_SixDigitsZeroPadded(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}
