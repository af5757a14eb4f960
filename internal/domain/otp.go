package domain

// Method is the delivery channel for a one-time code.
type Method string

const (
	MethodEmail Method = "email"
	MethodPhone Method = "phone"
)

// OneTimeCode is a short-lived numeric code proving control of an email
// address or phone number. One DynamoDB table per channel, identical shape.
// PK: channel_identifier, SK: otp_id (ULID, so newest sorts last).
// ExpiresAt doubles as the DynamoDB TTL attribute.
type OneTimeCode struct {
	ChannelIdentifier string `dynamodbav:"channel_identifier"`
	OTPID             string `dynamodbav:"otp_id"`
	Code              string `dynamodbav:"code"` // 6 digits, zero-padded; compared as a string
	RoleHint          string `dynamodbav:"role_hint"`
	Verified          bool   `dynamodbav:"verified"`
	ExpiresAt         int64  `dynamodbav:"expires_at"` // Unix seconds
	VerifiedAt        *int64 `dynamodbav:"verified_at"`
	CreatedAt         int64  `dynamodbav:"created_at"` // Unix seconds, drives retention cleanup
}
