package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/homehive/homehive-api/internal/domain"
)

// OTPRepo provides typed DynamoDB operations for a one-time-code table.
// There is one table per channel (email_otps, phone_otps), identical shape:
// PK channel_identifier, SK otp_id (ULID).
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

// Replace deletes every unverified code for the identifier and inserts otp,
// in a single TransactWriteItems call. This keeps the at-most-one-unverified
// invariant even when two issuances race: each transaction is atomic, and
// the last writer's row is the newest, which is the one validation selects.
func (r *OTPRepo) Replace(ctx context.Context, otp *domain.OneTimeCode) error {
	stale, err := r.queryUnverified(ctx, otp.ChannelIdentifier)
	if err != nil {
		return fmt.Errorf("query unverified codes: %w", err)
	}

	item, err := attributevalue.MarshalMap(otp)
	if err != nil {
		return fmt.Errorf("marshal one-time code: %w", err)
	}

	writes := make([]types.TransactWriteItem, 0, len(stale)+1)
	for _, s := range stale {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       compositeKey("channel_identifier", s.ChannelIdentifier, "otp_id", s.OTPID),
			},
		})
	}
	writes = append(writes, types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      item,
		},
	})

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	return err
}

// NewestUnverified returns the most recently created unverified code matching
// identifier and code exactly (string comparison, leading zeros matter).
// Returns domain.ErrOTPNotFound when no row matches.
func (r *OTPRepo) NewestUnverified(ctx context.Context, identifier, code string) (*domain.OneTimeCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("channel_identifier = :id"),
		// "code" is a DynamoDB reserved word.
		FilterExpression:         aws.String("verified = :f AND #c = :c"),
		ExpressionAttributeNames: map[string]string{"#c": "code"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: identifier},
			":f":  &types.AttributeValueMemberBOOL{Value: false},
			":c":  &types.AttributeValueMemberS{Value: code},
		},
		// ULID sort key: newest first.
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("no matching code for %s: %w", identifier, domain.ErrOTPNotFound)
	}
	var otp domain.OneTimeCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &otp); err != nil {
		return nil, err
	}
	return &otp, nil
}

// MarkVerified flips the row to verified exactly once. The condition on
// verified=false makes concurrent duplicate submissions lose cleanly: the
// second caller observes domain.ErrOTPNotFound.
func (r *OTPRepo) MarkVerified(ctx context.Context, identifier, otpID string, at time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("channel_identifier", identifier, "otp_id", otpID),
		UpdateExpression:    aws.String("SET verified = :t, verified_at = :at"),
		ConditionExpression: aws.String("attribute_exists(otp_id) AND verified = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":  &types.AttributeValueMemberBOOL{Value: true},
			":f":  &types.AttributeValueMemberBOOL{Value: false},
			":at": &types.AttributeValueMemberN{Value: strconv.FormatInt(at.Unix(), 10)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("code already consumed or gone: %w", domain.ErrOTPNotFound)
		}
		return err
	}
	return nil
}

// Cleanup deletes rows that are expired and unverified, plus verified rows
// older than the retention window. Runs inline before every issuance; the
// table TTL on expires_at is only a non-authoritative second purge path.
func (r *OTPRepo) Cleanup(ctx context.Context, now time.Time, verifiedRetention time.Duration) error {
	cutoff := now.Add(-verifiedRetention)
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("expires_at < :now OR (verified = :t AND created_at < :cutoff)"),
		ProjectionExpression: aws.String("channel_identifier, otp_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":    &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":t":      &types.AttributeValueMemberBOOL{Value: true},
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.Unix(), 10)},
		},
	})
	if err != nil {
		return err
	}
	if len(out.Items) == 0 {
		return nil
	}

	var keys []domain.OneTimeCode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &keys); err != nil {
		return err
	}
	// BatchWriteItem accepts at most 25 requests per call.
	for start := 0; start < len(keys); start += 25 {
		end := start + 25
		if end > len(keys) {
			end = len(keys)
		}
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: compositeKey("channel_identifier", k.ChannelIdentifier, "otp_id", k.OTPID),
				},
			})
		}
		_, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: reqs},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *OTPRepo) queryUnverified(ctx context.Context, identifier string) ([]domain.OneTimeCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("channel_identifier = :id"),
		FilterExpression:       aws.String("verified = :f"),
		ProjectionExpression:   aws.String("channel_identifier, otp_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: identifier},
			":f":  &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		return nil, err
	}
	var otps []domain.OneTimeCode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &otps); err != nil {
		return nil, err
	}
	return otps, nil
}
