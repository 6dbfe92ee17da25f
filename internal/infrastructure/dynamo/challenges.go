package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verify-api/internal/domain"
)

// ChallengeRepo manages challenge artifacts.
// PK: subject_id, SK: purpose — one slot per pair, so a fresh Upsert
// supersedes whatever artifact was there before.
//
// Consumption is a conditional write: an artifact is consumed only while its
// consumed_at is absent and its artifact_id still matches, which is what makes
// concurrent verifies settle on exactly one winner.
type ChallengeRepo struct {
	client        *dynamodb.Client
	tableName     string
	accountsTable string
}

func NewChallengeRepo(client *dynamodb.Client, tableName, accountsTable string) *ChallengeRepo {
	return &ChallengeRepo{client: client, tableName: tableName, accountsTable: accountsTable}
}

func (r *ChallengeRepo) Upsert(ctx context.Context, a *domain.ChallengeArtifact) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// LoadActive returns the unconsumed artifact for (subject, purpose).
// Expiry is deliberately not filtered here; the verifier folds it into its
// invalid-code rejection instead of revealing it as absence.
func (r *ChallengeRepo) LoadActive(ctx context.Context, subjectID string, purpose domain.Purpose) (*domain.ChallengeArtifact, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("subject_id", subjectID, "purpose", string(purpose)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("challenge not found: %w", domain.ErrNoActiveChallenge)
	}
	var a domain.ChallengeArtifact
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	if a.ConsumedAt != nil {
		return nil, fmt.Errorf("challenge already consumed: %w", domain.ErrNoActiveChallenge)
	}
	return &a, nil
}

// TryConsume sets consumed_at iff the slot still holds artifactID unconsumed.
// Returns (false, nil) when the condition did not hold.
func (r *ChallengeRepo) TryConsume(ctx context.Context, subjectID string, purpose domain.Purpose, artifactID string) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("subject_id", subjectID, "purpose", string(purpose)),
		UpdateExpression:    aws.String("SET consumed_at = :now"),
		ConditionExpression: aws.String("artifact_id = :aid AND attribute_not_exists(consumed_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: artifactID},
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", time.Now().UTC().Unix())},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ConsumeAndCommit consumes the artifact and writes its pending value onto the
// account in a single TransactWriteItems call, so neither lands without the
// other. Returns (false, nil) when the consume condition did not hold.
func (r *ChallengeRepo) ConsumeAndCommit(ctx context.Context, subjectID string, purpose domain.Purpose, artifactID, pendingValue string) (bool, error) {
	field, confirmedField, err := pendingField(purpose)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(r.tableName),
					Key:                 compositeKey("subject_id", subjectID, "purpose", string(purpose)),
					UpdateExpression:    aws.String("SET consumed_at = :now"),
					ConditionExpression: aws.String("artifact_id = :aid AND attribute_not_exists(consumed_at)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":aid": &types.AttributeValueMemberS{Value: artifactID},
						":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
					},
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(r.accountsTable),
					Key:                 strKey("account_id", subjectID),
					UpdateExpression:    aws.String("SET #f = :v, #c = :t, updated_at = :u"),
					ConditionExpression: aws.String("attribute_exists(account_id)"),
					ExpressionAttributeNames: map[string]string{
						"#f": field,
						"#c": confirmedField,
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":v": &types.AttributeValueMemberS{Value: pendingValue},
						":t": &types.AttributeValueMemberBOOL{Value: true},
						":u": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
					},
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return false, nil
				}
			}
		}
		return false, err
	}
	return true, nil
}

// pendingField maps a purpose to the account attribute its pending value
// commits to, plus the matching confirmation flag.
func pendingField(purpose domain.Purpose) (field, confirmed string, err error) {
	switch purpose {
	case domain.PurposePhoneChange:
		return "phone", "phone_confirmed", nil
	case domain.PurposeEmailChange:
		return "email", "email_confirmed", nil
	}
	return "", "", fmt.Errorf("purpose %q carries no pending value", purpose)
}
