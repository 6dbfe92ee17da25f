package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-verify-api/internal/domain"
)

// TwoFactorRepo stores long-lived TOTP seeds.
// PK: subject_id.
type TwoFactorRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTwoFactorRepo(client *dynamodb.Client, tableName string) *TwoFactorRepo {
	return &TwoFactorRepo{client: client, tableName: tableName}
}

func (r *TwoFactorRepo) Put(ctx context.Context, s *domain.TwoFactorSecret) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal twofactor secret: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TwoFactorRepo) Get(ctx context.Context, subjectID string) (*domain.TwoFactorSecret, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("subject_id", subjectID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("twofactor secret not found: %w", domain.ErrNoActiveChallenge)
	}
	var s domain.TwoFactorSecret
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *TwoFactorRepo) SetEnabled(ctx context.Context, subjectID string, enabled bool) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"enabled":    enabled,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("subject_id", subjectID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
