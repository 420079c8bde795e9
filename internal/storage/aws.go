package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/service/report"
)

// S3API is the subset of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DynamoAPI is the subset of the DynamoDB client the archive uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AWSStorage keeps report JSON in S3 and alert history in DynamoDB.
type AWSStorage struct {
	dynamoDB  DynamoAPI
	s3Client  S3API
	tableName string
	bucket    string
	alertTTL  time.Duration
}

// DynamoDBItem represents an item stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

const skTimeLayout = "2006-01-02T15:04:05Z"

// NewAWSStorage creates a new AWS storage instance
func NewAWSStorage(ctx context.Context, tableName, bucket, region, profile string) (*AWSStorage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewAWSStorageWithClients(dynamodb.NewFromConfig(cfg), s3.NewFromConfig(cfg), tableName, bucket), nil
}

// NewAWSStorageWithClients builds the archive from explicit clients.
func NewAWSStorageWithClients(db DynamoAPI, s3c S3API, tableName, bucket string) *AWSStorage {
	return &AWSStorage{
		dynamoDB:  db,
		s3Client:  s3c,
		tableName: tableName,
		bucket:    bucket,
		alertTTL:  90 * 24 * time.Hour,
	}
}

// Archive writes the report object, the latest pointer, then one
// DynamoDB item per alert.
func (s *AWSStorage) Archive(ctx context.Context, r *report.Report) error {
	if err := s.putJSON(ctx, ReportKey(r), r); err != nil {
		return err
	}
	if err := s.putJSON(ctx, latestKey, r); err != nil {
		return err
	}

	generated := r.GeneratedAt.UTC()
	for _, a := range r.Alerts {
		data, err := json.Marshal(AlertRecord{ReportID: r.ID, GeneratedAt: r.GeneratedAt, Alert: a})
		if err != nil {
			return fmt.Errorf("marshaling alert: %w", err)
		}
		item := DynamoDBItem{
			PK:        alertPK(a.Region),
			SK:        fmt.Sprintf("%s#%s", generated.Format(skTimeLayout), a.Type),
			Data:      string(data),
			Timestamp: generated.Format(time.RFC3339),
			TTL:       generated.Add(s.alertTTL).Unix(),
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("marshaling item: %w", err)
		}
		if _, err := s.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      av,
		}); err != nil {
			return fmt.Errorf("putting alert to DynamoDB: %w", err)
		}
	}
	return nil
}

// Latest reads the latest pointer object.
func (s *AWSStorage) Latest(ctx context.Context) (*report.Report, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(latestKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNoReport
		}
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling S3 data: %w", err)
	}
	return &r, nil
}

// AlertHistory queries the region's partition between the two instants,
// following LastEvaluatedKey until every page has been read.
func (s *AWSStorage) AlertHistory(ctx context.Context, region domain.Region, from, to time.Time) ([]AlertRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: alertPK(region)},
			":from": &types.AttributeValueMemberS{Value: from.UTC().Format(skTimeLayout)},
			// "~" sorts after "#", so alerts stamped exactly at `to` are kept.
			":to": &types.AttributeValueMemberS{Value: to.UTC().Format(skTimeLayout) + "~"},
		},
	}

	out := []AlertRecord{}
	for {
		result, err := s.dynamoDB.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("querying DynamoDB: %w", err)
		}
		for _, item := range result.Items {
			rec, err := decodeAlertItem(item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		if len(result.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func decodeAlertItem(item map[string]types.AttributeValue) (AlertRecord, error) {
	var dbItem DynamoDBItem
	if err := attributevalue.UnmarshalMap(item, &dbItem); err != nil {
		return AlertRecord{}, fmt.Errorf("unmarshaling alert item: %w", err)
	}
	var rec AlertRecord
	if err := json.Unmarshal([]byte(dbItem.Data), &rec); err != nil {
		return AlertRecord{}, fmt.Errorf("decoding alert %s/%s: %w", dbItem.PK, dbItem.SK, err)
	}
	return rec, nil
}

func (s *AWSStorage) putJSON(ctx context.Context, key string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling data: %w", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(jsonData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}

func alertPK(region domain.Region) string {
	return "ALERT#" + string(region)
}
