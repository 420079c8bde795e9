package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/service/report"
)

func sampleReport(id string, at time.Time) *report.Report {
	return &report.Report{
		ID:          id,
		GeneratedAt: at,
		From:        at.AddDate(0, 0, -90),
		To:          at,
		Regions:     []domain.Region{"us", "uk"},
		Alerts: []domain.Alert{
			{Region: "us", Type: domain.AlertBounce, Metric: domain.MetricBounceRate, Value: 0.08, Threshold: 0.05, Severity: domain.SeverityHigh},
			{Region: "uk", Type: domain.AlertLowActivity, Metric: domain.MetricCampaigns30d, Value: 0, Threshold: 2, Severity: domain.SeverityMedium},
		},
	}
}

func TestLocalArchiveAndLatest(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)

	_, err = s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoReport)

	first := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Archive(ctx, sampleReport("r1", first)))
	require.NoError(t, s.Archive(ctx, sampleReport("r2", first.Add(24*time.Hour))))

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
	assert.Len(t, latest.Alerts, 2)
}

func TestLocalAlertHistory(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)

	day := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Archive(ctx, sampleReport(id, day.AddDate(0, 0, i))))
	}

	hist, err := s.AlertHistory(ctx, "us", day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "b", hist[0].ReportID)
	assert.Equal(t, "c", hist[1].ReportID)
	assert.Equal(t, domain.AlertBounce, hist[0].Alert.Type)

	none, err := s.AlertHistory(ctx, "de", day, day.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLocalArchiveSameReportTwice(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)

	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Archive(ctx, sampleReport("r1", at)))
	require.NoError(t, s.Archive(ctx, sampleReport("r1", at)))

	hist, err := s.AlertHistory(ctx, "us", at, at)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	require.NoError(t, s.Archive(ctx, sampleReport("r2", at)))
	hist, err = s.AlertHistory(ctx, "us", at, at)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestReportKey(t *testing.T) {
	r := sampleReport("abc", time.Date(2026, 4, 1, 23, 0, 0, 0, time.FixedZone("PDT", -7*3600)))
	assert.Equal(t, "reports/2026/04/02/abc.json", ReportKey(r))
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type fakeDynamo struct {
	mu       sync.Mutex
	items    []map[string]types.AttributeValue
	query    *dynamodb.QueryInput
	pageSize int
	queries  int
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// Query filters on PK only; the sort-key range is checked via the captured
// input. With pageSize set, results are split into pages keyed by SK.
func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query = in
	f.queries++
	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["PK"].(*types.AttributeValueMemberS).Value == pk {
			matched = append(matched, item)
		}
	}

	start := 0
	if in.ExclusiveStartKey != nil {
		after := in.ExclusiveStartKey["SK"].(*types.AttributeValueMemberS).Value
		for i, item := range matched {
			if item["SK"].(*types.AttributeValueMemberS).Value == after {
				start = i + 1
			}
		}
	}
	matched = matched[start:]
	if f.pageSize == 0 || len(matched) <= f.pageSize {
		return &dynamodb.QueryOutput{Items: matched}, nil
	}
	page := matched[:f.pageSize]
	last := page[len(page)-1]
	return &dynamodb.QueryOutput{
		Items:            page,
		LastEvaluatedKey: map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]},
	}, nil
}

func TestAWSArchive(t *testing.T) {
	ctx := context.Background()
	s3c := &fakeS3{objects: map[string][]byte{}}
	db := &fakeDynamo{}
	s := NewWithAWS(NewAWSStorageWithClients(db, s3c, "alerts", "bucket"))

	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoReport)

	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Archive(ctx, sampleReport("r1", at)))

	assert.Contains(t, s3c.objects, "reports/2026/04/01/r1.json")
	assert.Contains(t, s3c.objects, "reports/latest.json")
	require.Len(t, db.items, 2)

	sk := db.items[0]["SK"].(*types.AttributeValueMemberS).Value
	assert.Equal(t, "2026-04-01T08:00:00Z#bounce", sk)
	ttl := db.items[0]["TTL"].(*types.AttributeValueMemberN).Value
	assert.Equal(t, "1782806400", ttl) // generated + 90 days

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", latest.ID)

	hist, err := s.AlertHistory(ctx, "us", at.Add(-time.Hour), at)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.SeverityHigh, hist[0].Alert.Severity)

	to := db.query.ExpressionAttributeValues[":to"].(*types.AttributeValueMemberS).Value
	assert.True(t, strings.HasPrefix(to, "2026-04-01T08:00:00Z"))
	assert.True(t, sk <= to, "alert stamped at the upper bound must fall inside the range")
}

func TestAWSAlertHistoryPages(t *testing.T) {
	ctx := context.Background()
	db := &fakeDynamo{pageSize: 2}
	s := NewWithAWS(NewAWSStorageWithClients(db, &fakeS3{objects: map[string][]byte{}}, "alerts", "bucket"))

	day := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Archive(ctx, sampleReport(fmt.Sprintf("r%d", i), day.AddDate(0, 0, i))))
	}

	hist, err := s.AlertHistory(ctx, "us", day, day.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, hist, 5)
	assert.Equal(t, "r0", hist[0].ReportID)
	assert.Equal(t, "r4", hist[4].ReportID)
	assert.Equal(t, 3, db.queries)
}

func TestAWSAlertHistoryBadItem(t *testing.T) {
	ctx := context.Background()
	db := &fakeDynamo{items: []map[string]types.AttributeValue{{
		"PK":   &types.AttributeValueMemberS{Value: "ALERT#us"},
		"SK":   &types.AttributeValueMemberS{Value: "2026-04-01T08:00:00Z#bounce"},
		"Data": &types.AttributeValueMemberS{Value: "{not json"},
	}}}
	s := NewWithAWS(NewAWSStorageWithClients(db, &fakeS3{objects: map[string][]byte{}}, "alerts", "bucket"))

	_, err := s.AlertHistory(ctx, "us", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT#us/2026-04-01T08:00:00Z#bounce")
}
