package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/service/report"
)

// ErrNoReport is returned by Latest before anything was archived.
var ErrNoReport = errors.New("no archived report")

// AlertRecord is one alert as it appeared in a published report.
type AlertRecord struct {
	ReportID    string       `json:"report_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Alert       domain.Alert `json:"alert"`
}

// Storage archives published reports, either as local JSON files or in
// S3 plus DynamoDB. It implements report.Archiver.
type Storage struct {
	config config.StorageConfig
	mu     sync.Mutex

	aws *AWSStorage
}

// New creates a new Storage instance for the configured backend.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{config: cfg}

	switch cfg.Type {
	case "aws":
		awsStorage, err := NewAWSStorage(ctx, cfg.DynamoDBTable, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		awsStorage.alertTTL = time.Duration(cfg.AlertTTLDays) * 24 * time.Hour
		s.aws = awsStorage
	case "local", "":
		if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	return s, nil
}

// NewWithAWS wraps a prepared AWS backend.
func NewWithAWS(aws *AWSStorage) *Storage {
	return &Storage{config: config.StorageConfig{Type: "aws"}, aws: aws}
}

// ReportKey is the object key for a report: reports/YYYY/MM/DD/<id>.json.
func ReportKey(r *report.Report) string {
	return fmt.Sprintf("reports/%s/%s.json", r.GeneratedAt.UTC().Format("2006/01/02"), r.ID)
}

const latestKey = "reports/latest.json"

// Archive stores the report and one history entry per alert. Archiving the
// same report ID again rewrites the report files but adds no history.
func (s *Storage) Archive(ctx context.Context, r *report.Report) error {
	if s.aws != nil {
		return s.aws.Archive(ctx, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(ReportKey(r), r); err != nil {
		return err
	}
	if err := s.writeJSON(latestKey, r); err != nil {
		return err
	}

	byRegion := make(map[domain.Region][]AlertRecord)
	for _, a := range r.Alerts {
		byRegion[a.Region] = append(byRegion[a.Region], AlertRecord{ReportID: r.ID, GeneratedAt: r.GeneratedAt, Alert: a})
	}
	for region, recs := range byRegion {
		key := alertsKey(region)
		var existing []AlertRecord
		if err := s.readJSON(key, &existing); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if containsReport(existing, r.ID) {
			continue
		}
		if err := s.writeJSON(key, append(existing, recs...)); err != nil {
			return err
		}
	}
	return nil
}

// Latest returns the most recently archived report.
func (s *Storage) Latest(ctx context.Context) (*report.Report, error) {
	if s.aws != nil {
		return s.aws.Latest(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var r report.Report
	if err := s.readJSON(latestKey, &r); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoReport
		}
		return nil, err
	}
	return &r, nil
}

// AlertHistory returns the region's archived alerts generated within
// [from, to], oldest first.
func (s *Storage) AlertHistory(ctx context.Context, region domain.Region, from, to time.Time) ([]AlertRecord, error) {
	if s.aws != nil {
		return s.aws.AlertHistory(ctx, region, from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []AlertRecord
	if err := s.readJSON(alertsKey(region), &all); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []AlertRecord{}, nil
		}
		return nil, err
	}

	out := []AlertRecord{}
	for _, rec := range all {
		if !rec.GeneratedAt.Before(from) && !rec.GeneratedAt.After(to) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GeneratedAt.Before(out[j].GeneratedAt) })
	return out, nil
}

func alertsKey(region domain.Region) string {
	return fmt.Sprintf("alerts/%s.json", filepath.Base(string(region)))
}

// writeJSON saves data under LocalPath, creating directories as needed.
func (s *Storage) writeJSON(key string, data interface{}) error {
	path := filepath.Join(s.config.LocalPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Storage) readJSON(key string, data interface{}) error {
	path := filepath.Join(s.config.LocalPath, filepath.FromSlash(key))
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(data)
}

func containsReport(recs []AlertRecord, id string) bool {
	for _, rec := range recs {
		if rec.ReportID == id {
			return true
		}
	}
	return false
}
