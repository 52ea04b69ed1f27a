// Package s3service archives assignment decisions to S3 for audit review.
package s3service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appConfig "bel-energy-engine/internal/config"
	"bel-energy-engine/internal/models"
	"bel-energy-engine/internal/utils"
)

// Service handles S3 operations.
type Service struct {
	client     *s3.Client
	bucketName string
}

// NewService creates a new S3 audit service.
func NewService(ctx context.Context, cfg *appConfig.Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		client:     s3.NewFromConfig(awsCfg),
		bucketName: cfg.S3AuditBucket,
	}, nil
}

// auditRecord is the stored shape of an assignment decision.
type auditRecord struct {
	ArchivedAt time.Time                `json:"archived_at"`
	Result     *models.AssignmentResult `json:"result"`
}

// ArchiveAssignment stores the full assignment decision, including the ranked
// candidate list with score breakdowns, as a JSON object under
// assignments/<projectID>/<uuid>.json.
func (s *Service) ArchiveAssignment(ctx context.Context, result *models.AssignmentResult) error {
	record := auditRecord{
		ArchivedAt: time.Now().UTC(),
		Result:     result,
	}

	body, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	key := fmt.Sprintf("assignments/%s/%s.json", result.ProjectID, uuid.NewString())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		utils.GetLogger().Error("Failed to archive assignment decision",
			zap.String("bucket", s.bucketName),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to archive assignment decision: %w", err)
	}

	utils.GetLogger().Info("Assignment decision archived",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
		zap.String("project_id", result.ProjectID),
	)

	return nil
}
