// internal/services/storage_service.go
package services

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/internlink/placement-service/internal/config"
)

// CVLocator turns a stored CV key into a short-lived download URL.
type CVLocator interface {
	CVURL(key string) (string, error)
}

type StorageService struct {
	s3Client *s3.S3
	bucket   string
	ttl      time.Duration
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	service := &StorageService{
		bucket: config.AWS.CVBucket,
		ttl:    time.Duration(config.AWS.PresignTTL) * time.Minute,
	}
	if service.ttl <= 0 {
		service.ttl = 15 * time.Minute
	}

	if config.AWS.AccessKeyID == "" {
		// Without credentials CV links are omitted (local development)
		logrus.Warn("AWS credentials not configured, CV links disabled")
		return service, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	service.s3Client = s3.New(sess)
	return service, nil
}

// CVURL presigns a GET for the CV object. It returns an empty URL when the
// student has no CV or storage is not configured.
func (s *StorageService) CVURL(key string) (string, error) {
	if key == "" || s.s3Client == nil {
		return "", nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(s.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}
