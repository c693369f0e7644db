package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"scrapeforge/internal/config"
	"scrapeforge/internal/logging"
	"scrapeforge/internal/logging/types"
)

// SpacesClient wraps the S3 client for DigitalOcean Spaces operations,
// used to archive vision-fallback screenshots outside process memory.
type SpacesClient struct {
	client     *s3.S3
	bucketName string
	bucketURL  string
	cdnURL     string
	logger     types.Logger
}

// NewSpacesClient creates a new DigitalOcean Spaces client.
func NewSpacesClient(cfg *config.Config) (*SpacesClient, error) {
	logger := logging.GetGlobalLogger()

	if cfg.DigitalOcean.Spaces.AccessKeyID == "" || cfg.DigitalOcean.Spaces.AccessKeySecret == "" {
		return nil, fmt.Errorf("DigitalOcean Spaces credentials are required")
	}
	if cfg.DigitalOcean.Spaces.BucketURL == "" {
		return nil, fmt.Errorf("DigitalOcean Spaces bucket URL is required")
	}

	endpoint := fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.DigitalOcean.Spaces.Region)

	logger.Info("configuring DigitalOcean Spaces client", map[string]interface{}{
		"endpoint":    endpoint,
		"bucket_name": cfg.DigitalOcean.Spaces.BucketName,
		"region":      cfg.DigitalOcean.Spaces.Region,
	})

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.DigitalOcean.Spaces.AccessKeyID,
			cfg.DigitalOcean.Spaces.AccessKeySecret,
			"",
		),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(cfg.DigitalOcean.Spaces.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DigitalOcean Spaces session: %w", err)
	}

	return &SpacesClient{
		client:     s3.New(sess),
		bucketName: cfg.DigitalOcean.Spaces.BucketName,
		bucketURL:  cfg.DigitalOcean.Spaces.BucketURL,
		cdnURL:     cfg.DigitalOcean.Spaces.CDNEndpoint,
		logger:     logger,
	}, nil
}

// UploadScreenshot uploads a vision-fallback screenshot under the given key
// and returns its public URL. Satisfies worker.ScreenshotStore.
func (sc *SpacesClient) UploadScreenshot(key string, imageData []byte) (string, error) {
	objectKey := fmt.Sprintf("screenshots/%s.jpg", key)

	sc.logger.Info("uploading screenshot to DigitalOcean Spaces", map[string]interface{}{
		"object_key": objectKey,
		"size_bytes": len(imageData),
	})

	_, err := sc.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(sc.bucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String("image/jpeg"),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		sc.logger.Error("failed to upload screenshot to DigitalOcean Spaces", map[string]interface{}{
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("failed to upload screenshot: %w", err)
	}

	var screenshotURL string
	switch {
	case sc.cdnURL != "":
		screenshotURL = fmt.Sprintf("%s/%s", strings.TrimRight(sc.cdnURL, "/"), objectKey)
	case sc.bucketURL != "":
		bucketBaseURL := strings.TrimRight(sc.bucketURL, "/")
		if !strings.HasPrefix(bucketBaseURL, "https://") {
			bucketBaseURL = "https://" + bucketBaseURL
		}
		screenshotURL = fmt.Sprintf("%s/%s", bucketBaseURL, objectKey)
	default:
		region := ""
		if sc.client.Config.Region != nil {
			region = *sc.client.Config.Region
		}
		screenshotURL = fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", sc.bucketName, region, objectKey)
	}

	sc.logger.Info("screenshot uploaded", map[string]interface{}{
		"object_key":     objectKey,
		"screenshot_url": screenshotURL,
	})

	return screenshotURL, nil
}

// IsHealthy checks if the Spaces client can communicate with the service.
func (sc *SpacesClient) IsHealthy() bool {
	_, err := sc.client.HeadBucket(&s3.HeadBucketInput{
		Bucket: aws.String(sc.bucketName),
	})
	healthy := err == nil
	if !healthy {
		sc.logger.Error("DigitalOcean Spaces health check failed", map[string]interface{}{
			"bucket_name": sc.bucketName,
			"error":       err.Error(),
		})
	}
	return healthy
}
