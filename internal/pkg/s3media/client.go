package s3media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/vysahq/vysa-server/internal/pkg/config"
)

// Client presigns download URLs for recording files the voice platform's
// egress wrote into the media bucket. Object expiry is handled by a bucket
// lifecycle policy; this service never deletes media itself.
type Client struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

func NewClient(cfg config.MediaConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("media bucket is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Infof("[S3Media] Initialized media client for bucket: %s", cfg.Bucket)
	return &Client{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.Bucket,
	}, nil
}

// PresignDownload returns a time-limited GET URL for a recording object. The
// recording URL stored on the interview may be a full https location; only
// its object key matters here.
func (c *Client) PresignDownload(ctx context.Context, recordingURL string, expiry time.Duration) (string, error) {
	key, err := objectKey(recordingURL)
	if err != nil {
		return "", err
	}

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign recording %s: %w", key, err)
	}
	return req.URL, nil
}

// objectKey strips a URL down to the bucket-relative object key.
func objectKey(recordingURL string) (string, error) {
	if recordingURL == "" {
		return "", errors.New("recording url is empty")
	}
	if !strings.Contains(recordingURL, "://") {
		return strings.TrimPrefix(recordingURL, "/"), nil
	}
	u, err := url.Parse(recordingURL)
	if err != nil {
		return "", fmt.Errorf("parse recording url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", errors.New("recording url has no object key")
	}
	return key, nil
}
