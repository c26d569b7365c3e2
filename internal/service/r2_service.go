package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/ashwinm7/postdeck/configs"
)

type R2Service interface {
	UploadToR2(ctx context.Context, key string, file []byte, filetype string) error
	PublicURL(key string) string
}

type r2Service struct {
	config cfg.Config
}

func NewR2Service(cfg cfg.Config) R2Service {
	return &r2Service{config: cfg}
}

func (r *r2Service) client() *s3.Client {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.R2.AccessKey, r.config.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		log.Fatal(err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.R2.AccountID))
	})
}

// UploadToR2 uploads a file to Cloudflare R2 Storage.
func (r *r2Service) UploadToR2(ctx context.Context, key string, file []byte, filetype string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(filetype),
	}

	_, err := r.client().PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

// PublicURL returns the public address of an uploaded object. Platform
// adapters fetch (or link) media from here, never from the bucket directly.
func (r *r2Service) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(r.config.R2.PublicBaseURL, "/"), key)
}
