package services

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/fieldsync/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// UploadSigner hands out URLs the client can PUT an image to.
type UploadSigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
}

// S3Presigner signs PUT requests against an S3 compatible store (MinIO in
// development).
type S3Presigner struct {
	bucket   string
	region   string
	user     string
	password string
	endpoint string
	expiry   time.Duration
}

func NewS3Presigner(cfg *sc.Config) *S3Presigner {
	expiry := cfg.S3PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3Presigner{
		bucket:   cfg.S3Bucket,
		region:   cfg.S3Region,
		user:     cfg.S3RootUser,
		password: cfg.S3RootPassword,
		endpoint: cfg.S3BaseEndpoint,
		expiry:   expiry,
	}
}

func (p *S3Presigner) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.user, p.password, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.endpoint != "" {
			o.BaseEndpoint = aws.String(p.endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	pc, err := p.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(pc, ctx, in, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
