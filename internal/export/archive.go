package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// ObjectPutter is the part of *s3.Client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MessageSender is the part of *sqs.Client the archive notifier uses.
type MessageSender interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AWSOptions configures the AWS clients. Credentials and region come from
// the default chain (env, shared config, instance role).
type AWSOptions struct {
	Endpoint     string
	UsePathStyle bool
}

// NewAWSClients loads the default AWS config and builds S3 and SQS clients.
func NewAWSClients(ctx context.Context, opts AWSOptions) (*s3.Client, *sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}
	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	sqsc := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return s3c, sqsc, nil
}

// Archiver stores exports in a bucket and optionally announces each one on
// a queue.
type Archiver struct {
	S3       ObjectPutter
	Bucket   string
	Prefix   string
	SQS      MessageSender
	QueueURL string
}

// ArchivedNotice is the queue message sent after an upload.
type ArchivedNotice struct {
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	Resource   string    `json:"resource"`
	UserID     string    `json:"userId"`
	Rows       int       `json:"rows"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Archive uploads data under <prefix>/<resource>/<timestamp>_<user>.csv and
// returns the object key. The queue notice is sent only after a successful
// upload; a notice failure is returned but the object stays.
func (a *Archiver) Archive(ctx context.Context, resource, userID string, rows int, data []byte, now time.Time) (string, error) {
	key := a.objectKey(resource, userID, now)
	_, err := a.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv; charset=utf-8"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.Bucket, key, err)
	}

	if a.SQS == nil || a.QueueURL == "" {
		return key, nil
	}
	body, err := json.Marshal(ArchivedNotice{
		Bucket: a.Bucket, Key: key, Resource: resource, UserID: userID, Rows: rows, UploadedAt: now.UTC(),
	})
	if err != nil {
		return key, err
	}
	if _, err := a.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(a.QueueURL),
		MessageBody: aws.String(string(body)),
	}); err != nil {
		return key, fmt.Errorf("notify archive %s: %w", key, err)
	}
	return key, nil
}

func (a *Archiver) objectKey(resource, userID string, now time.Time) string {
	name := fmt.Sprintf("%s/%s_%s.csv", resource, now.UTC().Format("20060102_150405"), safeSegment(userID))
	if p := strings.Trim(a.Prefix, "/"); p != "" {
		return p + "/" + name
	}
	return name
}

func safeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "anonymous"
	}
	return s
}
