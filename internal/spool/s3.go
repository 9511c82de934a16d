package spool

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Options — параметры S3-совместимого хранилища (MinIO и т.п.).
type S3Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Prefix       string
}

// ObjectAPI — используемое подмножество *s3.Client.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Spooler складывает содержимое загрузок в бакет; нужен, когда извлечение
// текста выполняется не на том узле, что принял файл.
type S3Spooler struct {
	client ObjectAPI
	bucket string
	prefix string
	local  *FileSpooler
}

// NewS3Client создаёт клиента S3 со статическими ключами.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(o.Region), // обязательный параметр
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
			opts.UsePathStyle = true
		}
	}), nil
}

// NewS3Spooler создаёт спулер поверх client. Запись буферизуется во временный
// файл localDir и выгружается в бакет при первом Reader.
func NewS3Spooler(client ObjectAPI, bucket, prefix, localDir string) (*S3Spooler, error) {
	local, err := NewFileSpooler(localDir)
	if err != nil {
		return nil, err
	}
	return &S3Spooler{client: client, bucket: bucket, prefix: prefix, local: local}, nil
}

func (s *S3Spooler) Create(ctx context.Context, name string) (Spool, error) {
	buf, err := s.local.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	d := time.Now().UTC()
	key := fmt.Sprintf("%sspool/%d/%02d/%02d/%s-%s", s.prefix, d.Year(), d.Month(), d.Day(), name, uuid.NewString())
	return &s3Spool{parent: s, buf: buf.(*fileSpool), key: key}, nil
}

type s3Spool struct {
	parent   *S3Spooler
	buf      *fileSpool
	key      string
	uploaded bool
}

func (s *s3Spool) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *s3Spool) Size() int64 { return s.buf.Size() }

func (s *s3Spool) upload(ctx context.Context) error {
	f, err := s.buf.Reader(ctx)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.parent.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.parent.bucket),
		Key:           aws.String(s.key),
		Body:          f,
		ContentLength: aws.Int64(s.buf.Size()),
	})
	if err != nil {
		return fmt.Errorf("put spool object %s: %w", s.key, err)
	}
	s.uploaded = true
	// локальная копия больше не нужна
	return s.buf.Close()
}

func (s *s3Spool) Reader(ctx context.Context) (io.ReadCloser, error) {
	if !s.uploaded {
		if err := s.upload(ctx); err != nil {
			return nil, err
		}
	}
	out, err := s.parent.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.parent.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get spool object %s: %w", s.key, err)
	}
	return out.Body, nil
}

func (s *s3Spool) Close() error {
	if !s.uploaded {
		return s.buf.Close()
	}
	_, err := s.parent.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.parent.bucket),
		Key:    aws.String(s.key),
	})
	return err
}
