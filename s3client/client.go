package s3client

import (
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"io"
	"os"
	"sync"
)

// Client moves corpora and corruption output in and out of one bucket.
// A failed call refreshes the session once and is retried.
type Client struct {
	mu         sync.Mutex
	sess       *session.Session
	bucketName string
	env        EnvironmentConfig
}

var clientLogger = logger.NewLogger("S3Client")
var sdkLogger = logger.NewLogger("S3-SDK")

type EnvironmentConfig struct {
	BucketName  string `envconfig:"CORRUPT_S3_BUCKET" required:"true"`
	Region      string `envconfig:"CORRUPT_AWS_REGION_NAME" required:"true"`
	AwsEndpoint string `envconfig:"CORRUPT_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"CORRUPT_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"CORRUPT_AWS_ACCESS_KEY" default:""`
}

func New() (*Client, error) {
	var env EnvironmentConfig
	if err := envconfig.Process("", &env); err != nil {
		clientLogger.Err(err).Msg("Failed to get proper variables from environment")
		return nil, err
	}
	client := Client{
		bucketName: env.BucketName,
		env:        env,
	}
	if err := client.acquireNewSession(); err != nil {
		return nil, err
	}
	return &client, nil
}

func (client *Client) Download(key string) ([]byte, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(client.bucketName),
		Key:    aws.String(key),
	}
	var data []byte
	err := client.withSession(func(sess *session.Session) error {
		var err error
		data, err = client.download(sess, params)
		return err
	})
	return data, err
}

func (client *Client) Upload(body io.ReadSeeker, key string) (*s3manager.UploadOutput, error) {
	params := &s3manager.UploadInput{
		Bucket: aws.String(client.bucketName),
		Key:    aws.String(key),
		Body:   body,
	}
	var output *s3manager.UploadOutput
	err := client.withSession(func(sess *session.Session) error {
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return err
		}
		var err error
		output, err = client.upload(sess, params)
		return err
	})
	return output, err
}

func (client *Client) UploadFile(path string, key string) (*s3manager.UploadOutput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return client.Upload(file, key)
}

func (client *Client) withSession(call func(sess *session.Session) error) error {
	sess, err := client.session()
	if err != nil {
		return err
	}
	err = call(sess)
	if err == nil {
		return nil
	}
	clientLogger.Error().Err(err).Msg("Caught error while using S3 session, trying to refresh it")
	if refreshErr := client.acquireNewSession(); refreshErr != nil {
		return fmt.Errorf("%w (session refresh failed: %v)", err, refreshErr)
	}
	sess, err = client.session()
	if err != nil {
		return err
	}
	return call(sess)
}

func (client *Client) upload(sess *session.Session, params *s3manager.UploadInput) (*s3manager.UploadOutput, error) {
	keyLogger := clientLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()

	sdkLog := sdkLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()

	uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	keyLogger.Debug().Msg("Uploading the file")
	return uploader.Upload(params)
}

func (client *Client) download(sess *session.Session, params *s3.GetObjectInput) ([]byte, error) {
	keyLogger := clientLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()

	sdkLog := sdkLogger.With().
		Str("key", *params.Key).
		Str("bucket", *params.Bucket).Logger()

	downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: getLogger(sdkLog)}))
	buf := aws.NewWriteAtBuffer([]byte{})

	keyLogger.Debug().Msg("Downloading file")
	size, err := downloader.Download(buf, params)
	if err != nil {
		keyLogger.Error().Err(err).Msg("Failed to download file")
		return nil, err
	}
	keyLogger.Debug().Msgf("Downloaded %v bytes", size)
	return buf.Bytes(), nil
}

func (client *Client) session() (*session.Session, error) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.sess == nil {
		return nil, errors.New("could not get session")
	}
	return client.sess, nil
}

func (client *Client) createEC2Config() *aws.Config {
	return client.withEndpoint(&aws.Config{
		Region:     aws.String(client.env.Region),
		MaxRetries: aws.Int(4),
		LogLevel:   aws.LogLevel(aws.LogDebug),
	})
}

func (client *Client) createEnvConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(
		client.env.AccessKeyID,
		client.env.AccessKey,
		"")
	if _, err := creds.Get(); err != nil {
		clientLogger.Error().Err(err).Msg("Error with credentials from environment")
		return nil, err
	}
	cfg := aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4).
		WithCredentials(creds).
		WithLogLevel(aws.LogDebug)
	return client.withEndpoint(cfg), nil
}

func (client *Client) withEndpoint(cfg *aws.Config) *aws.Config {
	if len(client.env.AwsEndpoint) > 0 {
		cfg = cfg.WithEndpoint(client.env.AwsEndpoint).
			WithS3ForcePathStyle(true)
	}
	return cfg
}

func (client *Client) acquireNewSession() error {
	client.mu.Lock()
	defer client.mu.Unlock()

	sess, err := session.NewSession(client.createEC2Config())
	if err == nil {
		_, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{})
	}
	if err == nil {
		client.sess = sess
		clientLogger.Info().Msg("S3 session successfully initialized using instance credentials")
		return nil
	}
	clientLogger.Info().Msg("Could not initialize S3 session using instance credentials, trying env credentials")

	cfg, err := client.createEnvConfig()
	if err != nil {
		client.sess = nil
		return err
	}
	sess, err = session.NewSession(cfg)
	if err != nil {
		client.sess = nil
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return err
	}
	if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
		client.sess = nil
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return errors.New("could not initialize S3 session")
	}
	client.sess = sess
	clientLogger.Info().Msg("S3 session successfully initialized using env credentials")
	return nil
}

type s3Logger struct {
	sdkLogger zerolog.Logger
}

func getLogger(sdkLogger zerolog.Logger) *s3Logger {
	return &s3Logger{
		sdkLogger,
	}
}

func (logger *s3Logger) Log(v ...interface{}) {
	logger.sdkLogger.Debug().Msg(fmt.Sprint(v...))
}
