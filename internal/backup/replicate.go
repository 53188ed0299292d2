package backup

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	azblob "github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"workflow-backup/internal/config"
	"workflow-backup/internal/logging"
)

// Replicator uploads one local artifact to an offsite target. Replication
// is best-effort: the backup run reports failures as warnings and succeeds
// regardless.
type Replicator interface {
	Name() string
	Upload(ctx context.Context, localPath, objectName string, data []byte) error
}

// ReplicationService fans a backup set out to every configured target,
// optionally encrypting artifacts before upload.
type ReplicationService struct {
	targets    []Replicator
	encryption *EncryptionManager
	logger     *logging.Logger
}

// NewReplicationService builds the service from configuration. A nil
// service (no targets) is valid and replicates nothing.
func NewReplicationService(cfg config.ReplicationConfig, logger *logging.Logger) (*ReplicationService, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	var targets []Replicator
	if cfg.S3.Enabled {
		t, err := NewS3Replicator(cfg.S3)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if cfg.GCS.Enabled {
		targets = append(targets, NewGCSReplicator(cfg.GCS))
	}
	if cfg.Azure.Enabled {
		t, err := NewAzureReplicator(cfg.Azure)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	svc := &ReplicationService{targets: targets, logger: logger}
	if cfg.Encryption.Enabled {
		svc.encryption = NewEncryptionManager(cfg.Encryption.Passphrase)
	}
	return svc, nil
}

// Enabled reports whether any target is configured.
func (rs *ReplicationService) Enabled() bool {
	return rs != nil && len(rs.targets) > 0
}

// ReplicateSet uploads every artifact of the set to every target and
// returns per-upload failure messages.
func (rs *ReplicationService) ReplicateSet(ctx context.Context, set *Set) []string {
	if !rs.Enabled() {
		return nil
	}

	var warnings []string
	for _, local := range set.ArtifactFiles() {
		object := filepath.Base(local)
		data, err := os.ReadFile(local)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("read %s: %v", local, err))
			continue
		}
		if rs.encryption != nil {
			sealed, err := rs.encryption.Encrypt(data)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("encrypt %s: %v", object, err))
				continue
			}
			data = sealed
			object += EncryptedSuffix
		}
		for _, target := range rs.targets {
			if err := target.Upload(ctx, local, object, data); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s upload of %s: %v", target.Name(), object, err))
				rs.logger.Warnf("Replication to %s failed for %s: %v", target.Name(), object, err)
				continue
			}
			rs.logger.WithFields(map[string]interface{}{
				"operation": "replication",
				"target":    target.Name(),
				"object":    object,
				"size":      len(data),
			}).Info("Artifact replicated")
		}
	}
	return warnings
}

// S3Replicator uploads artifacts to an S3 bucket.
type S3Replicator struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3Replicator creates an S3 replication target.
func NewS3Replicator(cfg config.S3Config) (*S3Replicator, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}
	return &S3Replicator{client: s3.New(sess), bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (r *S3Replicator) Name() string { return "s3" }

func (r *S3Replicator) Upload(ctx context.Context, _, objectName string, data []byte) error {
	_, err := r.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(path.Join(r.prefix, objectName)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return NewStorageError("S3 upload failed", err)
	}
	return nil
}

// GCSReplicator uploads artifacts to a Google Cloud Storage bucket. The
// client is created lazily per upload so that a misconfigured target only
// degrades replication, never startup.
type GCSReplicator struct {
	cfg config.GCSConfig
}

// NewGCSReplicator creates a GCS replication target.
func NewGCSReplicator(cfg config.GCSConfig) *GCSReplicator {
	return &GCSReplicator{cfg: cfg}
}

func (r *GCSReplicator) Name() string { return "gcs" }

func (r *GCSReplicator) Upload(ctx context.Context, _, objectName string, data []byte) error {
	var opts []option.ClientOption
	if r.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(r.cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return NewStorageError("failed to create GCS client", err)
	}
	defer client.Close()

	w := client.Bucket(r.cfg.Bucket).Object(path.Join(r.cfg.Prefix, objectName)).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return NewStorageError("GCS upload failed", err)
	}
	if err := w.Close(); err != nil {
		return NewStorageError("GCS upload failed", err)
	}
	return nil
}

// AzureReplicator uploads artifacts to an Azure Blob Storage container.
type AzureReplicator struct {
	containerURL azblob.ContainerURL
	prefix       string
}

// NewAzureReplicator creates an Azure replication target.
func NewAzureReplicator(cfg config.AzureConfig) (*AzureReplicator, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, NewStorageError("invalid Azure credentials", err)
	}
	pipeline := azblob.NewPipeline(cred, azblob.PipelineOptions{})
	endpoint, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", cfg.AccountName, cfg.Container))
	if err != nil {
		return nil, NewStorageError("invalid Azure endpoint", err)
	}
	return &AzureReplicator{
		containerURL: azblob.NewContainerURL(*endpoint, pipeline),
		prefix:       cfg.Prefix,
	}, nil
}

func (r *AzureReplicator) Name() string { return "azure" }

func (r *AzureReplicator) Upload(ctx context.Context, _, objectName string, data []byte) error {
	blobURL := r.containerURL.NewBlockBlobURL(path.Join(r.prefix, objectName))
	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{})
	if err != nil {
		return NewStorageError("Azure upload failed", err)
	}
	return nil
}
