package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/common"
	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/internal/types"
)

// BlockStorage keeps encrypted wallet descriptor backups in an S3-compatible
// bucket. Descriptors hold xpubs only, but they still reveal the wallet's
// composition, so they go in encrypted with the account passphrase.
type BlockStorage struct {
	cfg      config.Config
	session  *session.Session
	s3Client *s3.S3
	logger   *logrus.Logger
}

func NewBlockStorage(cfg config.Config) (*BlockStorage, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.BlockStorage.Region),
		Endpoint:         aws.String(cfg.BlockStorage.Host),
		Credentials:      credentials.NewStaticCredentials(cfg.BlockStorage.AccessKey, cfg.BlockStorage.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return &BlockStorage{
		cfg:      cfg,
		session:  sess,
		s3Client: s3.New(sess),
		logger:   logrus.WithField("module", "block_storage").Logger,
	}, nil
}

func backupFileName(scope types.Scope, walletID string) string {
	return fmt.Sprintf("%s/%s/%s.bsms.enc", scope.ChatID, scope.Chain, walletID)
}

// BackupDescriptor encrypts the descriptor with the passphrase and uploads
// it, retrying transient failures.
func (bs *BlockStorage) BackupDescriptor(scope types.Scope, walletID, descriptor, passphrase string) error {
	encrypted, err := common.Encrypt(descriptor, passphrase)
	if err != nil {
		return fmt.Errorf("fail to encrypt descriptor: %w", err)
	}
	return bs.UploadFileWithRetry([]byte(encrypted), backupFileName(scope, walletID), 3)
}

// RestoreDescriptor downloads and decrypts a descriptor backup.
func (bs *BlockStorage) RestoreDescriptor(scope types.Scope, walletID, passphrase string) (string, error) {
	content, err := bs.GetFile(backupFileName(scope, walletID))
	if err != nil {
		return "", fmt.Errorf("fail to get descriptor backup: %w", err)
	}
	descriptor, err := common.Decrypt(string(content), passphrase)
	if err != nil {
		return "", fmt.Errorf("fail to decrypt descriptor: %w", err)
	}
	return descriptor, nil
}

func (bs *BlockStorage) DeleteDescriptorBackup(scope types.Scope, walletID string) error {
	return bs.DeleteFile(backupFileName(scope, walletID))
}

func (bs *BlockStorage) FileExist(fileName string) (bool, error) {
	_, err := bs.s3Client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(bs.cfg.BlockStorage.Bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (bs *BlockStorage) UploadFileWithRetry(fileContent []byte, fileName string, retry int) error {
	var err error
	for i := 0; i < retry; i++ {
		err = bs.UploadFile(fileContent, fileName)
		if err == nil {
			return nil
		}
		bs.logger.Error(err)
	}
	return err
}

func (bs *BlockStorage) UploadFile(fileContent []byte, fileName string) error {
	bs.logger.Infoln("upload file", fileName, "bucket", bs.cfg.BlockStorage.Bucket, "content length", len(fileContent))
	output, err := bs.s3Client.PutObjectWithContext(context.TODO(), &s3.PutObjectInput{
		Bucket:        aws.String(bs.cfg.BlockStorage.Bucket),
		Key:           aws.String(fileName),
		Body:          aws.ReadSeekCloser(bytes.NewReader(fileContent)),
		ContentLength: aws.Int64(int64(len(fileContent))),
	})
	if err != nil {
		bs.logger.Error(err)
		return err
	}
	if output != nil {
		bs.logger.Infof("upload file %s success, version id: %s", fileName, aws.StringValue(output.VersionId))
	}
	return nil
}

func (bs *BlockStorage) GetFile(fileName string) ([]byte, error) {
	output, err := bs.s3Client.GetObjectWithContext(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(bs.cfg.BlockStorage.Bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		bs.logger.Error("error getting file: ", err)
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			bs.logger.Error(err)
		}
	}()
	return io.ReadAll(output.Body)
}

func (bs *BlockStorage) DeleteFile(fileName string) error {
	_, err := bs.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(bs.cfg.BlockStorage.Bucket),
		Key:    aws.String(fileName),
	})
	if err != nil {
		bs.logger.Error(err)
		return err
	}
	bs.logger.Infof("delete file %s success", fileName)
	return nil
}
