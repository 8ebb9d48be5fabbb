package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"bluewar-ledger/config"
	"bluewar-ledger/utils"
)

// SeedSource yields the raw bytes of the baseline records file.
// Fetch returns ErrSeedNotFound when there is nothing to read.
type SeedSource interface {
	Fetch(ctx context.Context) ([]byte, error)
	Describe() string
}

type FileSeedSource struct {
	Path string
}

func (s FileSeedSource) Fetch(ctx context.Context) ([]byte, error) {
	b, err := utils.ReadFileIfExists(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSeedNotFound
	}
	return b, err
}

func (s FileSeedSource) Describe() string { return "file:" + s.Path }

type HTTPSeedSource struct {
	URL          string
	ServiceToken string
	Client       *http.Client
}

func (s HTTPSeedSource) Fetch(ctx context.Context) ([]byte, error) {
	b, err := utils.FetchBytes(ctx, s.Client, s.URL, s.ServiceToken)
	if errors.Is(err, utils.ErrRemoteNotFound) {
		return nil, ErrSeedNotFound
	}
	return b, err
}

func (s HTTPSeedSource) Describe() string { return s.URL }

// objectGetter is the part of utils.ObjectStore the seed source needs.
type objectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type ObjectSeedSource struct {
	Store  objectGetter
	Bucket string
	Key    string
}

func (s ObjectSeedSource) Fetch(ctx context.Context) ([]byte, error) {
	b, err := s.Store.Get(ctx, s.Key)
	if errors.Is(err, utils.ErrObjectNotFound) {
		return nil, ErrSeedNotFound
	}
	return b, err
}

func (s ObjectSeedSource) Describe() string { return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key) }

// NewSeedSource picks object storage, then URL, then the local file.
func NewSeedSource(ctx context.Context, cfg config.SeedConfig) (SeedSource, error) {
	switch {
	case cfg.S3Bucket != "":
		store, err := utils.NewObjectStore(ctx, utils.ObjectStoreConfig{
			Bucket:          cfg.S3Bucket,
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
		})
		if err != nil {
			return nil, err
		}
		return ObjectSeedSource{Store: store, Bucket: cfg.S3Bucket, Key: cfg.S3Key}, nil
	case cfg.URL != "":
		return HTTPSeedSource{URL: cfg.URL, ServiceToken: cfg.ServiceToken}, nil
	default:
		return FileSeedSource{Path: cfg.Path}, nil
	}
}
