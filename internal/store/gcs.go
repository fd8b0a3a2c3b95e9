package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/storage/v1"
)

// GCS keeps one JSON blob per (profile, table) in a Cloud Storage bucket,
// named <profile>/<table>.json. A missing object is an empty table.
type GCS struct {
	svc    *storage.Service
	bucket string
}

func NewGCS(svc *storage.Service, bucket string) *GCS {
	return &GCS{svc: svc, bucket: bucket}
}

func (s *GCS) object(profile, table string) string {
	return profile + "/" + table + ".json"
}

func (s *GCS) Get(ctx context.Context, profile, table string) (map[string]string, error) {
	name := s.object(profile, table)

	resp, err := s.svc.Objects.Get(s.bucket, name).Context(ctx).Download()
	if isNotFound(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: downloading %s", name)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "store: downloading %s", name)
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "store: decoding %s", name)
	}
	return m, nil
}

func (s *GCS) Put(ctx context.Context, profile, table string, m map[string]string) error {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "store: encoding %s/%s", profile, table)
	}

	name := s.object(profile, table)
	obj := &storage.Object{Name: name}
	_, err = s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType("application/json")).
		Context(ctx).
		Do()
	return errors.Wrapf(err, "store: uploading %s", name)
}

func (s *GCS) DeleteKey(ctx context.Context, profile, table, key string) error {
	m, err := s.Get(ctx, profile, table)
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.Put(ctx, profile, table, m)
}

func isNotFound(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusNotFound
	}
	return false
}
