package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	cases := []struct {
		name     string
		location string
		bucket   string
		wantB    string
		wantK    string
		wantErr  bool
	}{
		{name: "ok", location: "s3://imgs/profile/u1/a.png", bucket: "imgs", wantB: "imgs", wantK: "profile/u1/a.png"},
		{name: "any bucket", location: "s3://other/k", wantB: "other", wantK: "k"},
		{name: "bad scheme", location: "https://imgs/k", wantErr: true},
		{name: "no bucket", location: "s3:///k", wantErr: true},
		{name: "mismatch", location: "s3://other/k", bucket: "imgs", wantErr: true},
		{name: "no key", location: "s3://imgs", wantErr: true},
		{name: "empty key", location: "s3://imgs/", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, k, err := ParseLocation(tc.location, tc.bucket)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantB, b)
			assert.Equal(t, tc.wantK, k)
		})
	}
}

func TestLocationRoundTrip(t *testing.T) {
	loc := Location("imgs", "/profile/u1/a.png")
	assert.Equal(t, "s3://imgs/profile/u1/a.png", loc)

	b, k, err := ParseLocation(loc, "imgs")
	require.NoError(t, err)
	assert.Equal(t, "imgs", b)
	assert.Equal(t, "profile/u1/a.png", k)
}

func TestS3Service_GetObjectURLPresignsOffline(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	svc := NewS3Service(client)

	url, err := svc.GetObjectURL(context.Background(), "imgs", "profile/u1/a.png", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/imgs/profile/u1/a.png?"), url)
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestS3Service_RejectsMissingArgs(t *testing.T) {
	svc := NewS3Service(s3.New(s3.Options{Region: "us-east-1"}))
	ctx := context.Background()

	_, err := svc.UploadObject(ctx, strings.NewReader("x"), UploadOptions{Key: "k"})
	assert.Error(t, err)
	_, err = svc.UploadObject(ctx, strings.NewReader("x"), UploadOptions{Bucket: "b"})
	assert.Error(t, err)
	assert.Error(t, svc.DeletePrefix(ctx, "b", " "))
	_, err = svc.GetObjectURL(ctx, "", "k", time.Minute)
	assert.Error(t, err)
}
