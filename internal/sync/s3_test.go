package sync

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Destination_Write(t *testing.T) {
	fake := &fakePutter{}
	dest := newS3Destination(fake, "backups", "relaynotes/events.jsonl")
	if dest.Name() != "s3" {
		t.Errorf("Name() = %q", dest.Name())
	}

	data := []byte("{\"type\":\"header\"}\n{\"type\":\"event\"}\n")
	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if aws.ToString(fake.in.Bucket) != "backups" || aws.ToString(fake.in.Key) != "relaynotes/events.jsonl" {
		t.Errorf("object = %s/%s", aws.ToString(fake.in.Bucket), aws.ToString(fake.in.Key))
	}
	if aws.ToString(fake.in.ContentType) != "application/x-ndjson" {
		t.Errorf("ContentType = %q", aws.ToString(fake.in.ContentType))
	}
	if aws.ToInt64(fake.in.ContentLength) != int64(len(data)) {
		t.Errorf("ContentLength = %d", aws.ToInt64(fake.in.ContentLength))
	}
	if fake.in.Metadata["export-events"] != "1" {
		t.Errorf("metadata = %v", fake.in.Metadata)
	}
	if string(fake.body) != string(data) {
		t.Errorf("body = %q", fake.body)
	}
}

func TestS3Destination_WriteError(t *testing.T) {
	boom := errors.New("access denied")
	dest := newS3Destination(&fakePutter{err: boom}, "b", "k")

	err := dest.Write(context.Background(), []byte("{}\n"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
