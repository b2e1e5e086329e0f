package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesOptions(t *testing.T) {
	_, err := NewClient(Options{Bucket: "feeds"})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewClient(Options{Endpoint: "http://localhost:9000"})
	assert.ErrorContains(t, err, "bucket")

	c, err := NewClient(Options{Endpoint: "http://localhost:9000/", Bucket: "feeds"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", c.publicBaseURL)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/feeds/calendars/p-1.ics", ObjectURL("https://cdn.example.com/", "feeds", "/calendars/p-1.ics"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "minio:9000", hostOf("http://minio:9000"))
	assert.Equal(t, "minio:9000", hostOf("minio:9000"))
}

func TestPutRejectsEmptyKey(t *testing.T) {
	c, err := NewClient(Options{Endpoint: "http://localhost:9000", Bucket: "feeds"})
	require.NoError(t, err)
	_, err = c.Put(context.Background(), " / ", []byte("x"), "text/plain")
	assert.ErrorContains(t, err, "object key is required")
}
