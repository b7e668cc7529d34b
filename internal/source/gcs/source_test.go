package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{Bucket: "lists"})
	assert.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = New(client, Config{})
	assert.Error(t, err)

	src, err := New(client, Config{Bucket: "lists", Prefix: "safescrape/"})
	require.NoError(t, err)
	assert.Equal(t, "safescrape/nsfw.txt", src.ObjectName("nsfw.txt"))

	_, err = src.Open(context.Background(), "")
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "slurs.txt", "slurs.txt"},
		{"lists", "slurs.txt", "lists/slurs.txt"},
		{"lists/", "/slurs.txt", "lists/slurs.txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, objectName(tt.prefix, tt.name))
	}
}
