package minioutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/treeq/storage"
	"github.com/wkalt/treeq/util/testutils"
)

/*
Package minioutil runs an embedded MinIO server for tests of the S3 document
source. The server serves a temporary directory and is stopped when the test
finishes.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	accessKeyID     = "minioadmin"
	secretAccessKey = "minioadmin"
	startTimeout    = 10 * time.Second
)

// Server is a running MinIO server with one bucket.
type Server struct {
	Client *mclient.Client
	Bucket string
	Addr   string
}

// Store returns an S3 store over the server's bucket.
func (s *Server) Store() storage.Provider {
	return storage.NewS3Store(s.Client, s.Bucket)
}

// NewServer starts a MinIO server on a free port and creates bucket.
func NewServer(t *testing.T, bucket string) *Server {
	t.Helper()
	ctx := context.Background()
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	addr := fmt.Sprintf("localhost:%d", port)
	admin, err := madmin.New(addr, accessKeyID, secretAccessKey, false)
	require.NoError(t, err)

	// minio calls os.Exit if its storage disappears while it is running, so
	// the directory is left to the test framework, which removes it after
	// the service has been stopped.
	dir := t.TempDir()
	go minio.Main([]string{"minio", "server", "--quiet", "--address", addr, dir})
	t.Cleanup(func() {
		if err := admin.ServiceStop(ctx); err != nil {
			t.Log(err)
		}
	})

	deadline := time.Now().Add(startTimeout)
	for {
		if _, err := admin.ServerInfo(ctx); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("minio did not start within %s", startTimeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	mc, err := mclient.New(addr, &mclient.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{}))
	return &Server{Client: mc, Bucket: bucket, Addr: addr}
}
