// Package minio provides a blobstore.BlobStore backed by MinIO or any
// S3-compatible object storage.
//
// Example:
//
//	client, err := minio.New("play.min.io", &minio.Options{
//	    Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	if err != nil {
//	    return err
//	}
//	store := miniostore.NewStore(client, "my-bucket", "altcache/")
package minio
