// Package minio stores chunk files and manifests in any S3-compatible object
// store reachable through the MinIO client (MinIO, Ceph RGW, Garage,
// SeaweedFS). It does not pull in the AWS SDK.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := minioblob.NewStore(client, "datasets", "train/")
//	w, err := chunkstore.NewWriter(ctx, chunkstore.Remote(store),
//	    chunkstore.WithChunkBytesString("64MB"))
//
// Every object is uploaded in a single PutObject call, so a reader either
// sees a complete chunk or none at all. Keys are the blob names joined to the
// store's prefix.
package minio
