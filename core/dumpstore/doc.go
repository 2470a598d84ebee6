// Package dumpstore archives minidump files captured by core/debugloop to
// S3-compatible object storage using aws-sdk-go-v2, content-addressing each
// upload with a BLAKE2b hash (golang.org/x/crypto/blake2b): the object key
// combines a prefix of the hash with the dump's file name, so archiving the
// same file again overwrites the same object.
//
// # Usage
//
//	archiver, err := dumpstore.New(ctx, dumpstore.Config{
//		Bucket: "nativecov-dumps",
//		Region: "us-east-1",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	archived, err := archiver.Archive(ctx, dumpPath)
//	if err != nil {
//		log.Printf("dump archival failed: %v", err)
//		return
//	}
//
//	dump := runhistory.Dump{
//		ContentHash: archived.ContentHash,
//		Location:    archived.Key,
//		CapturedAt:  archived.UploadedAt,
//	}
package dumpstore
