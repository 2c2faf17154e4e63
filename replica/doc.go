// Package replica implements the remote side of commit-and-sync.
//
// A Syncer pushes snapshots of the local database file to a remote replica
// and pulls them back. Two transports are provided:
//
//   - HTTP/HTTPS: snapshots are POSTed to and GETed from a replica endpoint
//     (see cmd/replicad), authenticated with a bearer token.
//   - S3: the snapshot and a JSON metadata sidecar are stored as objects in
//     a bucket.
//
// The transport is selected from the remote URL scheme:
//
//	syncer, err := replica.New("https://db.example.com", token, nil)
//	syncer, err := replica.New("s3://bucket/prefix/app.db", "", nil)
//
// Each committed state is identified by a generation ID; a pull is a no-op
// when the remote generation matches the one last seen locally.
package replica
