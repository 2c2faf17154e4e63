// Package lighter bridges in-memory frames with a local SQLite database
// that stays in sync with a remote replica.
//
// Every write runs inside one transaction; a successful commit pushes a
// snapshot of the local database to the remote, so the replica always
// reflects the last committed state. Reads pull the latest remote state
// first when a remote is configured.
//
// # Quick Start
//
// One-shot writes and reads against a connection URL:
//
//	frame := core.NewFrame([]core.Column{
//	    {Name: "id", Type: core.IntType, PrimaryKey: true},
//	    {Name: "problem", Type: core.StringType},
//	})
//	frame.Append(int64(1), "sync test")
//
//	url := "libsql:///hello.db?host=db.example.com:443&password=TOKEN"
//	_, err := lighter.WriteFrameCommitSync(ctx, frame, url, db.WriteOptions{
//	    Table:    "food_safety",
//	    IfExists: db.IfExistsReplace,
//	})
//
//	got, err := lighter.ReadTableFrame(ctx, "food_safety", url)
//
// For repeated operations, open an engine once:
//
//	engine, err := lighter.OpenURL(url)
//	defer engine.Close()
//
// The remote endpoint and auth token fall back to the LIBSQL_URL and
// LIBSQL_AUTH_TOKEN environment variables when the URL omits them. There is
// no process-global engine; every engine is an independently lifetimed
// object, so multiple destinations can be used side by side.
//
// The asynchronous facade in package async exposes the same operation set
// through a single-worker event loop with futures.
package lighter
