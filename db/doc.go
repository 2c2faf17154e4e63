// Package db provides the engine at the center of libsql-lighter.
//
// An Engine owns one local SQLite database file and, optionally, a remote
// replica. Writes run inside a transactional scope; a successful commit
// pushes a snapshot of the local file to the remote. Reads pull the latest
// remote state first when a remote is configured.
//
// # Engine Usage
//
//	cfg, err := db.ParseURL("libsql:///hello.db?host=db.example.com:443&password=TOKEN")
//	engine, err := db.NewEngine(cfg)
//	defer engine.Close()
//
//	result, err := engine.WriteFrame(ctx, frame, db.WriteOptions{
//	    Table:    "food_safety",
//	    IfExists: db.IfExistsReplace,
//	})
//
//	frame, err := engine.ReadTable(ctx, "food_safety", db.ReadOptions{})
//
// Connection configuration follows the URL grammar
//
//	<scheme>[+<driver>]:///<local-path>?host=<host>:<port>&password=<token>
//
// with LIBSQL_URL and LIBSQL_AUTH_TOKEN as environment fallbacks for the
// remote endpoint and auth token.
package db
