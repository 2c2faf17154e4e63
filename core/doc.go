// Package core provides the tabular types used throughout libsql-lighter.
//
// The central type is Frame, an in-memory dataset of rows with named, typed
// columns. Frames are what the write path persists and what the read path
// materializes query results into.
//
// # Column Types
//
// Supported column types:
//   - StringType: Short strings (VARCHAR equivalent)
//   - TextType: Long text (TEXT equivalent)
//   - IntType: Integers
//   - FloatType: Floating point numbers
//   - BoolType: Boolean values (stored as 0/1)
//   - DateType, TimestampType: Date/time values (stored as RFC 3339 text)
//   - JsonType: JSON documents (stored as text)
//   - BlobType: Raw bytes
//
// # Building a Frame
//
//	frame := core.NewFrame([]core.Column{
//	    {Name: "id", Type: core.IntType, PrimaryKey: true},
//	    {Name: "problem", Type: core.StringType},
//	})
//	frame.Append(int64(1), "sync test")
package core
