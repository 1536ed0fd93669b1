// Package core defines the domain model shared by the audit-log pipeline.
//
// # Overview
//
// An audit log is a sequence of records. Each record is split into lettered
// sections (A through K) and closed by a terminal Z marker:
//
//	--5a3b9c1d-A--
//	[20/Mar/2013:10:12:55 +0100] UUzB9n8AAQEAAE4iIsEAAAAA 10.0.0.5 52118 10.0.0.1 80
//	--5a3b9c1d-B--
//	GET /index.php HTTP/1.1
//	Host: example.com
//	...
//	--5a3b9c1d-Z--
//
// The core package provides:
//   - Section labels and the boundary markers that locate them in a file
//   - The Record aggregate built while a record's sections are processed
//   - Field identifiers shared by extraction, dictionary encoding and storage
//   - Scorecards holding per-category rule-match scores
//   - Timestamp normalization for section A
//
// Types in this package carry no I/O. Parsing lives in ingest, scoring in
// detect, and persistence in storage.
package core
