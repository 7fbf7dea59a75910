// Package harness runs shape conformance scenarios.
//
// A scenario declares one shape and the behaviour expected of it: whether
// an input payload matches, the SQL it compiles to, how a raw database
// result reshapes, and optionally what a seeded SQLite database returns
// for it end to end.
//
// # Scenario Format
//
//	name: folder_filter
//	description: "Filters on folder are bound, not selected"
//	dialect: mssql
//	shape:
//	  folder:
//	    datejoinedcomp: ~
//	    folderref: MYREF
//	input:
//	  folder: {datejoinedcomp: "2019-04-06", folderref: MYREF}
//	result:
//	  convert_to_object_folder: [{datejoinedcomp: "2019-04-06"}]
//	fixtures:
//	  - table: UPMFOLDER
//	    rows: [{folderID: F1, folderref: MYREF, datejoinedcomp: "2019-04-06"}]
//	anchor_id: F1
//	expect:
//	  ok: true
//	  sql: "SELECT (SELECT TOP 1 datejoinedcomp FROM UPMFOLDER folder1 ..."
//	  binds: [MYREF]
//	  reshaped: {folder: {datejoinedcomp: "2019-04-06"}}
//	  fetched: {folder: {datejoinedcomp: "2019-04-06"}}
//
// Each expect field is checked only when present. SQL is compared with
// runs of whitespace collapsed, so expected statements may be wrapped.
//
// Fixtures always run against a fresh in-memory SQLite database with the
// sqlite dialect, whatever dialect the scenario compiles for.
//
// # Golden Files
//
// RunWithGolden snapshots the result as canonical JSON under
// testdata/golden/<name>.golden.
package harness
