// Package store persists installed package records in SQLite.
//
// The schema lives in migrations/ and is applied with golang-migrate every
// time the store is opened. There is one row per exec name; each row records
// the bridge, input and options it was installed with and the artifact the
// bridge reported. Rows are written only after the filesystem effects they
// describe are complete, so a crash leaves at worst an orphaned artifact and
// never a row pointing at nothing. A row flagged pending_removal belongs to a
// remove that did not finish and is removed again on the next run.
package store
