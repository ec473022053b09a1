// Package chronicle is an append-only, content-addressed event log stored as
// newline-delimited JSON files. Writers from many processes serialize on a
// side-car lock file and publish each append with an atomic rename, so
// readers never lock and never see a partial record.
package chronicle
