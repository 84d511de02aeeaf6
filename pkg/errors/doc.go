// Package errors provides coded errors for bridgepm.
//
// Every failure that can reach a report or the command line carries an
// ErrorCode. Codes are stable and tests assert on them instead of on message
// text. CategoryOf maps a code onto the failure classes shown in reconciliation
// reports (bridge resolution, bridge execution, store, link, config).
package errors
