// Package types defines the data model shared by every bridgepm package:
// declared packages and their options, installed package records, bridge
// handles, operation outcomes and reconciliation reports.
package types
