// Package filesystem provides the host implementation of types.FS.
package filesystem
