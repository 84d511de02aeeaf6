// Package links maintains the load path: one symlink per installed exec name,
// pointing at the artifact a bridge reported. Links are replaced with a
// symlink-then-rename so the swap is atomic on POSIX filesystems.
package links
