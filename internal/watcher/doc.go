// Package watcher re-runs the index update when documents change.
//
// It watches the docs directory recursively with fsnotify, ignores
// excluded directories and files without an indexed extension, and waits
// for a quiet period before calling its trigger once per burst. The
// update itself is differential, so the watcher does not track which
// paths changed.
package watcher
