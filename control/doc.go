// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload, metrics and debug introspection for the thread
// layer.
//
// Provides:
//   - Typed Config loaded from defaults, HIOLOAD_THREAD_* variables and files
//   - ConfigStore with immutable snapshots and reload listeners
//   - File watching for hot-reload
//   - Prometheus collectors implementing api.ThreadMetrics
//   - Debug probe registration, including platform scheduling limits
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
