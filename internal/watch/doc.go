// Package watch implements deployctl's watch mode. It subscribes to the
// files of an entrypoint's dependency set, debounces bursts of changes,
// restarts the supervised process once the burst settles and follows the
// dependency set as imports are added or removed.
package watch
