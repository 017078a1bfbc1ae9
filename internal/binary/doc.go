// Package binary turns a set of release asset URLs into linked commands.
//
// The pipeline, in order:
//   - Scorer: picks one asset URL for the running platform
//   - Downloader: streams the asset into the cache directory
//   - ChecksumResolver and Verifier: find a reference SHA-256 digest in
//     sidecar files and compare it with the download
//   - Extractor: unpacks a tar-family or zip archive, or places a standalone
//     executable, into the data directory
//   - Discoverer: finds the executable files in the extracted tree
//   - Materializer: links them into the bin directory
//
// None of these types persist state; the service package records what they
// produced.
package binary
