/*
Package filesystem reads the media roots with retries for NFS stale file
handles.

Catalogued folders often live on network shares. When the server replaces a
directory or file behind an open handle, os calls fail with ESTALE even
though a fresh lookup would succeed. StatWithRetry, OpenWithRetry and
ReadDirWithRetry repeat the call with exponential backoff in that case and
fail at once on any other error:

	info, err := filesystem.StatWithRetry(folder, filesystem.DefaultRetryConfig())

The defaults allow 3 retries, starting at 50ms and doubling up to 500ms.

# Metrics

Every operation is reported to the Observer installed with SetObserver,
labelled with the volume its path belongs to. Volumes come from the
VolumeResolver installed with SetDefaultVolumeResolver, or from
RetryConfig.VolumeResolver; the server labels each media root "media" and
the database directory "database". Paths outside them are "unknown".

The scanner reads folders through this package; a folder that still fails
after its retries marks its items offline instead of aborting the scan.
*/
package filesystem
