// Package organize files uploaded PDFs into the best-matching Google
// Drive folder. It chains text extraction, folder listing, model-backed
// classification and the final upload, and refuses to upload when
// classification fails.
package organize
