// Package drive provides the Drive gateway used by the fetch-and-send and
// organize flows.
//
// The gateway covers exactly the operations those flows need: resolving a
// file name to an ID, streaming a file into the local download directory,
// uploading a local file into a folder, and listing candidate folders for
// classification. Folder listing is bounded to a fixed page size with no
// pagination.
//
// OAuth authentication comes from the shared credential store; tests inject
// a drive.Service pointed at a fake endpoint instead.
package drive
