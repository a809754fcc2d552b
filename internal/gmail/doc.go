// Package gmail provides the mail gateway: composing a single-attachment
// message and dispatching it through the Gmail API.
//
// The message is built in RFC 2822 multipart/mixed form with a plain text
// body and a base64 attachment part, then base64url-encoded into the Raw
// field the Gmail send endpoint expects. There is no retry and no delivery
// confirmation beyond acceptance by the remote service.
package gmail
