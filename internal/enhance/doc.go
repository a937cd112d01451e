// Package enhance submits finished recordings to the remote enhancement
// service. It supports a buffered mode, where the server returns a result
// descriptor and the enhanced audio is fetched separately by file id, and a
// streamed mode, where the response body is the enhanced audio itself.
//
// Failures at the network boundary abort the submission and surface a single
// error; no retries happen at this layer.
package enhance
