// Package genai provides an HTTP client for the remote generation service
// (Gemini-style REST API) used by recut's chat agent and remote pipeline.
//
// This package is used by:
//   - Chat agent: turn conversational edit requests into JSON operation lists
//   - Stylize stage: reference-guided frame stylization (image in, image out)
//   - Video generate stage: asynchronous video synthesis with operation polling
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// Client.CompleteJSONParts: same, with multimodal user content (text + images).
// Client.EditImage: submit a prompt plus input images, receive image bytes.
// Client.StartVideo: begin a long-running video synthesis operation.
// Client.PollOperation: fetch the current state of a video operation.
// Client.DownloadVideo: retrieve the finished clip from its result URI.
// Client.HealthCheck: verify the API key and chat model are usable.
//
// # Retry Behaviour
//
// Synchronous calls retry on HTTP 408/429/5xx errors and network timeouts
// with exponential backoff (base 1s, max 10s, up to 5 attempts by default),
// honouring Retry-After. Context cancellation aborts retries immediately.
// Operation polling cadence is owned by the caller, not this client.
//
// # Fallback
//
// The mock pipeline never constructs this client; jobs created with the mock
// pipeline run entirely on local ffmpeg.
package genai
