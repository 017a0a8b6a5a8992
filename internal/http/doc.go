// Package http provides HTTP handlers and middleware for the roster API.
//
// Weeks are addressed by their Sunday start date in the path and a timezone
// id in the `tz` query parameter (defaulting to the configured base zone):
//   - GET /weeks?kind=live: lists stored weeks of one kind.
//   - GET /weeks/{weekStart}: returns {"stage","live"}; either may be null.
//   - PUT /weeks/{weekStart}/stage: saves the request body document as the
//     stage copy. The body's `updatedAt` is the expected token; empty creates.
//   - POST /weeks/{weekStart}/stage/reset: replaces the stage with a copy of live.
//   - POST /weeks/{weekStart}/publish: body {"stage", "options"}; copies the
//     stage to live and rebases the stored stage.
//   - POST /weeks/{weekStart}/shifts, PUT|DELETE /weeks/{weekStart}/shifts/{id},
//     POST /weeks/{weekStart}/shifts/move: single shift edits on the stage.
//   - GET /weeks/{weekStart}/diff, /compliance, /coverage: read-only reports.
//   - GET|POST /weeks/{weekStart}/snapshots, GET /snapshots/{id}: archives.
//   - GET /metrics, GET /healthz.
//
// Stale tokens and blocked overlaps answer 409 with the service result in
// `result`. Every method other than GET and HEAD requires
// `Authorization: Bearer <write token>` when a verifier is configured.
package http
