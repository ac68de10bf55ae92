// Package core runs the landings journeys on top of the landing and session
// packages. It is independent of any transport: web handlers, the Lambda
// entry point and tests all drive the same [Service].
//
// # Flows
//
//   - Upload: [Service.UploadLandings] parses and validates a file under an
//     [UploadLimiter] slot and caches the rows for the preview page.
//   - Save: [Service.SaveLandingRows] re-validates and consolidates the rows
//     into the document's draft, then drops the cached upload.
//   - Edit: [Service.StageLanding] keeps a half-finished landing in the
//     session; [Service.LandingForEdit] shows it over the persisted copy;
//     [Service.CommitLanding] writes it to the draft once complete.
//
// # Errors
//
// [MapError] turns any error from these flows into a [UserMessage] with a
// support code. Landing kinds map to LND codes, reference service failures
// to REF001, and anything unknown to ERR000.
//
// # Maintenance
//
// [StartSessionSweeper] purges stale session state for stores that have no
// native expiry.
package core
