// Package tasks assembles the weekly favorites playlist from a user's SoundCloud activity.
//
// # Core Operation
//
// [WeeklyEngine.Run] builds one playlist:
//
//  1. [WeekWindow] selects the ISO week (Monday 00:00 UTC to the following Monday)
//     relative to the current one
//  2. The configured feed (reposts, likes or stream) is walked newest first, page by page.
//     Items newer than the window are skipped and the first item older than its start
//     stops the walk
//  3. [CollectTrackIDs] groups track ids by activity type in the configured order and
//     drops duplicates, keeping the first position
//  4. Optionally, tracks the user already liked are removed
//  5. Track metadata is resolved in batches through [services.Client.AllTracks]
//  6. The playlist titled after the window is updated when it already exists, created otherwise.
//     A week without tracks still produces an (empty) playlist
//
// Hard failures from the client abort the run. Soft failures (undecodable pages)
// end the affected walk and are logged.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// Updates use select with default to prevent blocking.
package tasks
