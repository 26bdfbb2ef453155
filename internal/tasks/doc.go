// Package tasks runs playlist scrapes as background jobs on an asynq queue backed by Redis.
//
// # Lifecycle
//
// The web process calls [Queue.Enqueue] with the user's playlist input and receives a task ID.
// A [Worker] picks the task up and hands it to [Scraper.ProcessTask], which resolves the playlist,
// pages through its tracks and writes the collected [models.Song] list as the task result.
//
//	PENDING → PROGRESS → SUCCESS
//	                   ↘ FAILURE
//
// Tasks are enqueued without retries, so a failed scrape is archived and reported as FAILURE.
//
// # Progress Reporting
//
// The worker publishes [ProgressUpdate] values to a [ProgressStore] keyed by task ID. Stores reject
// an update whose Current is lower than the stored one, so pollers never observe progress going backwards.
//
// [Queue.Status] combines the asynq task state with the latest stored update into a [TaskStatus],
// the payload served by the poll endpoint and watched by the CLI.
package tasks
