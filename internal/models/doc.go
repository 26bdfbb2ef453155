// Package models defines the persistent entities and value types of the playlist converter.
//
//   - [User] : local account with a bcrypt password hash and a pointer to the latest job
//   - [Job] : one submitted Spotify scrape, keyed by the queue's task id, holding the result once finished
//   - [Song] : one scraped track (title, artists, length) as stored in a job result
//
// Entities carry sqlx `db` tags and implement [Model] so repositories can validate them before writes.
package models
