// Package ui implements a terminal job monitor using bubbletea's Elm architecture.
//
// The [Model] follows a single scrape through three views:
//  1. [WatchView] : poll the task status and render the progress bar
//  2. [SongsView] : browse the scraped songs once the task succeeds
//  3. [FailedView] : show the failure reported by the worker
//
// Polling is driven by tick messages, so the model never blocks inside Update.
// Keyboard navigation uses vim-style bindings (j/k, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
