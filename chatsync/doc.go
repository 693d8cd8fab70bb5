// Package chatsync keeps a chat pane scrolled in step with video playback.
//
// An archive's chat transcript is indexed once by timestamp (BuildIndex). A
// Synchronizer polls a Clock, locates the first line at or after the current
// playback position (Locate, a lower-bound binary search) and scrolls the Pane
// so that line sits just below the visible area, leaving the recent past in
// view.
//
// Scrolling runs in one of two states. In Auto the synchronizer drives the
// pane. Any scroll event the synchronizer did not cause itself moves it to
// Manual, which freezes automatic scrolling and shows the resume Affordance
// until Reset is called.
//
// All Synchronizer methods are serialised, so a tick and a scroll event never
// interleave. Pane implementations must deliver scroll events by calling
// HandleScroll after the current Synchronizer call has returned, the way a
// browser queues scroll events behind the running task.
package chatsync
