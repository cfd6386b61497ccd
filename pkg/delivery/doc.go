// Package delivery posts the pending message to a discovered receiver.
//
// The Engine holds at most one pending message and is driven by Tick from
// the control loop. Each gated attempt re-issues discovery and posts to
// every candidate in order until one answers with a 2xx status. Policy is
// purely time based: attempts are spaced by Interval, and the message is
// abandoned once Deadline has passed since it was submitted. There is no
// attempt counter.
//
// A submitted message becomes visible to Tick only on the following call,
// so a press observed in one loop iteration is never delivered within the
// same iteration.
package delivery
