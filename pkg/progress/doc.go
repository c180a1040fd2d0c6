// Package progress turns the unstructured output streams of external
// provisioning and configuration-management tools into a single, strictly
// non-decreasing completion percentage with an estimated time remaining.
//
// A Tracker owns the per-step monotonicity state of one running operation
// and appends every emission as a JSON record to the workspace's
// append-only progress log. Stage step tables convert per-step percentages
// into a weighted overall percentage. Line parsers recognize tool-specific
// structural markers while passing every line through to the operator's
// terminal unmodified, and the Runner wraps the external process so its
// exit status is always read from the process handle rather than from any
// stage of the output pipeline.
package progress
