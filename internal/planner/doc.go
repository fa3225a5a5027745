// Package planner turns scanned references into an ordered rename plan.
//
// The plan is pure data. It is computed against the workspace as scanned,
// before anything moves, and is executed unchanged by the transaction
// executor or printed by a dry run.
//
// Key responsibilities:
//   - Lower each reference kind to a manifest field, text span, move or
//     member list operation
//   - Rebase path dependencies onto the post-move layout
//   - Order text edits before the move and member list edits last
//   - Drop operations that would not change anything
//   - Detect overlapping edits in one file
package planner
