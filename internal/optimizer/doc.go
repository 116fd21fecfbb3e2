// Package optimizer plans board purchases for a woodworking cut list.
//
// Pieces are grouped by material and thickness, each group is matched to one
// catalog board, and the pieces are packed onto as few boards as possible with
// first-fit decreasing, charging a saw kerf per cut. Degraded outcomes such as
// unknown materials or oversized pieces surface as suggestions on the Result
// rather than as errors.
package optimizer
