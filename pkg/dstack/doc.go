// Package dstack reduces a set of dithered detector exposures of the
// same field into one combined image with per-pixel variance and
// coverage planes.
//
// The reduction is an iterative refinement loop. Each cycle registers
// the frames onto a common canvas, derives a superflat from the frames
// themselves, estimates and subtracts the sky background, and stacks
// the corrected frames with a masked, extinction-scaled median. The
// combined image of one cycle is handed to an external source detector
// whose object mask feeds the flat and sky estimators of the next
// cycle, so astronomical sources stop contaminating the background
// statistics as the iterations proceed.
package dstack
