// Package similarity implements the content-type specific comparison
// functions used when verifying a submission against registered content.
//
// Text is compared lexically: both documents are vectorised with TF-IDF over
// the two-document corpus and the cosine of the vectors is the score.
//
// Images are compared perceptually: both are downsampled to an 8x8 grid,
// converted to luminance and compared cell by cell.
//
// Every score lies in [0, 1]. A non-nil error means the pair could not be
// compared at all.
package similarity
