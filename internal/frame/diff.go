package frame

import "image"

// Changed reports whether curr differs enough from prev to be worth
// pushing to viewers.
//
// A missing frame or a dimension mismatch always counts as changed: a
// resize must be shown regardless of pixel content. Otherwise the mean
// absolute per-channel difference over R, G and B, normalized by the
// maximum channel value, is compared strictly against threshold, so a
// threshold of zero fires on any detectable difference.
func Changed(prev, curr image.Image, threshold float64) bool {
	if prev == nil || curr == nil {
		return true
	}
	pb, cb := prev.Bounds(), curr.Bounds()
	w, h := pb.Dx(), pb.Dy()
	if w != cb.Dx() || h != cb.Dy() {
		return true
	}
	if w == 0 || h == 0 {
		return false
	}

	var sum uint64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pr, pg, pbl, _ := prev.At(pb.Min.X+x, pb.Min.Y+y).RGBA()
			cr, cg, cbl, _ := curr.At(cb.Min.X+x, cb.Min.Y+y).RGBA()
			// RGBA returns 16-bit channels; compare at 8-bit depth.
			sum += absDiff(pr>>8, cr>>8)
			sum += absDiff(pg>>8, cg>>8)
			sum += absDiff(pbl>>8, cbl>>8)
		}
	}
	mean := float64(sum) / float64(w*h*3)
	return mean/255.0 > threshold
}

func absDiff(a, b uint32) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
