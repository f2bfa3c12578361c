package render

import "fmt"

// Fit is a center crop of the source followed by a scale to the exact target
// size. The frame is always filled; nothing is letterboxed.
type Fit struct {
	CropW, CropH int
	CropX, CropY int
	OutW, OutH   int
}

// CenterFit computes the largest centered rectangle of the source with the
// target aspect ratio.
func CenterFit(srcW, srcH, dstW, dstH int) (Fit, error) {
	if srcW <= 0 || srcH <= 0 {
		return Fit{}, fmt.Errorf("source dimensions %dx%d are invalid", srcW, srcH)
	}
	if dstW <= 0 || dstH <= 0 {
		return Fit{}, fmt.Errorf("target dimensions %dx%d are invalid", dstW, dstH)
	}

	cropW, cropH := srcW, srcH
	// Compare srcW/srcH with dstW/dstH without floating point.
	switch lhs, rhs := srcW*dstH, dstW*srcH; {
	case lhs > rhs:
		cropW = even(srcH * dstW / dstH)
	case lhs < rhs:
		cropH = even(srcW * dstH / dstW)
	}

	f := Fit{
		CropW: cropW,
		CropH: cropH,
		CropX: (srcW - cropW) / 2,
		CropY: (srcH - cropH) / 2,
		OutW:  dstW,
		OutH:  dstH,
	}
	if err := f.check(srcW, srcH); err != nil {
		return Fit{}, err
	}
	return f, nil
}

func (f Fit) check(srcW, srcH int) error {
	if f.CropW <= 0 || f.CropH <= 0 {
		return fmt.Errorf("crop %dx%d is empty", f.CropW, f.CropH)
	}
	if f.CropX < 0 || f.CropY < 0 || f.CropX+f.CropW > srcW || f.CropY+f.CropH > srcH {
		return fmt.Errorf("crop %dx%d+%d+%d exceeds source %dx%d", f.CropW, f.CropH, f.CropX, f.CropY, srcW, srcH)
	}
	return nil
}

// NoCrop reports whether the source already has the target aspect ratio.
func (f Fit) NoCrop(srcW, srcH int) bool {
	return f.CropW == srcW && f.CropH == srcH
}

func (f Fit) Filters(srcW, srcH int) []string {
	out := make([]string, 0, 3)
	if !f.NoCrop(srcW, srcH) {
		out = append(out, fmt.Sprintf("crop=%d:%d:%d:%d", f.CropW, f.CropH, f.CropX, f.CropY))
	}
	out = append(out, fmt.Sprintf("scale=%d:%d", f.OutW, f.OutH), "setsar=1")
	return out
}

// even rounds down to an even number; yuv420p needs even dimensions.
func even(n int) int {
	if n <= 1 {
		return n
	}
	return n &^ 1
}
