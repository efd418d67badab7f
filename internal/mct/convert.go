package mct

import "golang.org/x/exp/constraints"

// numeric is the set of sample representations a tile component can carry:
// reversible paths use integer types, irreversible paths use float64.
type numeric interface {
	constraints.Integer | constraints.Float
}

// Convert copies src into dst element-by-element, converting between any
// pair of integer/float sample representations used across the MCT and DWT
// boundary (int16 raw samples, int32 wavelet coefficients, float64 ICT
// intermediates). Rounding follows round-half-away-from-zero when the
// destination type is an integer, matching ConvertFloat64ToInt32.
func Convert[S, D numeric](src []S, dst []D) {
	var d D
	_, dstIsFloat := any(d).(float64)
	if !dstIsFloat {
		if _, ok := any(d).(float32); ok {
			dstIsFloat = true
		}
	}
	for i, v := range src {
		if dstIsFloat {
			dst[i] = D(v)
			continue
		}
		f := float64(v)
		if f >= 0 {
			dst[i] = D(f + 0.5)
		} else {
			dst[i] = D(f - 0.5)
		}
	}
}
