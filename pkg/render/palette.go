package render

import "strings"

// Fill colors by layer family. Both engines use them so that a network
// looks the same whichever renderer drew it.
const (
	ColorConv      = "#dbeafe"
	ColorPool      = "#e0f2fe"
	ColorDense     = "#dcfce7"
	ColorOutput    = "#bbf7d0"
	ColorRecurrent = "#fef3c7"
	ColorNorm      = "#f3e8ff"
	ColorDropout   = "#f1f5f9"
	ColorReshape   = "#fae8ff"
	ColorAttention = "#ffe4e6"
	ColorDefault   = "#ffffff"

	// ColorInvalid fills layers whose shape could not be inferred.
	ColorInvalid = "#fee2e2"
)

// KindColor returns the fill color for a layer kind. Matching ignores case.
func KindColor(kind string) string {
	k := strings.ToLower(kind)
	switch {
	case k == "output":
		return ColorOutput
	case k == "dense" || k == "embedding":
		return ColorDense
	case strings.HasPrefix(k, "conv"):
		return ColorConv
	case strings.Contains(k, "pooling") || k == "upsampling1d" || k == "upsampling2d" || k == "upsampling3d":
		return ColorPool
	case k == "lstm" || k == "gru" || k == "simplernn" || k == "bidirectional" || k == "timedistributed":
		return ColorRecurrent
	case strings.Contains(k, "norm"):
		return ColorNorm
	case strings.Contains(k, "dropout"):
		return ColorDropout
	case k == "flatten" || k == "reshape":
		return ColorReshape
	case strings.Contains(k, "transformer") || strings.Contains(k, "attention"):
		return ColorAttention
	}
	return ColorDefault
}
