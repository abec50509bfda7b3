package render

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

const tinySVG = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`

func TestMissingConverter(t *testing.T) {
	old := converter
	converter = "neuralviz-no-such-converter"
	defer func() { converter = old }()

	if Available() {
		t.Fatal("Available() = true for a missing tool")
	}
	_, err := ToPDF(context.Background(), []byte(tinySVG))
	if err == nil || !strings.Contains(err.Error(), "requires librsvg") {
		t.Errorf("ToPDF error = %v, want install hint", err)
	}
}

func TestToPNG(t *testing.T) {
	if !Available() {
		t.Skip("rsvg-convert not installed")
	}
	png, err := ToPNG(context.Background(), []byte(tinySVG), 2)
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("ToPNG output does not start with the PNG signature")
	}
}
