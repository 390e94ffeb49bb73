package render

import (
	"fmt"
	"io"

	"github.com/Brownie44l1/fruits/internal/api"
)

// Banner heads the output of the CLI test client.
const Banner = "🍓 Fruit Classifier API Test\n============================\n"

func WriteHealth(w io.Writer, h *api.Health, err error) {
	if err != nil {
		fmt.Fprintln(w, "❌ API unavailable")
		fmt.Fprintf(w, "   %v\n", err)
		return
	}
	fmt.Fprintf(w, "✅ API Status: %s\n", h.Status)
	fmt.Fprintf(w, "   Model loaded: %t\n", h.ModelLoaded)
}

func WritePrediction(w io.Writer, path string, p *api.Prediction) {
	fmt.Fprintln(w, "✅ Prediction successful!")
	fmt.Fprintf(w, "   Image: %s\n", path)
	fmt.Fprintf(w, "   Prediction: %s\n", p.Prediction)
	fmt.Fprintf(w, "   Confidence: %.2f%%\n", p.Confidence*100)
	fmt.Fprintln(w, "   All probabilities:")
	for _, row := range Breakdown(p) {
		fmt.Fprintf(w, "     - %s: %.2f%%\n", row.Name, row.Probability*100)
	}
}

func WriteFileNotFound(w io.Writer, path string) {
	fmt.Fprintf(w, "❌ File not found: %s\n", path)
}

func WriteError(w io.Writer, err error) {
	fmt.Fprintf(w, "❌ Error: %v\n", err)
}

// WriteUsage explains how to call the test client without arguments.
func WriteUsage(w io.Writer, command string) {
	fmt.Fprintf(w, "Usage: %s <image1.jpg> [image2.jpg ...]\n", command)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example test images:")
	fmt.Fprintf(w, "  %s data/01_raw/Banana/*.jpg\n", command)
}
