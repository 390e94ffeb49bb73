// Package render turns prediction responses into display rows for the web front-end
// and the CLI test client.
package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Brownie44l1/fruits/internal/api"
)

// Row is one class in a probability breakdown.
type Row struct {
	Name        string
	Emoji       string
	Probability float64
	// Percent is Probability formatted with one decimal, e.g. "95.0%".
	Percent string
	// Width is the bar length in percent of the full bar, 0 to 100.
	Width int
}

var emojis = map[string]string{
	"Banana":     "🍌",
	"Strawberry": "🍓",
	"Watermelon": "🍉",
}

// DefaultEmoji is shown for classes without their own.
const DefaultEmoji = "🍎"

// Emoji returns the emoji of a class. Numbered names such as "Banana 1" share the
// emoji of their fruit.
func Emoji(class string) string {
	fields := strings.Fields(class)
	if len(fields) == 0 {
		return DefaultEmoji
	}
	if e, ok := emojis[fields[0]]; ok {
		return e
	}
	return DefaultEmoji
}

// Percent formats a probability with one decimal.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// Breakdown lists the probabilities of p, highest first. Equal probabilities are
// ordered by class name.
func Breakdown(p *api.Prediction) []Row {
	rows := make([]Row, 0, len(p.Probabilities))
	for name, prob := range p.Probabilities {
		rows = append(rows, Row{
			Name:        name,
			Emoji:       Emoji(name),
			Probability: prob,
			Percent:     Percent(prob),
			Width:       barWidth(prob),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Probability != rows[j].Probability {
			return rows[i].Probability > rows[j].Probability
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func barWidth(p float64) int {
	w := int(math.Round(p * 100))
	switch {
	case w < 0:
		return 0
	case w > 100:
		return 100
	}
	return w
}

// Level grades a confidence value.
type Level string

const (
	High   Level = "high"
	Medium Level = "medium"
	Low    Level = "low"
)

// Feedback is the message shown under a prediction.
type Feedback struct {
	Level   Level
	Emoji   string
	Message string
}

func FeedbackFor(confidence float64) Feedback {
	switch {
	case confidence > 0.9:
		return Feedback{Level: High, Emoji: "🎉", Message: "Very confident prediction!"}
	case confidence > 0.7:
		return Feedback{Level: Medium, Emoji: "👍", Message: "Good confidence level"}
	default:
		return Feedback{Level: Low, Emoji: "🤔", Message: "Low confidence - try a clearer image"}
	}
}
