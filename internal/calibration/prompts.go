package calibration

import (
	"fmt"
	"slices"
)

// Categories lists the built-in calibration prompt categories in display order.
var Categories = []string{"reasoning", "coding", "writing", "analysis", "creative"}

var prompts = map[string][]string{
	"reasoning": {
		"A company has 100 employees. Each employee works 40 hours per week. If the company pays $50 per hour on average, what is the weekly payroll cost? Show your working.",
		"If all squares are rectangles, and all rectangles are quadrilaterals, are all squares quadrilaterals? Explain your logic.",
	},
	"coding": {
		"Write a Python function that takes a list of numbers and returns the sum of all even numbers.",
		"How would you implement a simple LRU (Least Recently Used) cache in Python?",
	},
	"writing": {
		"Write a professional email requesting a project deadline extension due to unforeseen circumstances.",
		"Create a compelling product description for a hypothetical AI-powered note-taking app.",
	},
	"analysis": {
		"What are the key factors that would influence the adoption rate of a new technology in enterprise settings?",
		"Analyze the trade-offs between speed and accuracy in machine learning model selection.",
	},
	"creative": {
		"Generate a creative product name and slogan for an eco-friendly water bottle startup.",
		"Write a short creative story (2-3 paragraphs) about an unexpected discovery.",
	},
}

// Prompts returns the calibration prompts for category. "all" or "" returns
// every prompt keyed by category.
func Prompts(category string) (map[string][]string, error) {
	out := map[string][]string{}
	if category == "" || category == "all" {
		for c, ps := range prompts {
			out[c] = slices.Clone(ps)
		}
		return out, nil
	}
	ps, ok := prompts[category]
	if !ok {
		return nil, fmt.Errorf("unknown calibration category %q (want one of %v)", category, Categories)
	}
	out[category] = slices.Clone(ps)
	return out, nil
}
