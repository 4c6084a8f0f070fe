package style

import (
	"fmt"
	"strings"
)

const extractInstruction = "Analyze this image with extreme detail. Perform two tasks: " +
	"1. Write a professional prompt describing its style, medium, and lighting. " +
	"2. Extract 8 distinct, tangible visual features. These must be 'mark-ready' components like " +
	"'Grainy Film Texture', 'Specific Subject (e.g. Celebrity Identity)', 'High-Contrast Shadows', " +
	"'Grass/Nature Environment', or 'Professional Bokeh'. Return as JSON."

const identityRules = `CRITICAL IDENTITY PROTECTION RULES:
1. SUBJECT LOCK: Preserve the exact identity of every person in the User Photo. Keep their faces, hair, and body structure 100% recognizable.
2. PIXEL-FIRST FIDELITY: Only modify the lighting, color grading, texture, and environmental atmosphere.
3. NO HALLUCINATION: Do not add new faces or remove existing ones. The output must be the exact same scene re-rendered with the requested style.
4. QUALITY: Keep skin tones natural unless the style explicitly demands a heavy color filter.`

// BuildApplyInstruction renders the restyle instruction for ApplyStyle.
func BuildApplyInstruction(prompt string, focus []string) string {
	parts := []string{
		"INSTRUCTION: Act as a high-end Digital Retoucher.",
		"TASK: Apply the atmospheric and stylistic DNA from the Style Reference to the attached User Photo.",
		fmt.Sprintf("STYLE REFERENCE: %q", strings.TrimSpace(prompt)),
	}
	if cleaned := nonEmpty(focus); len(cleaned) > 0 {
		parts = append(parts, "MANDATORY FEATURES TO INJECT: "+strings.Join(cleaned, ", ")+".")
	} else {
		parts = append(parts, "Apply the overall aesthetic signature.")
	}
	parts = append(parts, identityRules)
	return strings.Join(parts, "\n")
}

// BuildEditInstruction wraps a free-form chat instruction with the same
// subject lock used by BuildApplyInstruction.
func BuildEditInstruction(instruction string) string {
	return strings.Join([]string{
		"ROLE: Advanced Image Editor.",
		fmt.Sprintf("TASK: Apply the following user instruction: %q.", strings.TrimSpace(instruction)),
		"PRESERVE SUBJECTS: Maintain the identity of all people and main subjects. Only edit the environment or artistic style as requested.",
		identityRules,
	}, "\n")
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
