package ml

// Verdict is the message shown for a predicted label.
type Verdict struct {
	HighRisk bool     `json:"high_risk"`
	Headline string   `json:"headline"`
	Summary  string   `json:"summary,omitempty"`
	Advice   []string `json:"advice"`
}

// VerdictFor maps label 1 (disease present) to the high-risk verdict and any
// other label to the low-risk one.
func VerdictFor(label int) Verdict {
	if label == 1 {
		return Verdict{
			HighRisk: true,
			Headline: "The model predicts: HIGH RISK of heart disease",
			Advice: []string{
				"Consult a cardiologist immediately.",
				"Request further testing such as ECG, stress test, or echocardiogram.",
				"Consider lifestyle changes: diet, exercise, smoking cessation, stress reduction.",
			},
		}
	}
	return Verdict{
		Headline: "The model predicts: LOW RISK of heart disease",
		Summary:  "You currently show low risk of heart disease.",
		Advice: []string{
			"Eat a balanced diet.",
			"Exercise regularly.",
			"Avoid smoking and excessive alcohol.",
			"Monitor blood pressure and cholesterol annually.",
		},
	}
}
