package models

// ProducerBrief is the compact per-producer block of the caller-facing report
type ProducerBrief struct {
	Score   int    `json:"score"`
	Summary string `json:"summary"`
}

// ResponseReport is the caller-facing full_report
type ResponseReport struct {
	Fundamental  ProducerBrief `json:"fundamental"`
	Technical    ProducerBrief `json:"technical"`
	SentimentEco ProducerBrief `json:"sentiment_eco"`
	Limitations  []string      `json:"limitations,omitempty"`
}

// AnalysisResponse is the success body returned to callers
type AnalysisResponse struct {
	Ticker             string         `json:"ticker"`
	SynthesisScore     int            `json:"synthesis_score"`
	Recommendation     Recommendation `json:"recommendation"`
	Confidence         int            `json:"confidence"`
	ConvergenceFactors []string       `json:"convergence_factors"`
	DivergenceFactors  []string       `json:"divergence_factors"`
	KeyEcos            []KeyEco       `json:"key_ecos"`
	FullReport         ResponseReport `json:"full_report"`
}

// NewAnalysisResponse flattens a synthesis into the public response shape.
// Confidence is reported on a 0-100 scale.
func NewAnalysisResponse(ticker string, s *SynthesisResult) *AnalysisResponse {
	resp := &AnalysisResponse{
		Ticker:             ticker,
		SynthesisScore:     s.SynthesisScore,
		Recommendation:     s.Recommendation,
		Confidence:         int(s.Confidence*100 + 0.5),
		ConvergenceFactors: make([]string, 0, len(s.ConvergenceFactors)),
		DivergenceFactors:  make([]string, 0, len(s.DivergenceFactors)),
		KeyEcos:            s.FullReport.KeyEcos,
		FullReport: ResponseReport{
			Fundamental:  ProducerBrief{Score: s.FullReport.Fundamental.Score, Summary: s.FullReport.Fundamental.Summary},
			Technical:    ProducerBrief{Score: s.FullReport.Technical.Score, Summary: s.FullReport.Technical.Summary},
			SentimentEco: ProducerBrief{Score: s.FullReport.SentimentEco.Score, Summary: s.FullReport.SentimentEco.Summary},
			Limitations:  s.FullReport.Limitations,
		},
	}
	if resp.KeyEcos == nil {
		resp.KeyEcos = []KeyEco{}
	}
	for _, c := range s.ConvergenceFactors {
		resp.ConvergenceFactors = append(resp.ConvergenceFactors, c.Description)
	}
	for _, d := range s.DivergenceFactors {
		resp.DivergenceFactors = append(resp.DivergenceFactors, d.Description)
	}
	return resp
}
