package constants

// Analysis method tags written to ExtractedDocument.AnalysisMethod.
const (
	MethodLLM           = "LLM"
	MethodRegex         = "Regex"
	MethodRegexFallback = "Regex-Fallback"
)

// Strategy kinds accepted by the extractor.
const (
	StrategyLLM   = "llm"
	StrategyRegex = "regex"
)

// Confidence levels per extraction path.
const (
	ConfidenceLLMClean     = 0.98
	ConfidenceLLMRecovered = 0.85
	ConfidenceRegex        = 0.60
)

// MaxPromptChars bounds the reconstructed text sent to the completion backend.
const MaxPromptChars = 25000

// DefaultCurrency applies when neither the model nor the patterns found one.
const DefaultCurrency = "EUR"
