package agent

import "fmt"

// ConfigurationError reports a missing or invalid setting that prevents the assistant
// from working at all.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("agent configuration: %s %s", e.Setting, e.Reason)
}

// AnalysisError reports that the model call itself failed (network, auth, quota).
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze query: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
