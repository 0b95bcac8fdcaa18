package cmd

import "fmt"

// ConfigError reports an unusable configuration value.
type ConfigError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Key, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// BatchFailedError summarizes a batch run in which some jobs did not succeed.
type BatchFailedError struct {
	Failed int
	Total  int
	Err    error
}

func (e *BatchFailedError) Error() string {
	if e.Total == 1 {
		return fmt.Sprintf("%d of %d job failed", e.Failed, e.Total)
	}
	return fmt.Sprintf("%d of %d jobs failed", e.Failed, e.Total)
}

func (e *BatchFailedError) Unwrap() error {
	return e.Err
}
