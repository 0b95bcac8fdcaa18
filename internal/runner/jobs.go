package runner

import (
	"bytes"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
	"github.com/khanhnv2901/veribits-cli/internal/shared/security"
)

// Job is one tool invocation from a batch file.
type Job struct {
	Name   string            `yaml:"name,omitempty" json:"name,omitempty"`
	Tool   string            `yaml:"tool" json:"tool"`
	Values map[string]string `yaml:"values,omitempty" json:"values,omitempty"`
	Flags  map[string]bool   `yaml:"flags,omitempty" json:"flags,omitempty"`
}

// Input converts the job to dispatcher input.
func (j Job) Input() dispatch.Input {
	in := dispatch.NewInput()
	for k, v := range j.Values {
		in.Set(k, v)
	}
	for k, v := range j.Flags {
		in.SetFlag(k, v)
	}
	return in
}

// Label names the job for output, falling back to its position.
func (j Job) Label(index int) string {
	if j.Name != "" {
		return j.Name
	}
	return fmt.Sprintf("#%d %s", index+1, j.Tool)
}

type jobFile struct {
	Jobs []Job `yaml:"jobs"`
}

// ParseJobs decodes a batch document. Both a top-level list and a mapping
// with a "jobs" key are accepted.
func ParseJobs(data []byte) ([]Job, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, sharedErrors.ErrEmptyBatch
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	var jobs []Job
	if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
		if err := root.Content[0].Decode(&jobs); err != nil {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
		}
	} else {
		var f jobFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
		}
		jobs = f.Jobs
	}

	if len(jobs) == 0 {
		return nil, sharedErrors.ErrEmptyBatch
	}
	for i := range jobs {
		jobs[i].Tool = strings.TrimSpace(jobs[i].Tool)
		if jobs[i].Tool == "" {
			return nil, fmt.Errorf("%w: job %d has no tool", sharedErrors.ErrInvalidInput, i+1)
		}
	}
	return jobs, nil
}

// LoadJobs reads and parses a batch file.
func LoadJobs(path string) ([]Job, error) {
	data, err := security.ReadInputFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJobs(data)
}
