package verify

import (
	"fmt"
)

// CheckSpec is the declarative form of one check, as configuration
// files express them. Which fields matter depends on Type.
type CheckSpec struct {
	Type         string `mapstructure:"type"`
	Component    string `mapstructure:"component"`
	URL          string `mapstructure:"url"`
	ExpectStatus int    `mapstructure:"expect_status"`
	Address      string `mapstructure:"address"`
	Unit         string `mapstructure:"unit"`
	Path         string `mapstructure:"path"`
	MinFreeBytes uint64 `mapstructure:"min_free_bytes"`
}

// FromSpec builds the concrete check for one spec.
func FromSpec(spec CheckSpec) (Check, error) {
	if spec.Component == "" {
		return nil, fmt.Errorf("check of type %q has no component", spec.Type)
	}
	switch spec.Type {
	case "http":
		if spec.URL == "" {
			return nil, fmt.Errorf("http check for %s has no url", spec.Component)
		}
		return NewHTTPCheck(spec.Component, spec.URL, spec.ExpectStatus), nil
	case "tcp":
		if spec.Address == "" {
			return nil, fmt.Errorf("tcp check for %s has no address", spec.Component)
		}
		return NewTCPCheck(spec.Component, spec.Address), nil
	case "systemd":
		if spec.Unit == "" {
			return nil, fmt.Errorf("systemd check for %s has no unit", spec.Component)
		}
		return NewSystemdCheck(spec.Component, spec.Unit), nil
	case "file":
		if spec.Path == "" {
			return nil, fmt.Errorf("file check for %s has no path", spec.Component)
		}
		return NewFileCheck(spec.Component, spec.Path), nil
	case "disk":
		if spec.Path == "" {
			return nil, fmt.Errorf("disk check for %s has no path", spec.Component)
		}
		return NewDiskSpaceCheck(spec.Component, spec.Path, spec.MinFreeBytes), nil
	default:
		return nil, fmt.Errorf("unknown check type %q", spec.Type)
	}
}

// FromSpecs builds every check, failing on the first invalid spec.
func FromSpecs(specs []CheckSpec) ([]Check, error) {
	checks := make([]Check, 0, len(specs))
	for _, spec := range specs {
		check, err := FromSpec(spec)
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}
	return checks, nil
}
