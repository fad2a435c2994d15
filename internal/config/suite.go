package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trackdq/internal/domain"
	"trackdq/internal/registry"
)

//go:embed default_suite.yaml
var defaultSuite []byte

// Suite is a loaded check suite: the check definitions plus the
// dimension-level alert tier.
type Suite struct {
	Pipeline   string
	Checks     []domain.CheckDefinition
	Thresholds domain.AlertThresholds
}

// suiteFile is the YAML shape of a check-suite document.
type suiteFile struct {
	Version     string            `yaml:"version"`
	Pipeline    string            `yaml:"pipeline,omitempty"`
	Validations []validationBlock `yaml:"validations"`
	Alerts      *alertBlock       `yaml:"alerts,omitempty"`
}

type validationBlock struct {
	Table       string       `yaml:"table"`
	SourceLevel bool         `yaml:"source_level,omitempty"`
	Checks      []checkBlock `yaml:"checks"`
}

type checkBlock struct {
	Dimension      string   `yaml:"dimension"`
	Metric         string   `yaml:"metric"`
	Kind           string   `yaml:"kind"`
	Column         string   `yaml:"column,omitempty"`
	KeyColumn      string   `yaml:"key_column,omitempty"`
	Threshold      float64  `yaml:"threshold"`
	Direction      string   `yaml:"direction,omitempty"`
	AllowNull      bool     `yaml:"allow_null,omitempty"`
	Min            *float64 `yaml:"min,omitempty"`
	Max            *float64 `yaml:"max,omitempty"`
	AcceptedValues []string `yaml:"accepted_values,omitempty"`
	Predicate      string   `yaml:"predicate,omitempty"`
	RefTable       string   `yaml:"ref_table,omitempty"`
	RefColumn      string   `yaml:"ref_column,omitempty"`
}

type alertBlock struct {
	DimensionMinimums map[string]float64 `yaml:"dimension_minimums,omitempty"`
	MaxDuplicateRate  *float64           `yaml:"max_duplicate_rate,omitempty"`
	MaxStalenessHours *float64           `yaml:"max_staleness_hours,omitempty"`
}

// LoadSuite reads a check-suite YAML file. An empty path loads the embedded
// default suite.
func LoadSuite(path string) (*Suite, error) {
	data := defaultSuite
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read check suite: %w", err)
		}
	}
	return parseSuite(data)
}

func parseSuite(data []byte) (*Suite, error) {
	var file suiteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse check suite: %w", err)
	}

	suite := &Suite{
		Pipeline:   file.Pipeline,
		Thresholds: domain.DefaultAlertThresholds(),
	}

	for _, block := range file.Validations {
		if block.Table == "" {
			return nil, domain.ErrValidation("validation block missing table")
		}
		for _, cb := range block.Checks {
			check, err := buildCheck(block, cb)
			if err != nil {
				return nil, err
			}
			suite.Checks = append(suite.Checks, check)
		}
	}

	if file.Alerts != nil {
		for name, min := range file.Alerts.DimensionMinimums {
			dim, err := domain.ParseDimension(name)
			if err != nil {
				return nil, err
			}
			suite.Thresholds.DimensionMinimums[dim] = min
		}
		if file.Alerts.MaxDuplicateRate != nil {
			suite.Thresholds.MaxDuplicateRate = *file.Alerts.MaxDuplicateRate
		}
		if file.Alerts.MaxStalenessHours != nil {
			suite.Thresholds.MaxStalenessHours = *file.Alerts.MaxStalenessHours
		}
	}

	return suite, nil
}

func buildCheck(block validationBlock, cb checkBlock) (domain.CheckDefinition, error) {
	dim, err := domain.ParseDimension(cb.Dimension)
	if err != nil {
		return domain.CheckDefinition{}, fmt.Errorf("check %q: %w", cb.Metric, err)
	}

	kind := domain.MetricKind(cb.Kind)
	direction := domain.Direction(cb.Direction)
	if cb.Direction == "" {
		// Freshness measures staleness, so lower is better by default.
		direction = domain.HigherIsBetter
		if kind == domain.MetricFreshnessHours {
			direction = domain.LowerIsBetter
		}
	}

	check := domain.CheckDefinition{
		Dimension:      dim,
		Table:          block.Table,
		MetricName:     cb.Metric,
		Column:         cb.Column,
		Kind:           kind,
		Threshold:      cb.Threshold,
		Direction:      direction,
		AllowNull:      cb.AllowNull,
		KeyColumn:      cb.KeyColumn,
		SourceLevel:    block.SourceLevel,
		Min:            cb.Min,
		Max:            cb.Max,
		AcceptedValues: cb.AcceptedValues,
		Predicate:      cb.Predicate,
		RefTable:       cb.RefTable,
		RefColumn:      cb.RefColumn,
	}
	return check, check.Validate()
}

// RegisterAll registers every suite check. Registration errors are fatal:
// a suite with duplicate or incompatible checks must not start.
func (s *Suite) RegisterAll(reg *registry.Registry) error {
	for _, check := range s.Checks {
		if err := reg.Register(check); err != nil {
			return err
		}
	}
	return nil
}
