package domain

import "sort"

// ProjectNorms are the p90 observations of an existing tree. The init
// command uses them to propose thresholds that fit the project instead
// of the stock defaults; they never feed the rule engine directly.
type ProjectNorms struct {
	Attributes int `json:"attributes"`
	Methods    int `json:"methods"`
	FileLines  int `json:"file_lines"`
	Nesting    int `json:"nesting"`
	Parameters int `json:"parameters"`
	Units      int `json:"units"`
}

func ComputeNorms(units map[string]*SourceUnit) ProjectNorms {
	var attrs, methods, fileLines, nesting, params []int

	for _, u := range units {
		if u.LineCount > 0 {
			fileLines = append(fileLines, u.LineCount)
		}
		for _, c := range u.Classes {
			attrs = append(attrs, c.AttributeCount)
			methods = append(methods, len(c.Methods))
		}
		for _, fn := range u.AllFunctions() {
			nesting = append(nesting, fn.MaxNesting)
			params = append(params, len(fn.Params))
		}
	}

	return ProjectNorms{
		Attributes: percentile90(attrs),
		Methods:    percentile90(methods),
		FileLines:  percentile90(fileLines),
		Nesting:    percentile90(nesting),
		Parameters: percentile90(params),
		Units:      len(units),
	}
}

// ProposedConfig turns observed norms into a starting config. Values
// below the stock defaults keep the defaults; a project should not
// inherit looser limits just because it is currently small.
func (n ProjectNorms) ProposedConfig() Config {
	cfg := DefaultConfig()
	if n.Attributes > cfg.GodUnit.MaxAttributes {
		cfg.GodUnit.MaxAttributes = n.Attributes
	}
	if n.Methods > cfg.GodUnit.MaxMethods {
		cfg.GodUnit.MaxMethods = n.Methods
	}
	if n.FileLines > cfg.GodUnit.MaxLines {
		cfg.GodUnit.MaxLines = n.FileLines
	}
	if n.Nesting > cfg.NestingLimit {
		cfg.NestingLimit = n.Nesting
	}
	if n.Parameters > cfg.MaxParameters {
		cfg.MaxParameters = n.Parameters
	}
	return cfg
}

func percentile90(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	idx := int(float64(len(sorted)-1) * 0.9)
	return sorted[idx]
}
