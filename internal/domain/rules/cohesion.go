package rules

import (
	"fmt"
	"path"
	"strings"

	"github.com/fatih/camelcase"

	"github.com/archlint/archlint/internal/domain"
)

// checkGodUnit emits one finding per exceeded cohesion threshold:
// attributes and methods cite the offending class, file length cites
// the file itself.
func checkGodUnit(snap *Snapshot) []domain.Finding {
	limits := snap.Config.GodUnit
	var findings []domain.Finding
	for _, p := range snap.sortedUnitPaths() {
		u := snap.Units[p]
		m := snap.Metrics[p]

		if m.Attributes > limits.MaxAttributes {
			cls := classWithAttributes(u, m.Attributes)
			findings = append(findings, domain.Finding{
				Unit: p,
				Line: cls.Line,
				Description: fmt.Sprintf("class %s holds %d instance attributes (limit %d)",
					cls.Name, m.Attributes, limits.MaxAttributes),
			})
		}
		if m.Methods > limits.MaxMethods {
			cls := classWithMethods(u, m.Methods)
			findings = append(findings, domain.Finding{
				Unit: p,
				Line: cls.Line,
				Description: fmt.Sprintf("class %s defines %d methods (limit %d)",
					cls.Name, m.Methods, limits.MaxMethods),
			})
		}
		if m.Lines > limits.MaxLines {
			findings = append(findings, domain.Finding{
				Unit:        p,
				Description: fmt.Sprintf("file is %d lines long (limit %d)", m.Lines, limits.MaxLines),
			})
		}
	}
	return findings
}

// checkDeepNesting flags every function or method whose deepest block
// reaches the configured nesting threshold.
func checkDeepNesting(snap *Snapshot) []domain.Finding {
	limit := snap.Config.NestingLimit
	var findings []domain.Finding
	for _, p := range snap.sortedUnitPaths() {
		for _, fn := range snap.Units[p].AllFunctions() {
			if fn.MaxNesting < limit {
				continue
			}
			findings = append(findings, domain.Finding{
				Unit:        p,
				Line:        fn.Line,
				Description: fmt.Sprintf("function %s nests %d levels deep (threshold %d)", fn.Name, fn.MaxNesting, limit),
			})
		}
	}
	return findings
}

// checkBroadExcept flags bare excepts and catches of Exception or
// BaseException, unless the handler re-raises.
func checkBroadExcept(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, p := range snap.sortedUnitPaths() {
		for _, ex := range snap.Units[p].Excepts {
			if !isBroadException(ex.Exception) || ex.Reraises {
				continue
			}
			desc := fmt.Sprintf("except %s without re-raise swallows every failure; catch specific exceptions", ex.Exception)
			if ex.Exception == "" {
				desc = "bare except swallows every failure; catch specific exceptions or re-raise"
			}
			findings = append(findings, domain.Finding{Unit: p, Line: ex.Line, Description: desc})
		}
	}
	return findings
}

func isBroadException(name string) bool {
	return name == "" || name == "Exception" || name == "BaseException"
}

// checkFlagParameter reports a function whose signature carries a
// boolean default and which is called from more than one site. Call
// sites are matched by bare callee name across the whole project,
// which is deliberately rough: a shared name inflates the count, but
// the finding is only a suggestion.
func checkFlagParameter(snap *Snapshot) []domain.Finding {
	calls := make(map[string]int)
	for _, u := range snap.Units {
		for _, c := range u.Calls {
			calls[c.Name]++
		}
	}

	var findings []domain.Finding
	for _, p := range snap.sortedUnitPaths() {
		for _, fn := range snap.Units[p].AllFunctions() {
			flag, ok := flagParam(fn)
			if !ok || calls[fn.Name] <= 1 {
				continue
			}
			findings = append(findings, domain.Finding{
				Unit: p,
				Line: fn.Line,
				Description: fmt.Sprintf("boolean parameter %s of %s switches behavior across %d call sites",
					flag.Name, fn.Name, calls[fn.Name]),
			})
		}
	}
	return findings
}

// flagParam returns the first boolean-defaulted parameter of a
// function, if any.
func flagParam(fn domain.FunctionDecl) (domain.Param, bool) {
	for _, p := range fn.Params {
		if p.Default == "True" || p.Default == "False" {
			return p, true
		}
		if p.Annotation == "bool" && p.Default != "" && p.Default != "None" {
			return p, true
		}
	}
	return domain.Param{}, false
}

// checkDemeterChain flags attribute chains three hops or longer.
// Chains rooted at self or cls belong to the unit and are exempt.
func checkDemeterChain(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, p := range snap.sortedUnitPaths() {
		for _, acc := range snap.Units[p].Accesses {
			if acc.Receiver == "self" || acc.Receiver == "cls" || len(acc.Chain) < 3 {
				continue
			}
			chain := acc.Receiver + "." + strings.Join(acc.Chain, ".")
			findings = append(findings, domain.Finding{
				Unit: p,
				Line: acc.Line,
				Description: fmt.Sprintf("attribute chain %s reaches through %d objects; add a delegate on the first hop",
					chain, len(acc.Chain)),
			})
		}
	}
	return findings
}

// checkModuleNaming flags file stems that are not snake_case and
// proposes the snake_case spelling. Dunder modules are exempt.
func checkModuleNaming(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, p := range snap.sortedUnitPaths() {
		stem := strings.TrimSuffix(path.Base(p), ".py")
		if strings.HasPrefix(stem, "__") && strings.HasSuffix(stem, "__") {
			continue
		}
		if stem == strings.ToLower(stem) {
			continue
		}
		findings = append(findings, domain.Finding{
			Unit:        p,
			Description: fmt.Sprintf("module name %s is not snake_case; rename to %s.py", stem, snakeCase(stem)),
		})
	}
	return findings
}

// snakeCase lowers a CamelCase identifier into snake_case.
func snakeCase(name string) string {
	words := camelcase.Split(name)
	joined := strings.ToLower(strings.Join(words, "_"))
	for strings.Contains(joined, "__") {
		joined = strings.ReplaceAll(joined, "__", "_")
	}
	return strings.Trim(joined, "_")
}

// checkResourceOpen flags open() calls outside a with statement.
func checkResourceOpen(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, p := range snap.sortedUnitPaths() {
		for _, call := range snap.Units[p].Calls {
			if call.Name != "open" || call.InWith {
				continue
			}
			findings = append(findings, domain.Finding{
				Unit:        p,
				Line:        call.Line,
				Description: "open() outside a with statement; the handle leaks on error paths",
			})
		}
	}
	return findings
}

// checkParseError converts parse failures into findings so skipped
// files stay visible in the report.
func checkParseError(snap *Snapshot) []domain.Finding {
	var findings []domain.Finding
	for _, f := range snap.Failures {
		findings = append(findings, domain.Finding{
			Unit:        f.Path,
			Line:        f.Line,
			Description: fmt.Sprintf("file could not be parsed: %s", f.Reason),
		})
	}
	return findings
}

// classWithAttributes returns the first class matching the given
// attribute count.
func classWithAttributes(u *domain.SourceUnit, count int) domain.ClassDecl {
	for _, cls := range u.Classes {
		if cls.AttributeCount == count {
			return cls
		}
	}
	return domain.ClassDecl{}
}

// classWithMethods returns the first class matching the given method
// count.
func classWithMethods(u *domain.SourceUnit, count int) domain.ClassDecl {
	for _, cls := range u.Classes {
		if len(cls.Methods) == count {
			return cls
		}
	}
	return domain.ClassDecl{}
}
