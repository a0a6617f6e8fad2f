// Package statistics computes count-based aggregates over thread records.
package statistics

import (
	"strings"

	"github.com/thread-dump-analysis/pkg/model"
)

type categoryRule struct {
	label    string
	keywords []string
}

// categoryRules are evaluated in order; the first rule with a matching keyword wins.
var categoryRules = []categoryRule{
	{model.CategoryGC, []string{"gc", "concurrent mark", "parallel gc", "g1"}},
	{model.CategoryHTTP, []string{"http", "nio", "tomcat", "jetty", "netty"}},
	{model.CategoryDatabase, []string{"connection", "db", "hikari", "datasource", "sql"}},
	{model.CategoryThreadPool, []string{"pool", "executor", "worker", "scheduler"}},
	{model.CategoryJVMInternal, []string{"jvm", "vm thread", "compiler", "sweeper", "finalizer", "reference handler"}},
	{model.CategoryApplication, []string{"main", "application", "business", "service"}},
}

// Categorize classifies a thread by lower-cased substring matches on its name.
// Names matching nothing, including the empty name, are "Other".
func Categorize(name string) string {
	if name == "" {
		return model.CategoryOther
	}
	lower := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return model.CategoryOther
}

// categoryRank returns the priority position of a label, used for tie-breaks.
func categoryRank(label string) int {
	for i, c := range model.Categories() {
		if c == label {
			return i
		}
	}
	return len(model.Categories())
}
