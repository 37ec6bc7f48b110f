// Package testharness reports the outcome of `test`/`testset`/`testthrows`
// statements (§4.8 step 6) after the VM has executed them, rather than
// scanning a standalone test-file DSL the way internal/testing's TestRunner
// drove its own TestSuite/TestCase tree.
package testharness

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"corelang/internal/vm"
)

// Summary groups one run's vm.TestResult values by testset name, in the
// order the VM recorded them.
type Summary struct {
	Sets  []SetResult
	Total int
	Pass  int
	Fail  int
}

// SetResult is every test recorded under one `testset` name (the empty
// string for bare top-level `test` statements outside any testset).
type SetResult struct {
	Name  string
	Tests []vm.TestResult
}

// Summarize groups a VM's recorded results for reporting.
func Summarize(results []vm.TestResult) Summary {
	var s Summary
	order := make([]string, 0)
	bySet := make(map[string]*SetResult)
	for _, r := range results {
		set, ok := bySet[r.Set]
		if !ok {
			set = &SetResult{Name: r.Set}
			bySet[r.Set] = set
			order = append(order, r.Set)
		}
		set.Tests = append(set.Tests, r)
		s.Total++
		if r.Passed {
			s.Pass++
		} else {
			s.Fail++
		}
	}
	for _, name := range order {
		s.Sets = append(s.Sets, *bySet[name])
	}
	return s
}

// Reporter renders a Summary. A CLI's `test` subcommand picks one by
// `-format text|json|junit`, selecting among TextReporter/JSONReporter/
// JUnitReporter.
type Reporter interface {
	Report(s Summary) string
}

// TextReporter is the human-readable default, one line per test under its
// testset heading.
type TextReporter struct{}

func (TextReporter) Report(s Summary) string {
	var b strings.Builder
	for _, set := range s.Sets {
		if set.Name != "" {
			fmt.Fprintf(&b, "testset %s\n", set.Name)
		}
		for _, t := range set.Tests {
			symbol := "."
			if !t.Passed {
				symbol = "F"
			}
			fmt.Fprintf(&b, "  %s %s\n", symbol, t.Desc)
		}
	}
	fmt.Fprintf(&b, "%d total, %d passed, %d failed\n", s.Total, s.Pass, s.Fail)
	return b.String()
}

// JSONReporter is grounded on internal/testing/reporters.go's JSONReporter
// shape (flat result list plus a summary block), adapted to vm.TestResult's
// fields - no Duration/Error/Message, since the VM doesn't track those per
// test (§4.8 names pass/fail only).
type JSONReporter struct{}

type jsonTestResult struct {
	Set    string `json:"set,omitempty"`
	Desc   string `json:"desc"`
	Passed bool   `json:"passed"`
}

type jsonSummary struct {
	Results []jsonTestResult `json:"results"`
	Total   int              `json:"total"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
}

func (JSONReporter) Report(s Summary) string {
	out := jsonSummary{Total: s.Total, Passed: s.Pass, Failed: s.Fail}
	for _, set := range s.Sets {
		for _, t := range set.Tests {
			out.Results = append(out.Results, jsonTestResult{Set: set.Name, Desc: t.Desc, Passed: t.Passed})
		}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b)
}

// JUnitReporter is grounded on internal/testing/reporters.go's
// JUnitReporter: one <testsuite> per testset, one <testcase> per test, a
// failed test recorded as a child <failure> element.
type JUnitReporter struct{}

type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

func (JUnitReporter) Report(s Summary) string {
	doc := junitTestSuites{}
	for _, set := range s.Sets {
		name := set.Name
		if name == "" {
			name = "(top level)"
		}
		suite := junitTestSuite{Name: name, Tests: len(set.Tests)}
		for _, t := range set.Tests {
			tc := junitTestCase{Name: t.Desc}
			if !t.Passed {
				suite.Failures++
				tc.Failure = &junitFailure{Message: "assertion failed"}
			}
			suite.Cases = append(suite.Cases, tc)
		}
		doc.Suites = append(doc.Suites, suite)
	}
	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Sprintf("<error>%s</error>", err)
	}
	return xml.Header + string(b)
}
