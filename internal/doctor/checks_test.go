package doctor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status   CheckStatus
		expected string
	}{
		{StatusPass, "pass"},
		{StatusWarn, "warn"},
		{StatusFail, "fail"},
		{CheckStatus(99), "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.String())
		})
	}
}

// mockCheck is a test implementation of Check.
type mockCheck struct {
	name   string
	result CheckResult
}

func (m *mockCheck) Name() string     { return m.name }
func (m *mockCheck) Category() string { return "TEST" }
func (m *mockCheck) Run() CheckResult { return m.result }

func sampleChecks() []Check {
	return []Check{
		&mockCheck{name: "a", result: pass("a", "OK")},
		&mockCheck{name: "b", result: warn("b", "Hmm", "look")},
		&mockCheck{name: "c", result: fail("c", "Broken", "fix it")},
	}
}

func TestRunAll_KeepsOrder(t *testing.T) {
	for name, run := range map[string]func([]Check) []CheckResult{
		"sequential": RunAll,
		"parallel":   RunAllParallel,
	} {
		t.Run(name, func(t *testing.T) {
			results := run(sampleChecks())
			assert.Len(t, results, 3)
			assert.Equal(t, "a", results[0].Name)
			assert.Equal(t, "b", results[1].Name)
			assert.Equal(t, "c", results[2].Name)
		})
	}
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus(RunAll(sampleChecks()))
	assert.Equal(t, 1, counts[StatusPass])
	assert.Equal(t, 1, counts[StatusWarn])
	assert.Equal(t, 1, counts[StatusFail])
}

func TestHasFailures(t *testing.T) {
	assert.True(t, HasFailures(RunAll(sampleChecks())))
	assert.False(t, HasFailures([]CheckResult{pass("a", ""), warn("b", "", "")}))
	assert.False(t, HasFailures(nil))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Everything looks good", Summary([]CheckResult{pass("a", "")}))
	assert.Equal(t, "1 issue found", Summary([]CheckResult{warn("a", "", "")}))
	assert.Equal(t, "2 issues found", Summary(RunAll(sampleChecks())))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Can't connect to web1", firstLine("✗ Can't connect to web1\n\n  Check the host\n"))
	assert.Equal(t, "plain", firstLine("plain"))
}
