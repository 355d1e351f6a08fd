package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScoring(t *testing.T) {
	s := config.DefaultScoring()

	require.Equal(t, []domain.BadgeThreshold{
		{Name: "Bronze", MinPoints: 100},
		{Name: "Silver", MinPoints: 300},
		{Name: "Gold", MinPoints: 600},
		{Name: "Platinum", MinPoints: 1000},
	}, s.Thresholds())

	rules := s.RulesFor(domain.TaskKindRequest, domain.AssignmentStatusCompleted)
	require.Len(t, rules, 2)
	assert.Equal(t, config.BeneficiaryAssignee, rules[0].Beneficiary)
	assert.Equal(t, "request_completed", rules[0].Activity)
	assert.Equal(t, config.BeneficiaryRequester, rules[1].Beneficiary)

	assert.Empty(t, s.RulesFor(domain.TaskKindRequest, domain.AssignmentStatusRejected))
}

func TestLoadScoring_EmptyPathUsesDefaults(t *testing.T) {
	s, err := config.LoadScoring("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultScoring(), s)
}

func TestLoadScoring_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	doc := `
badges:
  - name: Starter
    min_points: 5
rules:
  - kind: donation
    on: completed
    beneficiary: requester
    activity: gift
    points: 7
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := config.LoadScoring(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.BadgeThreshold{{Name: "Starter", MinPoints: 5}}, s.Thresholds())

	rules := s.RulesFor(domain.TaskKindDonation, domain.AssignmentStatusCompleted)
	require.Len(t, rules, 1)
	assert.Equal(t, int64(7), rules[0].Points)
}

func TestLoadScoring_MissingFile(t *testing.T) {
	_, err := config.LoadScoring(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestParseScoring_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "descending thresholds",
			doc: `
badges:
  - {name: Silver, min_points: 300}
  - {name: Bronze, min_points: 100}
`,
		},
		{
			name: "duplicate badge",
			doc: `
badges:
  - {name: Bronze, min_points: 100}
  - {name: Bronze, min_points: 200}
`,
		},
		{
			name: "unscored transition",
			doc: `
rules:
  - {kind: request, on: rejected, beneficiary: assignee, activity: x, points: 1}
`,
		},
		{
			name: "unknown beneficiary",
			doc: `
rules:
  - {kind: request, on: accepted, beneficiary: volunteer, activity: x, points: 1}
`,
		},
		{
			name: "unknown kind",
			doc: `
rules:
  - {kind: errand, on: accepted, beneficiary: assignee, activity: x, points: 1}
`,
		},
		{
			name: "missing activity",
			doc: `
rules:
  - {kind: request, on: accepted, beneficiary: assignee, points: 1}
`,
		},
		{
			name: "malformed yaml",
			doc:  "badges: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParseScoring([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
