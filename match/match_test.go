package match

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow/core"
)

func TestMatchRoles(t *testing.T) {
	m := New()

	tests := []struct {
		name string
		text string
		want core.Role
	}{
		{"decision maker", "It's my call in the end, I sign off on tooling", core.RoleDecisionMaker},
		{"budget holder", "Our budget covers this, we can spend up to 10k", core.RoleBudgetHolder},
		{"influencer", "Looks good, I'll recommend it to my boss", core.RoleInfluencer},
		{"observer", "just lurking here, out of curiosity", core.RoleObserver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := m.MatchRoles(tt.text)
			assert.Greater(t, hits[tt.want], 0)
		})
	}
}

func TestMatchRolesCaseInsensitiveAndEmpty(t *testing.T) {
	m := New()
	assert.Greater(t, m.MatchRoles("READY... I DECIDE here")[core.RoleDecisionMaker], 0)
	assert.Empty(t, m.MatchRoles("nothing relevant in this sentence at all"))
}

func TestMatchSignals(t *testing.T) {
	m := New()

	hits := m.MatchSignals("We are ready to buy, send me a quote with your pricing")
	assert.Equal(t, 2, hits[SignalHighIntent])
	assert.Greater(t, hits[SignalBudget], 0)

	hits = m.MatchSignals("Currently comparing options and evaluating vendors")
	assert.Equal(t, 2, hits[SignalMediumIntent])
}

func TestFallbackScore(t *testing.T) {
	m := New()

	tests := []struct {
		name string
		text string
		low  int
		high int
	}{
		{"empty", "", 0, 0},
		{"hot", "We are ready to buy and need this asap. What does it cost? Our budget is flexible.", 70, 100},
		{"medium", "We're comparing options for a CRM integration, any advice appreciated here?", 40, 80},
		{"irrelevant", "Job opening: send my resume please", 0, 10},
		{"junk", ":) !!", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FallbackScore(tt.text)
			assert.GreaterOrEqual(t, got, tt.low)
			assert.LessOrEqual(t, got, tt.high)
		})
	}
}

func TestPhraseOverrides(t *testing.T) {
	m := New(func(o *Options) {
		o.Phrases = Phrases{
			Roles:   map[string][]string{"decision_maker": {"el jefe"}},
			Signals: map[string][]string{"high": {"shut up and take my money"}},
		}
	})

	assert.Greater(t, m.MatchRoles("EL JEFE has spoken")[core.RoleDecisionMaker], 0)
	assert.Empty(t, m.MatchRoles("i decide"))
	assert.Greater(t, m.MatchSignals("shut up and take my money")[SignalHighIntent], 0)
}

func TestLoadPhrases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phrases.yaml")
	content := []byte("roles:\n  observer:\n    - bystander\nsignals:\n  budget_discussion:\n    - treasure chest\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	p, err := LoadPhrases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"bystander"}, p.Roles["observer"])
	assert.Equal(t, []string{"treasure chest"}, p.Signals["budget_discussion"])

	_, err = LoadPhrases(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMatcherConcurrentUse(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.MatchRoles("i decide on our budget")
				m.MatchSignals("ready to buy")
				m.FallbackScore("comparing options for pricing")
			}
		}()
	}
	wg.Wait()
}
