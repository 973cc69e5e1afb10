package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`supermart_[a-z_]+`)

func loadAlertRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "supermart.yml"))
	require.NoError(t, err)
	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	for _, g := range file.Groups {
		if g.Name == "supermart" {
			return g.Rules
		}
	}
	t.Fatal("supermart alert group missing")
	return nil
}

func TestSupermartAlertRules(t *testing.T) {
	rules := loadAlertRules(t)
	expected := map[string]string{
		"HighErrorRate":          "critical",
		"CheckoutLockContention": "warning",
		"LedgerDrift":            "critical",
		"ReconcileJobFailing":    "warning",
	}
	require.Len(t, rules, len(expected))

	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook.md"))
	require.NoError(t, err)
	headings := map[string]bool{}
	for _, line := range strings.Split(string(runbook), "\n") {
		if title, ok := strings.CutPrefix(line, "## "); ok {
			headings[strings.ReplaceAll(strings.ToLower(title), " ", "-")] = true
		}
	}

	for _, rule := range rules {
		severity, ok := expected[rule.Alert]
		require.True(t, ok, "unexpected alert %s", rule.Alert)
		require.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["summary"], rule.Alert)

		link := rule.Annotations["runbook"]
		anchor, found := strings.CutPrefix(link, "docs/runbook.md#")
		require.True(t, found, "%s runbook link %q", rule.Alert, link)
		require.True(t, headings[anchor], "%s runbook anchor #%s has no heading", rule.Alert, anchor)
	}
}

func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveCheckout("success", 1)
	m.ObserveMovement("IN", 1)
	_ = m.Jobs().Track("inventory:reconcile").End(errors.New("redis down"))
	m.Jobs().SetLedgerDrift(0)
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	families, err := m.registry.Gather()
	require.NoError(t, err)
	exported := map[string]bool{}
	for _, mf := range families {
		exported[mf.GetName()] = true
	}

	for _, rule := range loadAlertRules(t) {
		for _, name := range metricName.FindAllString(rule.Expr, -1) {
			require.True(t, exported[name], "%s uses unknown metric %s", rule.Alert, name)
		}
	}
}
