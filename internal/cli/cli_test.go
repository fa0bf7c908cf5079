package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/model"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	require.NoError(t, setDefaults(v, model.DefaultConfig()))
	v.SetEnvPrefix("CLAIMAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestSetDefaultsRoundTrip(t *testing.T) {
	v := newTestViper(t)

	cfg := &model.Config{}
	require.NoError(t, v.Unmarshal(cfg))
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestEnvOverridesKeysWithoutConfigFile(t *testing.T) {
	t.Setenv("CLAIMAUDIT_SERVICE_BASE_URL", "http://claims.internal:9000")
	t.Setenv("CLAIMAUDIT_SERVICE_NO_PROXY", "claims.internal")
	t.Setenv("CLAIMAUDIT_CACHE_TTL", "1m")
	v := newTestViper(t)

	cfg := model.DefaultConfig()
	require.NoError(t, v.Unmarshal(cfg))
	assert.Equal(t, "http://claims.internal:9000", cfg.Service.BaseURL)
	assert.Equal(t, "claims.internal", cfg.Service.NoProxy)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Concurrency.Workers)
}

func TestParseClaimID(t *testing.T) {
	id, err := parseClaimID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "-1", "4.2"} {
		_, err := parseClaimID(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteOutput(t *testing.T) {
	rows := []model.WorklistEntry{{ID: 1, PatientID: "P-1", Status: "pending"}}
	text := func(w io.Writer) error {
		_, err := io.WriteString(w, "table\n")
		return err
	}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "text", rows, text))
	assert.Equal(t, "table\n", buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "json", rows, text))
	assert.Contains(t, buf.String(), `"patient_id": "P-1"`)

	buf.Reset()
	assert.Error(t, writeOutput(&buf, "md", rows, text))
}

func TestDescribeState(t *testing.T) {
	tests := []struct {
		state audit.State
		mark  string
		want  string
	}{
		{audit.Verdict{Decision: audit.DecisionApproved}, "✓", "APPROVED"},
		{audit.Verdict{Decision: audit.DecisionDenied}, "✗", "DENIED"},
		{audit.Verdict{}, "✓", "verdict (no decision)"},
		{audit.PipelineFailure{Status: audit.StatusWarning, Message: "no policy"}, "⚠", "pipeline warning: no policy"},
		{audit.RawFallback{Output: "x"}, "⚠", "unstructured output"},
		{audit.TransportFailed{Reason: "503"}, "✗", "request failed: 503"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.mark, resultMark(tt.state))
		assert.Equal(t, tt.want, describeState(tt.state))
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claimaudit", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# claimaudit configuration"))

	cfg := &model.Config{}
	require.NoError(t, yaml.Unmarshal(data, cfg))
	assert.Equal(t, model.DefaultConfig(), cfg)

	err = writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
