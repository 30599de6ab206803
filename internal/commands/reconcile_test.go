package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankrec/internal/auditlog"
	"github.com/cleared-dev/bankrec/internal/config"
	"github.com/cleared-dev/bankrec/internal/store/csvstore"
)

const statement = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
	"CHECK,01/10/2024,CHECK 100,-500.00,CHECK_PAID,4500.00,100\n" +
	"CREDIT,01/12/2024,CLIENT DEPOSIT,300.00,ACH_CREDIT,4800.00,\n"

const ledger = csvstore.CandidateHeader + "\n" +
	"C1,V-1,1010,2024-01-11,-500.00,payment,100,,0,\n" +
	"C2,V-2,1010,2024-01-12,300.00,receipt,,,0,\n" +
	"C3,V-3,1010,2024-02-01,900.00,receipt,,,0,\n"

// newRepo initializes a repo with one configured checking account.
func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.BankAccounts = []config.BankAccount{
		{Name: "Chase Checking", Type: "checking", LastFour: "1234", AccountID: 1010, Currency: "USD"},
	}
	cfg.Metrics.Textfile = "bankrec.prom"
	require.NoError(t, config.Save(path, cfg))
	return dir
}

func TestReconcileFlow(t *testing.T) {
	dir := newRepo(t)
	rng := []string{"--repo", dir, "--account", "1010", "--from", "2024-01-01", "--to", "2024-02-29"}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "jan.csv"), []byte(statement), 0o644))
	out, err := runBankrec(t, "import", "--repo", dir, "--account", "1010")
	require.NoError(t, err, out)
	assert.Contains(t, out, "jan.csv: 2 new, 0 already imported")
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "jan.csv"))
	require.NoError(t, err)

	ledgerPath := filepath.Join(t.TempDir(), "candidates.csv")
	require.NoError(t, os.WriteFile(ledgerPath, []byte(ledger), 0o644))
	out, err = runBankrec(t, "import", "--repo", dir, "--candidates", ledgerPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "3 new candidates")

	out, err = runBankrec(t, append([]string{"match"}, rng...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Account 1010 (USD), 2024-01-01 to 2024-02-29")
	assert.Contains(t, out, "matched-exact")
	assert.Contains(t, out, "matched-approximate")
	assert.Contains(t, out, "Candidates: 1 exact, 1 approximate, 1 unmatched")

	out, err = runBankrec(t, append([]string{"commit", "C3"}, rng...)...)
	require.Error(t, err)
	assert.Contains(t, out, "unresolved match: candidates C3")

	out, err = runBankrec(t, append([]string{"commit", "--all"}, rng...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Committed 2 of 2 selected")

	out, err = runBankrec(t, append([]string{"match"}, rng...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Candidates: 0 exact, 0 approximate, 1 unmatched")

	out, err = runBankrec(t, append([]string{"commit", "C1"}, rng...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "C1 already reconciled, skipped")
	assert.Contains(t, out, "Committed 0 of 1 selected")

	out, err = runBankrec(t, "comment", "--repo", dir, "C3", "waiting", "on", "deposit")
	require.NoError(t, err, out)

	data, err := os.ReadFile(filepath.Join(dir, csvstore.CandidatesPath))
	require.NoError(t, err)
	assert.Contains(t, string(data), "waiting on deposit")

	entries, err := auditlog.Read(dir)
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{
		auditlog.ActionReject,
		auditlog.ActionCommit, auditlog.ActionCommit,
		auditlog.ActionStaleSkip,
		auditlog.ActionComment,
	}, actions)

	log := exec.Command("git", "log", "--format=%s")
	log.Dir = dir
	gitOut, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(gitOut), "reconcile: 2 pairs")

	prom, err := os.ReadFile(filepath.Join(dir, "bankrec.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "bankrec_commit_total")
}

func TestImport_ReimportDedupes(t *testing.T) {
	dir := newRepo(t)
	runs := []struct {
		args []string
		want string
	}{
		{[]string{"--account", "1010"}, "2 new, 0 already imported"},
		{nil, "0 new, 2 already imported"}, // only one account configured
	}
	for i, run := range runs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "jan.csv"), []byte(statement), 0o644))
		out, err := runBankrec(t, append([]string{"import", "--repo", dir}, run.args...)...)
		require.NoError(t, err, "run %d: %s", i, out)
		assert.Contains(t, out, run.want)
	}
}

func TestImport_UnknownAccount(t *testing.T) {
	dir := newRepo(t)
	out, err := runBankrec(t, "import", "--repo", dir, "--account", "9999")
	require.Error(t, err)
	assert.Contains(t, out, "not in bank_accounts")
}

func TestImport_UnknownFormat(t *testing.T) {
	dir := newRepo(t)
	out, err := runBankrec(t, "import", "--repo", dir, "--account", "1010", "--format", "ofx")
	require.Error(t, err)
	assert.Contains(t, out, `unknown statement format "ofx" (known: chase)`)

	out, err = runBankrec(t, "import", "--help")
	require.NoError(t, err, out)
	assert.Contains(t, out, "statement format (chase)")
}

func TestMatch_DebugLogsSession(t *testing.T) {
	dir := newRepo(t)
	out, err := runBankrec(t, "match", "--repo", dir, "--log-level", "debug", "--account", "1010", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err, out)
	assert.Contains(t, out, "session started")
	assert.Contains(t, out, "Candidates: 0 exact, 0 approximate, 0 unmatched")
}

func TestMatch_UnknownAccount(t *testing.T) {
	dir := newRepo(t)
	out, err := runBankrec(t, "match", "--repo", dir, "--account", "9999", "--from", "2024-01-01", "--to", "2024-01-31")
	require.Error(t, err)
	assert.Contains(t, out, "unknown account")
}

func TestMatch_InvalidRange(t *testing.T) {
	dir := newRepo(t)
	out, err := runBankrec(t, "match", "--repo", dir, "--account", "1010", "--from", "2024-02-01", "--to", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, out, "invalid date range")
}

func TestCommit_NeedsIDs(t *testing.T) {
	dir := newRepo(t)
	out, err := runBankrec(t, "commit", "--repo", dir, "--account", "1010", "--from", "2024-01-01", "--to", "2024-01-31")
	require.Error(t, err)
	assert.Contains(t, out, "--all")
}

func TestMissingConfig(t *testing.T) {
	out, err := runBankrec(t, "match", "--repo", t.TempDir(), "--account", "1010", "--from", "2024-01-01", "--to", "2024-01-31")
	require.Error(t, err)
	assert.Contains(t, out, "reading config")
}
