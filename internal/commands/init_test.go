package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankrec/internal/config"
	"github.com/cleared-dev/bankrec/internal/store/csvstore"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "bankrec-test-*")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(tmpDir, "bankrec")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/bankrec")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(tmpDir)
		panic("failed to build binary: " + err.Error())
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func runBankrec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	for _, d := range []string{"bank", "ledger", "logs", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir, "--name", "My Company")
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, config.DriverCSV, cfg.Store.Driver)
}

func TestInit_EmptyStores(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, csvstore.TransactionsPath))
	require.NoError(t, err)
	assert.Equal(t, csvstore.TransactionHeader+"\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, csvstore.CandidatesPath))
	require.NoError(t, err)
	assert.Equal(t, csvstore.CandidateHeader+"\n", string(data))
}

func TestInit_GitRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git should exist")

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init:")

	authorLog := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	authorLog.Dir = dir
	out, err = authorLog.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "bankrec <bankrec@localhost>")

	tracked := exec.Command("git", "ls-files")
	tracked.Dir = dir
	out, err = tracked.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), csvstore.CandidatesPath)
}

func TestInit_Gitignore(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	for _, pattern := range []string{"import/*.csv", "import/processed/"} {
		assert.Contains(t, string(data), pattern)
	}
}

func TestInit_RequiresName(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir)
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RefusesExistingRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankrec(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	out, err := runBankrec(t, "init", dir, "--name", "Again")
	require.Error(t, err)
	assert.Contains(t, out, "already exists")
}
