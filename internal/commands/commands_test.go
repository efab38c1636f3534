package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/stmtcheck/internal/config"
	"github.com/cleared-dev/stmtcheck/internal/report"
	"github.com/cleared-dev/stmtcheck/internal/runlog"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "stmtcheck-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "stmtcheck")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/stmtcheck")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runStmtcheck(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "AZURE_ENDPOINT=", "AZURE_API_KEY=", "GEMINI_API_KEY=")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// newProject initializes a project in a temp dir and returns it with the
// flags that point commands at its config.
func newProject(t *testing.T, extra ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	_, err := runStmtcheck(t, append([]string{"init", dir, "--no-git"}, extra...)...)
	require.NoError(t, err)
	return dir, []string{"--config", filepath.Join(dir, config.FileName), "--env", filepath.Join(dir, ".env")}
}

// addStatement places a PDF and its JSON sidecar in the input dir.
func addStatement(t *testing.T, dir, id, statementJSON string) {
	t.Helper()
	in := filepath.Join(dir, "Bank_statements")
	require.NoError(t, os.WriteFile(filepath.Join(in, id+".pdf"), []byte("%PDF-1.4\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, id+".json"), []byte(statementJSON), 0o644))
}

const balancedJSON = `{
	"starting_balance": "$1,000.00",
	"ending_balance": "$1,094.25",
	"transactions": [
		{"date": "01/03/2025", "description": "GITHUB", "amount": "-4.00"},
		{"date": "01/10/2025", "description": "ACME", "amount": "150.00"},
		{"date": "01/22/2025", "description": "AWS", "amount": "(51.75)"}
	]
}`

const unbalancedJSON = `{
	"starting_balance": "100.00",
	"ending_balance": "150.00",
	"transactions": [{"description": "DEPOSIT", "amount": 40}]
}`

func TestVersion(t *testing.T) {
	out, err := runStmtcheck(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "stmtcheck version")
}

func TestInit_CreatesStructure(t *testing.T) {
	dir, _ := newProject(t)

	for _, d := range []string{"Bank_statements", filepath.Join("Bank_statements", "processed"), "output_folder", "logs"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "azure", cfg.Extractor.Kind)

	env, err := os.ReadFile(filepath.Join(dir, ".env.example"))
	require.NoError(t, err)
	assert.Contains(t, string(env), "AZURE_API_KEY=")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir, _ := newProject(t)

	out, err := runStmtcheck(t, "init", dir, "--no-git")
	require.Error(t, err)
	assert.Contains(t, out, "already exists")

	_, err = runStmtcheck(t, "init", dir, "--no-git", "--force")
	require.NoError(t, err)
}

func TestInit_Git(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()

	out, err := runStmtcheck(t, "init", dir)
	require.NoError(t, err, out)

	log := exec.Command("git", "log", "--oneline")
	log.Dir = dir
	logOut, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(logOut), "init: stmtcheck project")
}

func TestRun_SidecarExtractor(t *testing.T) {
	dir, flags := newProject(t)
	addStatement(t, dir, "2025-01", balancedJSON)
	addStatement(t, dir, "2025-02", unbalancedJSON)
	addStatement(t, dir, "2025-03", `{"starting_balance": "see previous page", "ending_balance": "1"}`)

	out, err := runStmtcheck(t, append([]string{"run", "--extractor", "json"}, flags...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 reconciled, 1 unbalanced, 1 excluded")

	outDir := filepath.Join(dir, "output_folder")
	summary, err := os.ReadFile(filepath.Join(outDir, report.SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "2025-01,1000.00,1094.25,1094.25,0.00,true")
	assert.Contains(t, string(summary), "2025-02,100.00,150.00,140.00,-10.00,false")

	errs, err := os.ReadFile(filepath.Join(outDir, report.ErrorsFile))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "2025-03")

	entries, err := runlog.Read(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRun_Strict(t *testing.T) {
	dir, flags := newProject(t)
	addStatement(t, dir, "2025-02", unbalancedJSON)

	_, err := runStmtcheck(t, append([]string{"run", "--extractor", "json", "--strict"}, flags...)...)
	assert.Error(t, err)
}

func TestRun_Archive(t *testing.T) {
	dir, flags := newProject(t)
	addStatement(t, dir, "2025-01", balancedJSON)

	out, err := runStmtcheck(t, append([]string{"run", "--extractor", "json", "--archive"}, flags...)...)
	require.NoError(t, err, out)

	_, err = os.Stat(filepath.Join(dir, "Bank_statements", "processed", "2025-01.pdf"))
	assert.NoError(t, err)
}

func TestRun_UnknownExtractor(t *testing.T) {
	_, flags := newProject(t)

	out, err := runStmtcheck(t, append([]string{"run", "--extractor", "ocr"}, flags...)...)
	require.Error(t, err)
	assert.Contains(t, out, "unknown extractor")
	assert.Contains(t, out, "json, pdftext")
}

func TestRun_AzureNeedsCredentials(t *testing.T) {
	_, flags := newProject(t)

	out, err := runStmtcheck(t, append([]string{"run"}, flags...)...)
	require.Error(t, err)
	assert.Contains(t, out, "AZURE_API_KEY")
}

func TestRun_Commit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	_, err := runStmtcheck(t, "init", dir)
	require.NoError(t, err)
	addStatement(t, dir, "2025-01", balancedJSON)

	out, err := runStmtcheck(t, "run", "--extractor", "json", "--commit",
		"--config", filepath.Join(dir, config.FileName), "--env", filepath.Join(dir, ".env"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Committed reports")

	files := exec.Command("git", "ls-files")
	files.Dir = dir
	listed, err := files.Output()
	require.NoError(t, err)
	assert.Contains(t, string(listed), "output_folder/reconciliation.csv")
	assert.Contains(t, string(listed), "logs/run-log.csv")
}

func TestRun_MissingExplicitConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	out, err := runStmtcheck(t, "run", "--extractor", "json", "--config", missing)
	require.Error(t, err)
	assert.Contains(t, out, "reading config")
}

func TestCheck_DefaultConfigMayBeMissing(t *testing.T) {
	out, err := runStmtcheck(t, "check", "../../testdata/statements.json")
	require.NoError(t, err, out)
	assert.Contains(t, out, "3 statements checked")
}

func TestExtract_Sidecar(t *testing.T) {
	dir, flags := newProject(t)
	addStatement(t, dir, "2025-01", balancedJSON)

	out, err := runStmtcheck(t, append([]string{"extract", "--extractor", "json", filepath.Join(dir, "Bank_statements", "2025-01.pdf")}, flags...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"id": "2025-01"`)
	assert.Contains(t, out, `"starting_balance": "$1,000.00"`)
}

func TestCheck(t *testing.T) {
	_, flags := newProject(t)

	out, err := runStmtcheck(t, append([]string{"check", "../../testdata/statements.json"}, flags...)...)
	require.NoError(t, err, out)

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "STATEMENT")
	assert.Contains(t, out, "-10.00")
	assert.Contains(t, out, "UNBALANCED")
	assert.Contains(t, out, "EXCLUDED")
	assert.Contains(t, out, "3 statements checked, 1 unbalanced, 1 excluded")
}

func TestCheck_Strict(t *testing.T) {
	_, flags := newProject(t)

	_, err := runStmtcheck(t, append([]string{"check", "--strict", "../../testdata/statements.json"}, flags...)...)
	assert.Error(t, err)
}

func TestReport_Plain(t *testing.T) {
	dir, flags := newProject(t)
	addStatement(t, dir, "2025-02", unbalancedJSON)
	_, err := runStmtcheck(t, append([]string{"run", "--extractor", "json"}, flags...)...)
	require.NoError(t, err)

	out, err := runStmtcheck(t, append([]string{"report", "--plain"}, flags...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "# Bank Statement Discrepancy Report")
	assert.Contains(t, out, "-$10.00")

	out, err = runStmtcheck(t, "report", "--style", "notty", filepath.Join(dir, "output_folder"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "2025-02")
}
