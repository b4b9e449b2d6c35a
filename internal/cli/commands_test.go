package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliRunner executes commands against one shared temp database, the
// way a user would run the binary repeatedly.
type cliRunner struct {
	t      *testing.T
	dbPath string
}

func newCLIRunner(t *testing.T) *cliRunner {
	t.Helper()
	return &cliRunner{t: t, dbPath: filepath.Join(t.TempDir(), "engram.db")}
}

// run executes the args and returns stdout; the command must succeed.
func (r *cliRunner) run(args ...string) string {
	r.t.Helper()
	out, err := r.tryRun(args...)
	require.NoError(r.t, err, "command %v failed: %s", args, out)
	return out
}

// tryRun executes the args and returns stdout plus the execution error.
func (r *cliRunner) tryRun(args ...string) (string, error) {
	r.t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", r.dbPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// uid extracts the first uid=... token from command output.
func extractUID(t *testing.T, out string) string {
	t.Helper()
	m := regexp.MustCompile(`uid=(\S+)`).FindStringSubmatch(out)
	require.NotNil(t, m, "no uid in output: %s", out)
	return m[1]
}

func TestUserLifecycle(t *testing.T) {
	r := newCLIRunner(t)

	out := r.run("user", "create", "--name", "Ada")
	uid := extractUID(t, out)

	out = r.run("user", "show", "--uid", uid)
	assert.Contains(t, out, "name=Ada")
	assert.Contains(t, out, "status=active")

	r.run("user", "update", "--uid", uid, "--name", "Ada L.")
	out = r.run("user", "list")
	assert.Contains(t, out, "name=Ada L.")

	_, err := r.tryRun("user", "show", "--uid", "u_missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestIdentityLifecycle(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))

	r.run("identity", "link", "--uid", uid, "--channel", "telegram", "--channel-user-id", "tg-42")

	out := r.run("identity", "resolve", "--channel", "telegram", "--channel-user-id", "tg-42")
	assert.Contains(t, out, "uid="+uid)

	r.run("identity", "unlink", "--channel", "telegram", "--channel-user-id", "tg-42")

	_, err := r.tryRun("identity", "resolve", "--channel", "telegram", "--channel-user-id", "tg-42")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestIngestAndQuery(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))

	r.run("ingest", "event", "--uid", uid, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"cuisine":"korean","rating":5}`)
	r.run("ingest", "event", "--uid", uid, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"cuisine":"korean","rating":4}`)
	r.run("ingest", "event", "--uid", uid, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"cuisine":"japanese","rating":3}`)

	out := r.run("query", "topk", "--uid", uid, "--scope-id", "scope:a", "--topic", "food_pref")
	assert.Contains(t, out, "rank=1 item=korean weight=2")
	assert.Contains(t, out, "rank=2 item=japanese weight=1")

	out = r.run("query", "metric", "--uid", uid, "--scope-id", "scope:a",
		"--key", "counter:food_pref:korean")
	assert.Contains(t, out, "value=2")

	out = r.run("query", "latest", "--uid", uid, "--scope-id", "scope:a")
	assert.Contains(t, out, "type=meal.rated")
	assert.Contains(t, out, `"cuisine":"japanese"`)
}

func TestIngest_DuplicateKeyReportsButSucceeds(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))

	args := []string{"ingest", "event", "--uid", uid, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"cuisine":"korean"}`,
		"--idempotency-key", "order-1"}
	r.run(args...)

	out := r.run(args...)
	assert.Contains(t, out, "duplicate event ignored")
}

func TestIngest_MissingRequiredFieldFails(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))

	out, err := r.tryRun("ingest", "event", "--uid", uid, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"rating":5}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "VALIDATION")
}

func TestIngestBatch(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))

	batch := `events:
  - uid: ` + uid + `
    scope_id: scope:a
    type: meal.rated
    payload:
      cuisine: korean
    idempotency_key: order-1
  - uid: ` + uid + `
    scope_id: scope:a
    type: meal.rated
    payload:
      cuisine: thai
    idempotency_key: order-2
  - uid: ` + uid + `
    scope_id: scope:a
    type: meal.rated
    payload:
      cuisine: korean
    idempotency_key: order-1
`
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(batch), 0o644))

	out := r.run("ingest", "batch", "--file", path)
	assert.Contains(t, out, "ingested=2 duplicates=1")
}

func TestSchemaRegisterAndList(t *testing.T) {
	r := newCLIRunner(t)

	doc := `{
		"schema_id": "user.food-pref",
		"version": "2",
		"class": "user_context",
		"fields": [
			{"name": "refUserId", "type": "string"},
			{"name": "cuisine", "type": "string", "nullable": true}
		]
	}`
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out := r.run("schema", "validate", "--file", path)
	assert.Contains(t, out, "table=dyn_user_food_pref_v2")

	out = r.run("schema", "register", "--file", path)
	assert.Contains(t, out, "registered schema user.food-pref")

	out = r.run("schema", "list")
	assert.Contains(t, out, "schema_id=user.food-pref version=2 active=true")
}

func TestSchemaRegister_InvalidDocument(t *testing.T) {
	r := newCLIRunner(t)

	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_id": "x"}`), 0o644))

	out, err := r.tryRun("schema", "register", "--file", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error")

	_, err = r.tryRun("schema", "register", "--file", "/nonexistent.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMergeCommand(t *testing.T) {
	r := newCLIRunner(t)
	from := extractUID(t, r.run("user", "create", "--name", "Dup"))
	to := extractUID(t, r.run("user", "create", "--name", "Keeper"))

	r.run("ingest", "event", "--uid", from, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"cuisine":"korean"}`)

	r.run("user", "merge", "--from", from, "--to", to)

	out := r.run("user", "show", "--uid", from)
	assert.Contains(t, out, "status=merged")

	out = r.run("query", "topk", "--uid", to, "--scope-id", "scope:a", "--topic", "food_pref")
	assert.Contains(t, out, "item=korean")
}

func TestDeleteCommand(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))
	r.run("ingest", "event", "--uid", uid, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"cuisine":"korean"}`)

	out := r.run("user", "delete", "--uid", uid, "--mode", "hard", "--dry-run")
	assert.Contains(t, out, "events=1")

	// Hard delete without force is refused.
	_, err := r.tryRun("user", "delete", "--uid", uid, "--mode", "hard")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	r.run("user", "delete", "--uid", uid, "--mode", "soft")
	out = r.run("user", "show", "--uid", uid)
	assert.Contains(t, out, "status=deleted")

	r.run("user", "delete", "--uid", uid, "--mode", "hard", "--force")
	_, err = r.tryRun("user", "show", "--uid", uid)
	require.Error(t, err)
}

func TestStateCommands(t *testing.T) {
	r := newCLIRunner(t)

	r.run("state", "set", "--uid", "u_1", "--scope-id", "scope:a",
		"--key", "prefs", "--value", `{"lang":"en"}`)

	out := r.run("state", "get", "--uid", "u_1", "--scope-id", "scope:a", "--key", "prefs")
	assert.Contains(t, out, `{"lang":"en"}`)

	r.run("state", "delete", "--uid", "u_1", "--scope-id", "scope:a", "--key", "prefs")

	_, err := r.tryRun("state", "get", "--uid", "u_1", "--scope-id", "scope:a", "--key", "prefs")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestScopeCommands(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))

	r.run("scope", "create", "--scope-id", "family:1", "--type", "shared")
	r.run("scope", "add-member", "--scope-id", "family:1", "--uid", uid, "--role", "owner")

	out := r.run("scope", "list")
	assert.Contains(t, out, "scope_id=family:1 type=shared")

	out = r.run("scope", "members", "--scope-id", "family:1")
	assert.Contains(t, out, "uid="+uid)
	assert.Contains(t, out, "role=owner")
}

func TestAdminCommands(t *testing.T) {
	r := newCLIRunner(t)
	uid := extractUID(t, r.run("user", "create", "--name", "Ada"))
	r.run("ingest", "event", "--uid", uid, "--scope-id", "scope:a",
		"--type", "meal.rated", "--payload", `{"cuisine":"korean"}`)

	out := r.run("admin", "reindex")
	assert.Contains(t, out, "reindexed")

	out = r.run("admin", "compact")
	assert.Contains(t, out, "compacted")

	out = r.run("admin", "archive", "--before", "2099-01-01T00:00:00Z")
	assert.Contains(t, out, "archived 1 events")

	out = r.run("query", "topk", "--uid", uid, "--scope-id", "scope:a", "--topic", "food_pref")
	assert.Contains(t, out, "item=korean", "derived views survive archival")
}

func TestJSONFormat(t *testing.T) {
	r := newCLIRunner(t)

	out := r.run("--format", "json", "user", "create", "--name", "Ada")

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", data["name"])
	assert.NotEmpty(t, data["uid"])
}
