package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/petitions/internal/apitest"
	"github.com/roach88/petitions/internal/avatar"
	"github.com/roach88/petitions/internal/petition"
)

// testEnv is a fake API plus a config file pointing at it.
type testEnv struct {
	srv    *apitest.Server
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := apitest.New()
	url := srv.Start(t)
	dir := t.TempDir()

	cfg := fmt.Sprintf(`api:
  mode: local
  localURL: %q
state:
  path: %q
retry:
  attempts: 1
`, url, filepath.Join(dir, "state", "state.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &testEnv{srv: srv, dir: dir, config: path}
}

// run executes the CLI and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *testEnv) login(t *testing.T) int {
	t.Helper()
	id := e.srv.AddUser("Ada", "Lovelace", "ada@example.com", "secret1")
	out, err := e.run(t, "login", "--email", "ada@example.com", "--password", "secret1")
	require.NoError(t, err, out)
	return id
}

func (e *testEnv) writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "petitions", cmd.Use)

	commands := []string{
		"register", "login", "logout", "whoami", "profile", "categories",
		"list", "show", "create", "edit", "delete", "mine", "support", "history",
	}
	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}

	for _, name := range []string{"show", "update", "remove-image"} {
		sub, _, err := cmd.Find([]string{"profile", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestInvalidFormat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "--format", "xml", "categories")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingConfigFile(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "categories"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out.String(), "Error ["+ErrCodeConfig+"]")
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Wildlife")
	assert.Contains(t, out, "Education")
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t)

	out, err := env.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Ada Lovelace (user %d)", id))
	assert.Contains(t, out, "Email: ada@example.com")
	assert.Contains(t, out, "Image: none")

	out, err = env.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	out, err = env.run(t, "whoami")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeAuth+"]")
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("Ada", "Lovelace", "ada@example.com", "secret1")

	out, err := env.run(t, "--format", "json", "login", "--email", "ada@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeAuth, resp.Error.Code)
	assert.Equal(t, "Incorrect email or password.", resp.Error.Message)
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddUser("Ada", "Lovelace", "ada@example.com", "secret1")

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("secret1\n"))
	cmd.SetArgs([]string{"--config", env.config, "login", "--email", "ada@example.com"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Logged in as user 1.")
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "register", "--first", "Ada", "--last", "Lovelace", "--email", "not-an-email", "--password", "secret1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Please enter a valid email address.")
}

func TestProfileUpdate_DefaultAvatar(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t)

	out, err := env.run(t, "profile", "update", "--last", "Byron")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Profile updated.")

	img, ok := env.srv.Image(fmt.Sprintf("/users/%d/image", id))
	require.True(t, ok, "default avatar should be uploaded")
	assert.Equal(t, avatar.ContentType, img.ContentType)

	saved := filepath.Join(env.dir, "me.png")
	out, err = env.run(t, "profile", "show", "--save-image", saved)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Ada Byron")
	assert.Contains(t, out, "Image: image/png")
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, img.Data, data)

	out, err = env.run(t, "profile", "remove-image")
	require.NoError(t, err, out)
	_, ok = env.srv.Image(fmt.Sprintf("/users/%d/image", id))
	assert.False(t, ok)
}

const createDraft = `title: Save the kakapo
description: Fund a breeding season.
category: 1
image: cover.png
tiers:
  - { title: Bronze, description: Entry level, cost: 5 }
`

const editDraft = `title: Save the kakapo
description: Fund a breeding season.
category: 1
tiers:
  - { title: Silver, description: Mid level, cost: 10 }
`

func TestCreateEditHistory(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	cover, err := avatar.Default('K')
	require.NoError(t, err)
	env.writeFile(t, "cover.png", cover)
	createPath := env.writeFile(t, "create.yaml", []byte(createDraft))
	editPath := env.writeFile(t, "edit.yaml", []byte(editDraft))

	out, err := env.run(t, "create", "-f", createPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created petition 1.")
	_, ok := env.srv.Image("/petitions/1/image")
	assert.True(t, ok, "draft image should be uploaded")

	out, err = env.run(t, "edit", "1", "-f", editPath, "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "delete tier 1: Bronze")
	assert.Contains(t, out, "create tier: Silver ($10)")
	assert.Equal(t, "Bronze", env.srv.Tiers(1)[0].Title, "dry run should change nothing")

	out, err = env.run(t, "edit", "1", "-f", editPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated petition 1.")
	got := env.srv.Tiers(1)
	require.Len(t, got, 1)
	assert.Equal(t, "Silver", got[0].Title)
	lo, _ := env.srv.TierBounds(1)
	assert.Equal(t, 1, lo)

	out, err = env.run(t, "--format", "json", "history", "1")
	require.NoError(t, err, out)
	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID    string
			Err   string
			Steps []struct {
				Kind    string
				Title   string
				Outcome string
			}
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.NotEmpty(t, resp.Data[0].ID)
	assert.Empty(t, resp.Data[0].Err)
	require.Len(t, resp.Data[0].Steps, 3)
	assert.Equal(t, "rejected", resp.Data[0].Steps[0].Outcome)
	assert.Equal(t, "Silver", resp.Data[0].Steps[1].Title)
}

func TestEdit_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	other := env.srv.AddUser("Grace", "Hopper", "grace@example.com", "secret1")
	env.srv.AddPetition(other, "Not yours", "Someone else's", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
	})
	env.login(t)
	editPath := env.writeFile(t, "edit.yaml", []byte(editDraft))

	out, err := env.run(t, "edit", "1", "-f", editPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInput+"]")
}

func TestEdit_SupportedTierFails(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t)
	backer := env.srv.AddUser("Grace", "Hopper", "grace@example.com", "secret1")
	p := env.srv.AddPetition(id, "Save the kakapo", "Fund a breeding season.", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
	})
	env.srv.AddSupporter(p.ID, backer, p.SupportTiers[0].ID, "")
	editPath := env.writeFile(t, "edit.yaml", []byte(editDraft))

	out, err := env.run(t, "edit", "1", "-f", editPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Applied before the failure:")
	assert.Contains(t, out, "Error ["+ErrCodeTierStep+"]")

	out, err = env.run(t, "history", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "failed:")
}

func TestEdit_TierFlags(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t)
	env.srv.AddPetition(id, "Save the kakapo", "Fund a breeding season.", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
	})

	out, err := env.run(t, "edit", "1", "--remove-tier", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInput+"]: cannot remove the only support tier")

	out, err = env.run(t, "edit", "1",
		"--add-tier", "{title: Silver, description: Mid level, cost: 10}",
		"--add-tier", "{title: Gold, description: Top level, cost: 50}",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated petition 1.")
	require.Len(t, env.srv.Tiers(1), 3)

	out, err = env.run(t, "edit", "1", "--add-tier", "{title: Platinum, description: Beyond, cost: 99}")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInput+"]: a petition can have at most 3 support tiers")

	out, err = env.run(t, "edit", "1",
		"--remove-tier", "1",
		"--set-tier", "{id: 2, title: Silver plus, description: Mid level, cost: 12}",
	)
	require.NoError(t, err, out)
	var titles []string
	for _, tier := range env.srv.Tiers(1) {
		titles = append(titles, tier.Title)
	}
	assert.ElementsMatch(t, []string{"Silver plus", "Gold"}, titles)
}

func TestEdit_TierFlagErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t)
	env.srv.AddPetition(id, "Save the kakapo", "Fund a breeding season.", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing to edit", []string{"edit", "1"}, "nothing to edit"},
		{"set without id", []string{"edit", "1", "--set-tier", "{title: Bronze, description: New, cost: 1}"}, "id of the tier to change is required"},
		{"unknown field", []string{"edit", "1", "--add-tier", "{name: Gold}"}, "parse tier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
	assert.Equal(t, "Bronze", env.srv.Tiers(1)[0].Title)
}

func TestListJSON(t *testing.T) {
	env := newTestEnv(t)
	owner := env.srv.AddUser("Grace", "Hopper", "grace@example.com", "secret1")
	tiers := []petition.SupportTier{{Title: "Bronze", Description: "Entry level", Cost: 5}}
	env.srv.AddPetition(owner, "Save the kakapo", "Birds", 1, tiers)
	env.srv.AddPetition(owner, "Plant trees", "Forests", 2, tiers)

	out, err := env.run(t, "--format", "json", "list")
	require.NoError(t, err, out)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Petitions []struct {
				Title        string `json:"title"`
				CategoryName string
			}
			Total    int
			LastPage int
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.LastPage)
	require.Len(t, resp.Data.Petitions, 2)
	assert.Equal(t, "Wildlife", resp.Data.Petitions[0].CategoryName)
}

func TestList_InvalidSort(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "list", "--sort", "sideways")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "invalid sort")
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.srv.AddUser("Grace", "Hopper", "grace@example.com", "secret1")
	env.srv.AddPetition(owner, "Save the kakapo", "Fund a breeding season.", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
		{Title: "Gold", Description: "Top level", Cost: 1500},
	})

	out, err := env.run(t, "show", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Save the kakapo (petition 1)")
	assert.Contains(t, out, "Category: Wildlife")
	assert.Contains(t, out, "Owner: Grace Hopper")
	assert.Contains(t, out, "$1,500")
}

func TestShow_InvalidID(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "show", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `invalid petition id "abc"`)
}

func TestSupportAndMine(t *testing.T) {
	env := newTestEnv(t)
	owner := env.srv.AddUser("Grace", "Hopper", "grace@example.com", "secret1")
	p := env.srv.AddPetition(owner, "Save the kakapo", "Birds", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
	})
	env.login(t)

	out, err := env.run(t, "support", "1", "--tier", fmt.Sprint(p.SupportTiers[0].ID), "--message", "Go birds")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Supported petition 1.")

	out, err = env.run(t, "mine")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Save the kakapo")
}

func TestSupport_OwnPetition(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t)
	p := env.srv.AddPetition(id, "Mine", "Mine", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
	})

	out, err := env.run(t, "support", "1", "--tier", fmt.Sprint(p.SupportTiers[0].ID))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInput+"]")
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t)
	env.srv.AddPetition(id, "Mine", "Mine", 1, []petition.SupportTier{
		{Title: "Bronze", Description: "Entry level", Cost: 5},
	})

	out, err := env.run(t, "delete", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted petition 1.")
	_, ok := env.srv.Petition(1)
	assert.False(t, ok)
}
