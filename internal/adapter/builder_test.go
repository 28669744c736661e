package adapter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/rundeck-bridge/internal/adapter"
	"github.com/kirychukyurii/rundeck-bridge/internal/config"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

const syncScript = `
opt_dryrun=''
if [ "$RD_OPTION_DRY_RUN" != '' ]; then
    opt_dryrun="--dry-run "
fi
echo $opt_dryrun

opt_since=''
if [ "$RD_OPTION_SINCE" != '' ]; then
    opt_since="--since \"\$RD_OPTION_SINCE\""
fi
echo $opt_since

opt_env=''
if [ "$RD_OPTION_ENV" != '' ]; then
    opt_env="--env \"\$RD_OPTION_ENV\""
fi
echo $opt_env

cd /srv/app
cmd_string="sudo -u www-data php console sync \"\$RD_OPTION_TARGET\" $opt_dryrun --limit \"\$RD_OPTION_LIMIT\" $opt_since $opt_env"
echo $cmd_string
eval $cmd_string
ret_code=$?
echo $ret_code
exit $ret_code`

func syncCommand() *model.CommandDefinition {
	return &model.CommandDefinition{
		CommandName:        "sync",
		CommandDescription: "Synchronizes accounts",
		Args: []model.Argument{
			{Name: "command", Required: true},
			{Name: "target", Description: "Target system", Default: "crm", Required: true},
		},
		Opts: []model.CommandOption{
			{Name: "help", Description: "Display help"},
			{Name: "dry-run", Description: "Do not write"},
			{Name: "limit", Description: "Max rows", Default: "100", ValueRequired: true, AcceptsValue: true},
			{Name: "since", Description: "Start date", AcceptsValue: true},
		},
	}
}

func TestJobID(t *testing.T) {
	assert.Equal(t, "741078394", adapter.JobID("sync"))
	assert.Equal(t, "2777180518", adapter.JobID("cache:clear"))
	assert.Equal(t, adapter.JobID("sync"), adapter.JobID("sync"))
}

func TestBuild(t *testing.T) {
	builder := &adapter.Builder{User: "www-data", AppPath: "/srv/app"}

	t.Run("should build the script job for a command", func(t *testing.T) {
		job := builder.Build(syncCommand())

		assert.Equal(t, "741078394", job.ID)
		assert.Equal(t, "sync", job.Name)
		assert.Equal(t, "Synchronizes accounts", job.Description)
		assert.Empty(t, job.Project)
		assert.Equal(t, syncScript, job.ScriptContent)
	})
	t.Run("should map arguments and options to job options in order", func(t *testing.T) {
		job := builder.Build(syncCommand())

		require.Len(t, job.Options, 5)
		assert.Equal(t, &model.JobOption{Name: "target", Description: "Target system", DefaultValue: "crm", Required: true}, job.Options[0])
		assert.Equal(t, &model.JobOption{Name: "dry-run", Description: "Do not write"}, job.Options[1])
		assert.Equal(t, &model.JobOption{Name: "limit", Description: "Max rows", DefaultValue: "100", Required: true}, job.Options[2])
		assert.Equal(t, &model.JobOption{Name: "since", Description: "Start date"}, job.Options[3])
		assert.Equal(t, &model.JobOption{Name: "env", Description: "Symfony env"}, job.Options[4])
	})
	t.Run("should keep framework options when asked to", func(t *testing.T) {
		withDefaults := *builder
		withDefaults.IncludeDefaultOptions = true

		job := withDefaults.Build(syncCommand())

		require.Len(t, job.Options, 6)
		assert.Equal(t, "help", job.Options[1].Name)
		assert.Contains(t, job.ScriptContent, "opt_help=\"--help \"")
	})
	t.Run("should use the configured launcher and group", func(t *testing.T) {
		job := adapter.NewBuilder(config.AdapterConfig{
			User:    "deploy",
			AppPath: "/opt/tool",
			Console: "/opt/tool/bin/tool",
			Group:   "console",
		}).Build(&model.CommandDefinition{CommandName: "run"})

		assert.Equal(t, "console", job.Group)
		assert.Contains(t, job.ScriptContent, "cd /opt/tool\ncmd_string=\"sudo -u deploy /opt/tool/bin/tool run $opt_env\"\n")
	})
	t.Run("should not touch the caller's options", func(t *testing.T) {
		cmd := syncCommand()
		cmd.Opts = cmd.Opts[:1:4]

		builder.Build(cmd)

		assert.Equal(t, "dry-run", cmd.Opts[:2][1].Name)
	})
	t.Run("should produce a job that serializes", func(t *testing.T) {
		job := builder.Build(syncCommand())
		job.Project = "billing"

		require.NoError(t, job.Validate())
		doc, err := job.XML(true)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(doc, "<?xml version=\"1.0\"?>\n<joblist>"))
		assert.Contains(t, doc, `<option name="limit" value="100" required="true">`)
	})
	t.Run("should panic on options requiring a value they do not accept", func(t *testing.T) {
		cmd := &model.CommandDefinition{
			CommandName: "broken",
			Opts:        []model.CommandOption{{Name: "x", ValueRequired: true}},
		}

		assert.Panics(t, func() { builder.Build(cmd) })
	})
}
