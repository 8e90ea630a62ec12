// Package inferctl implements the inferd command line client: model
// status, artifact fetching, purging, and one-shot inference requests
// against a running server.
package inferctl

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"inferd/pkg/types"
)

// Config carries the persistent flag values shared by all subcommands.
type Config struct {
	Addr    string
	Timeout int64 // seconds
}

func (c *Config) client() *Client {
	return NewClient(c.Addr, time.Duration(c.Timeout)*time.Second)
}

// Main runs the CLI and returns the process exit code.
func Main() int { return MainWithArgs(os.Args[1:]) }

// MainWithArgs is a testable variant of Main that accepts args explicitly.
func MainWithArgs(args []string) int {
	cfg := &Config{
		Addr:    envStr("INFERD_HOST", "http://127.0.0.1:8000"),
		Timeout: 300,
	}
	root := buildRootCmd(cfg)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// buildRootCmd constructs the Cobra command tree. Subcommands read the
// connection settings from cfg at run time so persistent flags apply.
func buildRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "inferctl",
		Short:         "Command line client for an inferd server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr,
		"Server address (defaults INFERD_HOST or http://127.0.0.1:8000)")
	root.PersistentFlags().Int64Var(&cfg.Timeout, "timeout", cfg.Timeout,
		"Request timeout in seconds; cold loads include a download")
	root.AddCommand(
		newStatusCmd(cfg),
		newFetchCmd(cfg),
		newPurgeCmd(cfg),
		newExecCmd(cfg),
		newHealthCmd(cfg),
	)
	return root
}

func newStatusCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List known models and memory usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cfg.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newFetchCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "fetch <model-id>",
		Short:   "Download a model artifact into the server cache",
		Example: "  inferctl fetch meta-llama/Llama-3.2-1B",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cfg.client().Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s cached at %s\n", resp.ModelID, resp.Path)
			return nil
		},
	}
}

func newPurgeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Release every loaded model from device memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cfg.client().Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}

func newExecCmd(cfg *Config) *cobra.Command {
	var params []string
	var force bool
	cmd := &cobra.Command{
		Use:   "exec <task> <model-id> <input>",
		Short: "Run one inference request and print the result JSON",
		Example: "  inferctl exec text meta-llama/Llama-3.2-1B \"Write a haiku\" --param max_length=64\n" +
			"  inferctl exec image sd-turbo \"a lighthouse at dusk\" --param width=512",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, ok := types.ParseTaskType(args[0])
			if !ok {
				return fmt.Errorf("unknown task type %q (valid: %s)", args[0], taskList())
			}
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			resp, err := cfg.client().Execute(cmd.Context(), task, types.ExecuteRequest{
				ModelID:     args[1],
				Input:       args[2],
				Params:      p,
				ForceReload: force,
			})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(resp.Result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "Task parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&force, "force-reload", false, "Drop and reload the model before running")
	return cmd
}

func newHealthCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cfg.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  device=%s  vram=%.1f%%\n",
				h.Status, h.Device, h.VRAMUsagePercent)
			return nil
		},
	}
}

func taskList() string {
	all := types.AllTaskTypes()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// parseParams turns repeated key=value flags into a params map. Values
// that parse as numbers or booleans are sent as such; everything else
// stays a string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid param %q, want key=value", pair)
		}
		out[k] = coerceParam(v)
	}
	return out, nil
}

func coerceParam(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
