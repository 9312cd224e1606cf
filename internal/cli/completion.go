package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

// completionHome is the home directory used by --install. Tests override it.
var completionHome = os.UserHomeDir

// shellCompletion describes how to generate and where to install the script
// for one shell.
type shellCompletion struct {
	generate func(w io.Writer) error
	// loadHint is how to load the script into the current session.
	loadHint string
	// installPath is relative to the home directory; empty when --install
	// is not supported.
	installPath string
	// afterInstall lines are printed after a successful install.
	afterInstall []string
}

func shellCompletions() map[string]shellCompletion {
	return map[string]shellCompletion{
		"bash": {
			generate:     func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
			loadHint:     `eval "$(ppmb completion bash)"`,
			installPath:  filepath.Join(".local", "share", "bash-completion", "completions", "ppmb"),
			afterInstall: []string{"Restart your shell to load them."},
		},
		"zsh": {
			generate:    rootCmd.GenZshCompletion,
			loadHint:    `eval "$(ppmb completion zsh)"`,
			installPath: filepath.Join(".local", "share", "zsh", "site-functions", "_ppmb"),
			afterInstall: []string{
				"Ensure the directory is in your fpath, e.g. in ~/.zshrc:",
				"  fpath=(~/.local/share/zsh/site-functions $fpath)",
				"  autoload -Uz compinit && compinit",
			},
		},
		"fish": {
			generate:     func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
			loadHint:     "ppmb completion fish | source",
			installPath:  filepath.Join(".config", "fish", "completions", "ppmb.fish"),
			afterInstall: []string{"New fish sessions pick them up automatically."},
		},
		"powershell": {
			generate: rootCmd.GenPowerShellCompletionWithDesc,
			loadHint: "ppmb completion powershell | Out-String | Invoke-Expression",
		},
	}
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for ppmb",
	Long: `Set up shell tab-completions for ppmb commands, flags, baseline names
and output formats.

Supported shells: bash, zsh, fish, powershell

Quick install (writes the script under your home directory):

  ppmb completion bash --install
  ppmb completion zsh --install
  ppmb completion fish --install

Or print the script to stdout for manual setup:

  eval "$(ppmb completion bash)"`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		shell, ok := shellCompletions()[args[0]]
		if !ok {
			return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", args[0])
		}

		if !completionInstall {
			// Hints go to stderr so the script can be piped.
			fmt.Fprintf(cmd.ErrOrStderr(), "# To load completions in your current session:\n#   %s\n", shell.loadHint)
			return shell.generate(cmd.OutOrStdout())
		}

		if shell.installPath == "" {
			return fmt.Errorf("automatic install is not supported for %s; add '%s' to your profile", args[0], shell.loadHint)
		}
		home, err := completionHome()
		if err != nil {
			return fmt.Errorf("detecting home directory: %w", err)
		}
		target := filepath.Join(home, shell.installPath)
		if err := writeCompletionFile(target, shell.generate); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Completions for %s installed to %s\n", args[0], target)
		for _, line := range shell.afterInstall {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

// writeCompletionFile creates target and its parent directory, then writes
// the generated script into it, propagating close errors.
func writeCompletionFile(target string, generate func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating completion directory: %w", err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating completion file %s: %w", target, err)
	}

	writeErr := generate(f)
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("writing completion file %s: %w", target, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing completion file %s: %w", target, closeErr)
	}
	return nil
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false, "Install completions under your home directory")

	// Replace Cobra's default completion command with ours.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}
