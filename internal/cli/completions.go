package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// completeBaselineNames completes the first positional argument with
// captured baseline names.
func completeBaselineNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeBaselineFlag(cmd, args, toComplete)
}

// completeBaselineFlag lists captured baseline names, described by project
// and capture date.
func completeBaselineFlag(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if BaselineMgr == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	baselines, err := BaselineMgr.ListBaselines("")
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	for _, b := range baselines {
		if strings.HasPrefix(b.Name, toComplete) {
			names = append(names, b.Name+"\t"+b.ProjectID+" captured "+b.CapturedAt.Format("2006-01-02"))
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeBaselineThenFile completes a baseline name first and a snapshot
// file second.
func completeBaselineThenFile(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return completeBaselineNames(cmd, args, toComplete)
	}
	return completeSnapshotFiles(cmd, args, toComplete)
}

// completeProjectIDs lists the distinct project IDs in the baseline register.
func completeProjectIDs(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if BaselineMgr == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	baselines, err := BaselineMgr.ListBaselines("")
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	seen := make(map[string]bool)
	var ids []string
	for _, b := range baselines {
		if b.ProjectID == "" || seen[b.ProjectID] || !strings.HasPrefix(b.ProjectID, toComplete) {
			continue
		}
		seen[b.ProjectID] = true
		ids = append(ids, b.ProjectID)
	}
	sort.Strings(ids)
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeFormats completes --format values.
func completeFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.FormatTable) + "\tStyled terminal report",
		string(models.FormatJSON) + "\tIndented JSON",
		string(models.FormatYAML) + "\tYAML",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeSnapshotFiles restricts file completion to snapshot extensions.
func completeSnapshotFiles(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml", "json"}, cobra.ShellCompDirectiveFilterFileExt
}

// registerFormatCompletion registers completeFormats on a command's --format flag.
func registerFormatCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
}
