package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/workspace"
)

var (
	createFlavor      string
	createTier        string
	createAddons      []string
	createRepoURL     string
	createDescription string
	createNoStart     bool
	createDir         string
)

var createCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Create a sandbox",
	Long: `Create a sandbox. Flags left unset are filled from the ` + workspace.Filename + `
descriptor in --dir when one exists, so running "sandboxctl create" inside
a checked-out workspace picks up its committed settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createFlavor, "flavor", "", "image flavor (js, python, go, rust, fullstack)")
	createCmd.Flags().StringVar(&createTier, "tier", "", "resource tier (starter, builder, creator, power)")
	createCmd.Flags().StringSliceVar(&createAddons, "addon", nil, "addon id (repeatable)")
	createCmd.Flags().StringVar(&createRepoURL, "repo-url", "", "clone the workspace from this URL instead of creating it empty")
	createCmd.Flags().StringVar(&createDescription, "description", "", "sandbox description")
	createCmd.Flags().BoolVar(&createNoStart, "no-start", false, "create without starting the container")
	createCmd.Flags().StringVar(&createDir, "dir", ".", "directory holding the workspace descriptor")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	if flagUser == "" {
		return fmt.Errorf("--user (or SANDBOXD_USER) is required")
	}

	desc := workspace.Load(createDir, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	name := desc.Sandbox.Name
	if len(args) == 1 {
		name = args[0]
	}
	if name == "" {
		return fmt.Errorf("a NAME argument is required when %s names none", workspace.Filename)
	}

	req := &api.CreateSandboxRequest{
		UserID:         flagUser,
		Name:           name,
		Description:    createDescription,
		FlavorID:       createFlavor,
		ResourceTierID: createTier,
		AddonIDs:       createAddons,
		RepoURL:        createRepoURL,
	}
	if req.FlavorID == "" {
		req.FlavorID = desc.Sandbox.Flavor
	}
	if req.ResourceTierID == "" {
		req.ResourceTierID = desc.Sandbox.Tier
	}
	if len(req.AddonIDs) == 0 {
		req.AddonIDs = desc.Addons.IDs
	}
	if createNoStart {
		autoStart := false
		req.AutoStart = &autoStart
	}

	sb, err := newClient().createSandbox(cmd.Context(), req)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(sb)
	}
	fmt.Printf("created %s (%s) status=%s\n", sb.Slug, sb.ID, sb.Status)
	if sb.EditorURL != "" {
		fmt.Printf("editor:   %s\n", sb.EditorURL)
	}
	if sb.OpencodeURL != "" {
		fmt.Printf("opencode: %s\n", sb.OpencodeURL)
	}
	if sb.PreviewURL != "" {
		fmt.Printf("preview:  %s\n", sb.PreviewURL)
	}
	return nil
}
