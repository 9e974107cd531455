package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gautam3767/additive_registry_backend/models"
)

var tierCmd = &cobra.Command{
	Use:   "tier <contributor> <NEW|TRUSTED|VERIFIED>",
	Short: "Set a contributor's trust tier",
	Args:  cobra.ExactArgs(2),
	RunE:  runTier,
}

func runTier(cmd *cobra.Command, args []string) error {
	tier, ok := models.ParseTrustTier(args[1])
	if !ok || tier == models.TierAdmin {
		return fmt.Errorf("unknown trust tier %q", args[1])
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if err := a.moderator.SetTrustTier(ctx, models.Caller{UserID: "cli", IsAdmin: true}, args[0], tier); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], tier)
	return nil
}
