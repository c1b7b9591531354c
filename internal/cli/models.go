package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/srtgen/internal/models"
)

func newModelsCommand(cc *commandContext) *cobra.Command {
	var jsonOut bool
	list := func(cmd *cobra.Command, _ []string) error {
		cfg, err := cc.ensureConfig()
		if err != nil {
			return err
		}
		local, err := models.List(cfg.Paths.ModelsDir)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), local)
		}
		rows := make([][]string, 0, len(local))
		for _, m := range local {
			size := "-"
			if m.Downloaded {
				size = formatBytes(m.SizeBytes)
			}
			active := ""
			if m.ID == cfg.Transcription.Model {
				active = "*"
			}
			rows = append(rows, []string{active + m.ID, yesNo(m.Downloaded), size, m.Path})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Model", "Downloaded", "Size", "Path"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
		return nil
	}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and manage local whisper models",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show known and downloaded models",
		Args:  cobra.NoArgs,
		RunE:  list,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path <id>",
		Short: "Print where a model file is expected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			p, err := models.Path(cfg.Paths.ModelsDir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a downloaded model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			removed, err := models.Remove(cfg.Paths.ModelsDir, args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s is not downloaded\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed model %s\n", args[0])
			return nil
		},
	})
	return cmd
}
