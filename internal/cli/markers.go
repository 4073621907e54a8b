package cli

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newMarkersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "markers",
		Aliases: []string{"marker"},
		Short:   "Marker commands",
	}

	cmd.AddCommand(newMarkersListCmd())
	cmd.AddCommand(newMarkersAddCmd())
	cmd.AddCommand(newMarkersRemoveCmd())

	return cmd
}

func newMarkersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all markers, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Marker

			if err := client.Get("/api/v1/markers", &result); err != nil {
				return err
			}
			if result == nil {
				result = []Marker{}
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newMarkersAddCmd() *cobra.Command {
	var m Marker

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Place a marker on the map",
		Example: `  tacmap markers add --type enemy --shape circle --x 120 --y 340
  tacmap markers add --id m1 --type objective --shape star --x 4000 --y 4000 --notes "hold"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}

			var result SuccessResult
			if err := client.Post("/api/v1/markers", m, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			if cfg.Output == "json" {
				out.Print(map[string]any{"success": result.Success, "id": m.ID})
			} else {
				out.PrintMessage(fmt.Sprintf("Added marker %s", m.ID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&m.ID, "id", "", "Marker id (generated when omitted)")
	cmd.Flags().StringVar(&m.Type, "type", "", "Marker type, e.g. enemy, friendly, objective (required)")
	cmd.Flags().StringVar(&m.Shape, "shape", "circle", "Marker shape")
	cmd.Flags().Float64Var(&m.X, "x", 0, "X coordinate")
	cmd.Flags().Float64Var(&m.Y, "y", 0, "Y coordinate")
	cmd.Flags().StringVar(&m.Color, "color", "", "Display colour (derived from type when omitted)")
	cmd.Flags().StringVar(&m.Notes, "notes", "", "Free text notes")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newMarkersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a marker by id",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SuccessResult

			if err := client.Delete("/api/v1/markers/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Removed marker %s", args[0]))
			return nil
		},
	}
}
