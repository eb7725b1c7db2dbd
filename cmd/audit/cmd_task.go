package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	apptasks "github.com/bryanwahyu/seo-aio-audit/internal/application/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

func (a *app) taskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create and inspect backend tasks",
	}
	cmd.AddCommand(a.taskCreateCommand())
	cmd.AddCommand(a.taskStatusCommand())
	return cmd
}

func (a *app) taskCreateCommand() *cobra.Command {
	var (
		target   string
		platform string
		business tasks.Business
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a PageSpeed or directory search task",
		Long: `Create a task on the backend and print its ID.

With --url a PageSpeed task is created for --platform (desktop or mobile).
With --business a directory search task is created instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				p   tasks.Params
				err error
			)
			switch {
			case business.Name != "":
				p, err = tasks.NewDirectorySearchParams(business, a.cfg.Backend.UserID)
			case target != "":
				p, err = tasks.NewPageSpeedParams(target, tasks.Kind(platform), a.cfg.Backend.UserID)
			default:
				return fmt.Errorf("%w: either --url or --business is required", tasks.ErrInvalidParams)
			}
			if err != nil {
				return err
			}

			id, err := a.taskClient().CreateTask(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "url", "", "URL to analyze with PageSpeed")
	cmd.Flags().StringVar(&platform, "platform", string(tasks.KindMobile), "PageSpeed strategy: desktop or mobile")
	cmd.Flags().StringVar(&business.Name, "business", "", "Business name for a directory search")
	cmd.Flags().StringVar(&business.Address, "address", "", "Street address")
	cmd.Flags().StringVar(&business.City, "city", "", "City")
	cmd.Flags().StringVar(&business.PostalCode, "postal-code", "", "Postal code")
	cmd.Flags().StringVar(&business.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&business.Website, "website", "", "Website")

	return cmd
}

func (a *app) taskStatusCommand() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.taskClient()
			id := tasks.TaskID(args[0])

			var (
				snap tasks.Snapshot
				err  error
			)
			if wait {
				poller := apptasks.NewPoller(client, a.cfg.Poll.Interval, a.logger)
				snap, err = poller.PollUntilComplete(cmd.Context(), id, func(s tasks.Snapshot) {
					a.logger.Info("task status", "task_id", s.TaskID, "status", s.Status)
				})
			} else {
				snap, err = client.Status(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the task succeeds or fails")
	return cmd
}
