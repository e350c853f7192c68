package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kelsos/roomfinder/internal/api/dto"
	"github.com/kelsos/roomfinder/internal/client"
	"github.com/kelsos/roomfinder/internal/config"
	"github.com/kelsos/roomfinder/internal/logger"
	"github.com/kelsos/roomfinder/internal/storage"
	"github.com/kelsos/roomfinder/internal/tui"
)

const readyAttempts = 3

func newSubmitCmd(cfg *config.Config) *cobra.Command {
	var (
		req  dto.SubmitRequest
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Start an availability search",
		Example: `  roomfinder submit --building "Li Ka Shing Library" --floor "Level 1" \
    --facility-type "Group Study Room" --equipment "TV Panel" --wait`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			apiClient := client.NewAPIClient(cfg)
			if !apiClient.WaitForAPIReady(ctx, readyAttempts) {
				logger.Fatal("roomfinder API at %s is not reachable, is 'roomfinder serve' running?", cfg.ServerURL)
			}

			taskID, err := apiClient.Submit(ctx, req)
			if err != nil {
				printSubmitError(err)
				logger.Fatal("Search was rejected")
			}
			if err := storage.SaveLastTask(taskID, cfg.ServerURL); err != nil {
				logger.Warn("Could not remember task id: %v", err)
			}
			fmt.Println(taskID)

			if !wait {
				return
			}

			task, err := apiClient.WaitForResult(ctx, taskID, func(task dto.TaskResponse) {
				logger.Info("Task %s is %s", task.TaskID, task.State)
			})
			if err != nil {
				logger.Fatal("Waiting for task %s failed: %v", taskID, err)
			}
			printTask(task)
		},
	}

	cmd.Flags().StringSliceVarP(&req.Buildings, "building", "b", nil, "Building to search (repeatable)")
	cmd.Flags().StringSliceVarP(&req.Floors, "floor", "f", nil, "Floor to search (repeatable)")
	cmd.Flags().StringSliceVarP(&req.FacilityTypes, "facility-type", "t", nil, "Facility type to search (repeatable)")
	cmd.Flags().StringSliceVarP(&req.Equipment, "equipment", "e", nil, "Required equipment (repeatable)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the search finishes and print the result")

	return cmd
}

func newStatusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show the state of a search (defaults to the last one submitted)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			taskID := resolveTaskID(args)

			task, err := client.NewAPIClient(cfg).Status(cmd.Context(), taskID)
			if err != nil {
				failTaskRequest(taskID, err)
			}
			printTask(task)
		},
	}
}

func newCancelCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [task-id]",
		Short: "Stop a pending or running search",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			taskID := resolveTaskID(args)

			task, err := client.NewAPIClient(cfg).Cancel(cmd.Context(), taskID)
			if err != nil {
				failTaskRequest(taskID, err)
			}
			printTask(task)
		},
	}
}

func newWatchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [task-id...]",
		Short: "Follow searches in a terminal dashboard",
		Run: func(cmd *cobra.Command, args []string) {
			taskIDs := args
			if len(taskIDs) == 0 {
				taskIDs = []string{resolveTaskID(nil)}
			}

			if err := logger.InitFileOnly(); err != nil {
				logger.Fatal("Failed to initialize file logging: %v", err)
			}
			defer logger.Close()
			if err := logger.SetLevel(cfg.LogLevel); err != nil {
				logger.Warn("%v", err)
			}

			monitor := tui.NewWatchMonitor(client.NewAPIClient(cfg), taskIDs)
			if err := monitor.Start(); err != nil {
				logger.Fatal("Failed to start monitor: %v", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			if err := monitor.Run(ctx); err != nil {
				logger.Fatal("Monitor failed: %v", err)
			}
		},
	}
}

func newFiltersCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the values each search filter accepts",
		Run: func(cmd *cobra.Command, args []string) {
			filters, err := client.NewAPIClient(cfg).Filters(cmd.Context())
			if err != nil {
				logger.Fatal("Failed to fetch filters: %v", err)
			}
			printFilters(filters)
		},
	}
}

func resolveTaskID(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	last, err := storage.GetLastTask()
	if errors.Is(err, storage.ErrNoLastTask) {
		logger.Fatal("No task id given and nothing was submitted yet")
	}
	if err != nil {
		logger.Fatal("Failed to read the last task: %v", err)
	}
	return last.TaskID
}

func failTaskRequest(taskID string, err error) {
	if client.IsNotFound(err) {
		logger.Fatal("Task %s does not exist or has expired", taskID)
	}
	logger.Fatal("Request for task %s failed: %v", taskID, err)
}
