package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kelsos/roomfinder/internal/api/dto"
	"github.com/kelsos/roomfinder/internal/logger"
)

// TaskPoller is the part of the API client the monitor needs.
type TaskPoller interface {
	WaitForResult(ctx context.Context, taskID string, onChange func(dto.TaskResponse)) (dto.TaskResponse, error)
}

type WatchMonitor struct {
	poller  TaskPoller
	taskIDs []string
	program *tea.Program
}

func NewWatchMonitor(poller TaskPoller, taskIDs []string) *WatchMonitor {
	return &WatchMonitor{
		poller:  poller,
		taskIDs: taskIDs,
	}
}

func (wm *WatchMonitor) Start() error {
	if len(wm.taskIDs) == 0 {
		return fmt.Errorf("no tasks to watch")
	}
	wm.program = tea.NewProgram(NewModel(), tea.WithAltScreen())
	return nil
}

func (wm *WatchMonitor) Stop() {
	if wm.program != nil {
		wm.program.Quit()
	}
}

func (wm *WatchMonitor) send(msg tea.Msg) {
	if wm.program != nil {
		wm.program.Send(msg)
	}
}

func (wm *WatchMonitor) AddLog(message string) {
	wm.send(LogMessage{Message: message})
}

// watchTask polls one task and forwards every state change to the TUI.
func (wm *WatchMonitor) watchTask(ctx context.Context, taskID string) {
	wm.AddLog(fmt.Sprintf("👀 Watching task %s", taskID))

	task, err := wm.poller.WaitForResult(ctx, taskID, func(task dto.TaskResponse) {
		logger.Info("Task %s is %s", task.TaskID, task.State)
		wm.send(TaskUpdate{Task: task})
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return
	case err != nil:
		logger.Error("Watching task %s failed: %v", taskID, err)
		wm.AddLog(fmt.Sprintf("❌ Polling %s failed: %v", taskID, err))
	case task.Error != nil:
		wm.AddLog(fmt.Sprintf("❌ Task %s failed: %s", taskID, task.Error.Kind))
	case task.Result != nil:
		wm.AddLog(fmt.Sprintf("🎉 Task %s found %d rooms", taskID, len(*task.Result)))
	}
}

// Run shows the monitor until the user quits or ctx is cancelled. Polling
// stops when the TUI exits.
func (wm *WatchMonitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		wm.Stop()
	}()

	go func() {
		wm.send(TasksLoaded{TaskIDs: wm.taskIDs})

		var wg sync.WaitGroup
		for _, id := range wm.taskIDs {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				wm.watchTask(ctx, id)
			}(id)
		}
		wg.Wait()

		if ctx.Err() == nil {
			wm.AddLog("All tasks finished, press 'q' to quit")
		}
	}()

	if _, err := wm.program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}
