package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrNoLastTask = errors.New("no task has been submitted yet")

// LastTask represents the structure of the last task file
type LastTask struct {
	TaskID      string `json:"task_id"`
	Server      string `json:"server"`
	SubmittedAt int64  `json:"submitted_at"`
}

// GetAppDataDir returns the application data directory
func GetAppDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	appDataDir := filepath.Join(homeDir, ".roomfinder")
	if err := os.MkdirAll(appDataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create app data directory: %w", err)
	}

	return appDataDir, nil
}

func lastTaskFilePath() (string, error) {
	appDataDir, err := GetAppDataDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(appDataDir, "last_task.json"), nil
}

// SaveLastTask remembers the task most recently submitted to server
func SaveLastTask(taskID, server string) error {
	filePath, err := lastTaskFilePath()
	if err != nil {
		return err
	}

	data := LastTask{
		TaskID:      taskID,
		Server:      server,
		SubmittedAt: time.Now().Unix(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal last task: %w", err)
	}

	if err := os.WriteFile(filePath, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write last task file: %w", err)
	}

	return nil
}

// GetLastTask returns the task most recently submitted, or ErrNoLastTask
func GetLastTask() (LastTask, error) {
	filePath, err := lastTaskFilePath()
	if err != nil {
		return LastTask{}, err
	}

	fileData, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return LastTask{}, ErrNoLastTask
	}
	if err != nil {
		return LastTask{}, fmt.Errorf("failed to read last task file: %w", err)
	}

	var data LastTask
	if err := json.Unmarshal(fileData, &data); err != nil {
		return LastTask{}, fmt.Errorf("failed to unmarshal last task: %w", err)
	}
	if data.TaskID == "" {
		return LastTask{}, ErrNoLastTask
	}

	return data, nil
}
