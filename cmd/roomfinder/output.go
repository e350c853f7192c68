package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kelsos/roomfinder/internal/api/dto"
	"github.com/kelsos/roomfinder/internal/client"
)

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func printTask(task dto.TaskResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Task", "State", "Created", "Started", "Completed"})
	t.AppendRow(table.Row{task.TaskID, task.State, formatTime(&task.CreatedAt), formatTime(task.StartedAt), formatTime(task.CompletedAt)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if task.Error != nil {
		fmt.Printf("%s: %s\n", task.Error.Kind, task.Error.Message)
	}
	if task.Result != nil {
		printResult(*task.Result)
	}
}

func printResult(result dto.ResultResponse) {
	if len(result) == 0 {
		fmt.Println("No rooms match these filters.")
		return
	}

	rooms := make([]string, 0, len(result))
	for room := range result {
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Room", "Time", "Available", "Status"})
	for _, room := range rooms {
		for i, slot := range result[room].Timeslots {
			name := ""
			if i == 0 {
				name = room
			}
			available := "no"
			if slot.Available {
				available = "yes"
			}
			t.AppendRow(table.Row{name, slot.Time, available, slot.Status})
		}
		t.AppendSeparator()
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printFilters(filters dto.FiltersResponse) {
	columns := []struct {
		name   string
		values []string
	}{
		{"Buildings", filters.Buildings},
		{"Floors", filters.Floors},
		{"Facility types", filters.FacilityTypes},
		{"Equipment", filters.Equipment},
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Filter", "Accepted values"})
	for _, column := range columns {
		t.AppendRow(table.Row{column.name, strings.Join(column.values, "\n")})
		t.AppendSeparator()
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printSubmitError(err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Body.Field == "" {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	fmt.Fprintf(os.Stderr, "Invalid %s: %s\n", apiErr.Body.Field, apiErr.Body.Message)
	if len(apiErr.Body.InvalidValues) > 0 {
		fmt.Fprintln(os.Stderr, "Run 'roomfinder filters' to see the accepted values.")
	}
}
