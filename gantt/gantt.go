// Package gantt turns tasks into a chart dataset any Gantt front end can draw.
package gantt

import (
	"time"

	"taskboard/models"
)

// DefaultDuration is the bar length for a task without a due date.
const DefaultDuration = 24 * time.Hour

// Palette maps each status to its bar color.
var Palette = map[models.Status]string{
	models.StatusTodo:  "rgb(220, 0, 0)",
	models.StatusDoing: "rgb(255, 165, 0)",
	models.StatusDone:  "rgb(0, 255, 0)",
}

type Bar struct {
	TaskID int64         `json:"task_id"`
	Label  string        `json:"label"`
	Start  time.Time     `json:"start"`
	Finish time.Time     `json:"finish"`
	Status models.Status `json:"status"`
	Color  string        `json:"color"`
	// Reversed marks a bar whose due date precedes its start date.
	Reversed bool `json:"reversed,omitempty"`
}

type BarStyle struct {
	BorderWidth int     `json:"border_width"`
	BorderColor string  `json:"border_color"`
	Opacity     float64 `json:"opacity"`
	Width       float64 `json:"width"`
}

type Layout struct {
	Title      string   `json:"title"`
	XAxisTitle string   `json:"xaxis_title"`
	YAxisTitle string   `json:"yaxis_title"`
	ShowLegend bool     `json:"showlegend"`
	ShowGridX  bool     `json:"showgrid_x"`
	ShowGridY  bool     `json:"showgrid_y"`
	Height     int      `json:"height"`
	BarStyle   BarStyle `json:"bar_style"`
}

// LegendEntry is one status group present in the chart.
type LegendEntry struct {
	Status models.Status `json:"status"`
	Color  string        `json:"color"`
	Count  int           `json:"count"`
}

type Dataset struct {
	Bars   []Bar         `json:"bars"`
	Legend []LegendEntry `json:"legend"`
	Layout Layout        `json:"layout"`
}

// DefaultLayout is the layout every dataset carries.
func DefaultLayout() Layout {
	return Layout{
		Title:      "Task Gantt Chart",
		XAxisTitle: "Date",
		YAxisTitle: "Task",
		ShowLegend: true,
		ShowGridX:  true,
		ShowGridY:  true,
		Height:     400,
		BarStyle: BarStyle{
			BorderWidth: 1,
			BorderColor: "black",
			Opacity:     0.8,
			Width:       0.3,
		},
	}
}

// Project builds one bar per task, keeping input order. It returns ok=false
// when tasks is empty. A missing start date becomes now and a missing due
// date becomes start plus DefaultDuration.
func Project(tasks []models.Task, now time.Time) (ds Dataset, ok bool) {
	if len(tasks) == 0 {
		return Dataset{}, false
	}

	counts := make(map[models.Status]int)
	ds = Dataset{Bars: make([]Bar, 0, len(tasks)), Layout: DefaultLayout()}
	for _, t := range tasks {
		start := now
		if t.StartDate != nil {
			start = *t.StartDate
		}
		finish := start.Add(DefaultDuration)
		if t.DueDate != nil {
			finish = *t.DueDate
		}

		ds.Bars = append(ds.Bars, Bar{
			TaskID:   t.ID,
			Label:    t.Title,
			Start:    start,
			Finish:   finish,
			Status:   t.Status,
			Color:    Palette[t.Status],
			Reversed: finish.Before(start),
		})
		counts[t.Status]++
	}

	for _, st := range models.Statuses {
		if counts[st] > 0 {
			ds.Legend = append(ds.Legend, LegendEntry{Status: st, Color: Palette[st], Count: counts[st]})
		}
	}
	return ds, true
}
