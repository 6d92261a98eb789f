package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli"

	"github.com/borgmon/remindkeeper/pkg/scheduler"
)

func listCalendars(c *cli.Context) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if e.config.NeedsConfiguration() {
		fmt.Printf("no calendars configured, add ical_sources to %s\n", e.store.Path())
		return nil
	}

	infos, err := e.cache.Calendars(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tURL\tEVENTS\tSTATUS")
	for _, info := range infos {
		status := "ok"
		if !info.Reachable {
			status = "error: " + info.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", info.ID, info.Name, info.URL, info.EventCount, status)
	}
	return w.Flush()
}

func listEvents(c *cli.Context) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	events, err := e.cache.GetEvents(context.Background())
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("no upcoming events")
		return nil
	}

	sort.Slice(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })

	limit := c.Int("limit")
	finalOffset := c.Int("final-offset")

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tTITLE\tCALENDAR\tREMINDERS")
	for i, ev := range events {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			ev.StartTime.Local().Format("Mon Jan 2 15:04"),
			ev.Title,
			ev.CalendarName,
			reminderSummary(scheduler.RequiredAlarms(ev, finalOffset)),
		)
	}
	return w.Flush()
}
