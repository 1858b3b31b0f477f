package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/teetime-sniper/internal/booking"
	"github.com/example/teetime-sniper/internal/config"
	"github.com/example/teetime-sniper/internal/schedules"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage stored schedule descriptors",
	}
	cmd.AddCommand(newScheduleCreateCmd())
	cmd.AddCommand(newScheduleListCmd())
	return cmd
}

func newScheduleCreateCmd() *cobra.Command {
	var (
		task        string
		name        string
		facilities  []int
		start       string
		durationMin int
		bufferMax   int
		weekdays    string
		quantity    int
		date        string
		players     int
		holes       int
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a schedule under a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			s := booking.Schedule{
				ID:          name,
				FacilityIDs: facilities,
				Start:       start,
				Duration:    time.Duration(durationMin) * time.Minute,
				BufferMax:   bufferMax,
				Quantity:    quantity,
				Players:     players,
				Holes:       holes,
			}
			for _, w := range strings.Split(weekdays, ",") {
				w = strings.TrimSpace(w)
				if w == "" {
					continue
				}
				day, err := schedules.ParseWeekday(w)
				if err != nil {
					return err
				}
				s.Weekdays = append(s.Weekdays, day)
			}
			if date != "" {
				if s.Date, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
				}
			}

			id, err := schedules.NewRepo(d).Create(ctx, task, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created schedule id=%d task=%s name=%s\n", id, task, name)
			return nil
		},
	}

	c.Flags().StringVar(&task, "task", "", "task name")
	c.Flags().StringVar(&name, "name", "", "schedule name")
	c.Flags().IntSliceVar(&facilities, "facility", nil, "candidate facility id (repeatable)")
	c.Flags().StringVar(&start, "start", "", "window start HH:MM in the authority zone")
	c.Flags().IntVar(&durationMin, "duration-minutes", 30, "window duration minutes")
	c.Flags().IntVar(&bufferMax, "buffer-max", 0, "max random jitter minutes added to the start")
	c.Flags().StringVar(&weekdays, "weekdays", "", "eligible weekdays, comma-separated (e.g. Sat,Sun)")
	c.Flags().IntVar(&quantity, "quantity", 1, "max slots to claim per run")
	c.Flags().StringVar(&date, "date", "", "explicit target date YYYY-MM-DD (default: lookahead)")
	c.Flags().IntVar(&players, "players", 4, "party size")
	c.Flags().IntVar(&holes, "holes", 18, "holes")

	_ = c.MarkFlagRequired("task")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("facility")
	_ = c.MarkFlagRequired("start")
	return c
}

func newScheduleListCmd() *cobra.Command {
	var task string
	c := &cobra.Command{
		Use:   "list",
		Short: "List schedules for a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			ss, err := schedules.NewRepo(d).ListByTask(ctx, task)
			if err != nil {
				return err
			}
			for _, s := range ss {
				date := "lookahead"
				if !s.Date.IsZero() {
					date = s.Date.Format("2006-01-02")
				}
				fmt.Fprintf(os.Stdout, "name=%s facilities=%v start=%s duration=%s buffer=%dm quantity=%d date=%s\n",
					s.ID, s.FacilityIDs, s.Start, s.Duration, s.BufferMax, s.Quantity, date)
			}
			return nil
		},
	}
	c.Flags().StringVar(&task, "task", "", "task name")
	_ = c.MarkFlagRequired("task")
	return c
}
