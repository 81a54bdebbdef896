package bloomy

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/louisbranch/bloomy/internal/services/bloomy/app"
	"github.com/louisbranch/bloomy/internal/services/journal/catalog"
	"github.com/louisbranch/bloomy/internal/services/journal/emotion"
	"github.com/louisbranch/bloomy/internal/services/journal/mood"
	"github.com/spf13/cobra"
)

func newMoodCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Record and review the daily mood",
	}

	var note string
	add := &cobra.Command{
		Use:   "add <mood>",
		Short: "Record today's mood, replacing any earlier one",
		Long:  "Moods: " + strings.Join(moodNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				entry, err := a.Moods.Add(ctx, mood.Mood(strings.ToLower(strings.TrimSpace(args[0]))), note)
				if err != nil {
					return err
				}
				return rt.emit(entry, func(w io.Writer) {
					fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Date, entry.Mood, orDash(entry.Note))
				})
			})
		},
	}
	add.Flags().StringVar(&note, "note", "", "optional note")

	list := &cobra.Command{
		Use:   "list",
		Short: "List mood entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				entries := a.Moods.Entries()
				return rt.emit(orEmpty(entries), func(w io.Writer) {
					for _, entry := range entries {
						fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Date, entry.Mood, orDash(entry.Note))
					}
				})
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count moods across every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				summary, ok := a.Moods.Stats()
				if !ok {
					summary = mood.Stats{Counts: map[mood.Mood]int{}}
				}
				return rt.emit(summary, func(w io.Writer) {
					if !ok {
						fmt.Fprintln(w, "no moods recorded")
						return
					}
					fmt.Fprintf(w, "total\t%d\n", summary.Total)
					fmt.Fprintf(w, "most common\t%s\n", summary.MostCommon)
					for _, m := range mood.Moods {
						fmt.Fprintf(w, "%s\t%d\n", m, summary.Counts[m])
					}
				})
			})
		},
	}

	var month string
	calendar := &cobra.Command{
		Use:   "calendar",
		Short: "Show a Monday-first month grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				raw := strings.TrimSpace(month)
				if raw == "" {
					raw = a.Moods.Today()[:len("2006-01")]
				}
				parsed, err := time.Parse("2006-01", raw)
				if err != nil {
					return fmt.Errorf("month %q: use YYYY-MM", raw)
				}
				grid := a.Moods.Month(parsed.Year(), parsed.Month())
				return rt.emit(grid, func(w io.Writer) { writeCalendar(w, grid) })
			})
		},
	}
	calendar.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: this month)")

	cmd.AddCommand(add, list, stats, calendar)
	return cmd
}

func writeCalendar(w io.Writer, grid mood.Month) {
	fmt.Fprintf(w, "%s %d\n", grid.Month, grid.Year)
	fmt.Fprintln(w, "Mo\tTu\tWe\tTh\tFr\tSa\tSu\t")
	cells := make([]string, 0, grid.Leading+len(grid.Days))
	for range grid.Leading {
		cells = append(cells, "")
	}
	for _, day := range grid.Days {
		cell := fmt.Sprintf("%d", day.Day)
		if day.Mood != "" {
			cell += string(day.Mood[:1])
		}
		cells = append(cells, cell)
	}
	for i, cell := range cells {
		fmt.Fprintf(w, "%s\t", cell)
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}
	if len(cells)%7 != 0 {
		fmt.Fprintln(w)
	}
}

func moodNames() []string {
	names := make([]string, 0, len(mood.Moods))
	for _, m := range mood.Moods {
		names = append(names, string(m))
	}
	return names
}

func newEmotionCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emotion",
		Short: "Log emotions from the catalog",
	}

	var note, image string
	var tags []string
	add := &cobra.Command{
		Use:   "add <emotion-id>",
		Short: "Log an emotion now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				entry, err := a.Emotions.Add(ctx, args[0], note, image, tags)
				if err != nil {
					return err
				}
				return rt.emit(entry, func(w io.Writer) { writeEmotions(w, rt.location(), []emotion.Entry{entry}) })
			})
		},
	}
	add.Flags().StringVar(&note, "note", "", "optional note")
	add.Flags().StringVar(&image, "image", "", "optional image reference")
	add.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")

	var day string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List logged emotions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				var entries []emotion.Entry
				switch {
				case strings.TrimSpace(day) != "":
					found, err := a.Emotions.EntriesForDay(day)
					if err != nil {
						return err
					}
					entries = found
				case limit > 0:
					entries = a.Emotions.Recent(limit)
				default:
					entries = a.Emotions.Entries()
				}
				return rt.emit(orEmpty(entries), func(w io.Writer) { writeEmotions(w, rt.location(), entries) })
			})
		},
	}
	list.Flags().StringVar(&day, "date", "", "only entries on this calendar day (YYYY-MM-DD)")
	list.Flags().IntVar(&limit, "limit", 0, "only the most recent entries")

	var editNote, editEmotion string
	edit := &cobra.Command{
		Use:   "edit <entry-id>",
		Short: "Change an entry's emotion or note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch emotion.Patch
			if cmd.Flags().Changed("note") {
				patch.Note = &editNote
			}
			if cmd.Flags().Changed("emotion") {
				patch.EmotionID = &editEmotion
			}
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				entry, err := a.Emotions.Update(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return rt.emit(entry, func(w io.Writer) { writeEmotions(w, rt.location(), []emotion.Entry{entry}) })
			})
		},
	}
	edit.Flags().StringVar(&editNote, "note", "", "replace the note")
	edit.Flags().StringVar(&editEmotion, "emotion", "", "replace the emotion id")

	remove := &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Emotions.Delete(ctx, args[0]); err != nil {
					return err
				}
				return rt.emit(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %s\n", args[0])
				})
			})
		},
	}

	var query, category string
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the emotions that can be logged",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			var emotions []catalog.Emotion
			switch {
			case strings.TrimSpace(query) != "":
				emotions = catalog.Search(query)
			case strings.TrimSpace(category) != "":
				emotions = catalog.ByCategory(catalog.Category(strings.ToLower(strings.TrimSpace(category))))
			default:
				emotions = catalog.All()
			}
			return rt.emit(orEmpty(emotions), func(w io.Writer) {
				for _, e := range emotions {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Icon, e.Name, e.Category)
				}
			})
		},
	}
	catalogCmd.Flags().StringVar(&query, "q", "", "search names")
	catalogCmd.Flags().StringVar(&category, "category", "", "only one category")

	cmd.AddCommand(add, list, edit, remove, catalogCmd)
	return cmd
}

func writeEmotions(w io.Writer, loc *time.Location, entries []emotion.Entry) {
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\n",
			entry.ID,
			entry.Timestamp.In(loc).Format("2006-01-02 15:04"),
			entry.Emotion.Icon,
			entry.Emotion.Name,
			orDash(entry.Note),
			strings.Join(entry.Tags, ","),
		)
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
