package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAssignCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Inspect or assign cleaners for a booking",
	}
	cmd.AddCommand(newAssignFindCmd(envFile))
	cmd.AddCommand(newAssignAutoCmd(envFile))
	return cmd
}

func newAssignFindCmd(envFile *string) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "find <booking-id>",
		Short: "List eligible, free cleaners in assignment order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id %q: %w", args[0], err)
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := bootstrap(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			av, err := a.engine.FindAvailableCleaners(ctx, id)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(av)
			}
			printAvailability(cmd.OutOrStdout(), av)
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return c
}

func newAssignAutoCmd(envFile *string) *cobra.Command {
	var retries bool
	c := &cobra.Command{
		Use:   "auto <booking-id>",
		Short: "Assign the top-ranked cleaner to a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id %q: %w", args[0], err)
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := bootstrap(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			var out assignment.Outcome
			if retries {
				out, err = assignment.RetryAutoAssign(ctx, a.engine, id, a.retryPolicy(), a.log)
			} else {
				out, err = a.engine.AutoAssignCleaner(ctx, id)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", assignment.ReasonFor(err), err)
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}
	c.Flags().BoolVar(&retries, "retries", false, "retry on conflict or transient failure (ASSIGN_MAX_ATTEMPTS)")
	return c
}

func printAvailability(w io.Writer, av assignment.Availability) {
	fmt.Fprintf(w, "booking %s  %s  tags=%v area=%s\n", av.Booking.ID, av.Window, av.Booking.RequiredTags, av.Booking.AreaTag)
	if len(av.Candidates) == 0 {
		fmt.Fprintln(w, "no eligible cleaner is free")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCLEANER\tUPCOMING\tBUFFER")
	for i, c := range av.Candidates {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, c.Cleaner.ID, c.Upcoming, c.Buffer.Round(time.Minute))
	}
	_ = tw.Flush()
}

func printOutcome(w io.Writer, out assignment.Outcome) {
	if out.Success {
		fmt.Fprintf(w, "booking %s assigned to cleaner %s\n", out.BookingID, *out.CleanerID)
		return
	}
	fmt.Fprintf(w, "booking %s not assigned (%s): %s\n", out.BookingID, out.Reason, out.Message)
}
