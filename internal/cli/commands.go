package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/eventease/backend/internal/attendance"
	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/internal/registrations"
)

const timeLayout = "2006-01-02 15:04"

func (e *env) loginCmd() *cobra.Command {
	var name, email, phone string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session as the given user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := e.app.Sessions.Login(ctxOf(cmd), name, email, phone)
			if err != nil {
				return err
			}
			return e.print(cmd.OutOrStdout(), s, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Logged in as %s <%s> (user %s)\n", s.Name, s.Email, s.UserID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (e *env) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.app.Sessions.Logout(ctxOf(cmd)); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	}
}

func (e *env) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := e.app.Sessions.Current(ctxOf(cmd))
			if err != nil {
				return err
			}
			if s == nil {
				return errors.New("not logged in")
			}
			return e.print(cmd.OutOrStdout(), s, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s <%s>\nuser:       %s\nsince:      %s\nregistered: %s\n",
					s.Name, s.Email, s.UserID, s.SessionStart.Local().Format(timeLayout), strings.Join(s.RegisteredEvents, ", "))
				return err
			})
		},
	}
}

func (e *env) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the events open for registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events := e.app.Catalog.All()
			return e.print(cmd.OutOrStdout(), events, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tDATE\tLOCATION")
				for _, ev := range events {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ev.ID, ev.Name, ev.Date.Format("2006-01-02"), ev.Location)
				}
				return tw.Flush()
			})
		},
	}
}

func (e *env) registerCmd() *cobra.Command {
	var (
		name, email, phone, requests string
		notify                       bool
	)
	cmd := &cobra.Command{
		Use:   "register <event-id>",
		Short: "Register the current user for an event",
		Long: `Register the current user for an event. Name and email default to the
logged-in session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			eventID := args[0]
			if err := e.requireEvent(eventID); err != nil {
				return err
			}
			in := registrations.RegisterInput{
				EventID:            eventID,
				UserName:           name,
				UserEmail:          email,
				UserPhone:          phone,
				EmailNotifications: notify,
			}
			if s, err := e.app.Sessions.Current(ctx); err == nil && s != nil {
				in.UserName = firstNonEmpty(in.UserName, s.Name)
				in.UserEmail = firstNonEmpty(in.UserEmail, s.Email)
				in.UserPhone = firstNonEmpty(in.UserPhone, s.PhoneNumber)
			}
			if cmd.Flags().Changed("requests") {
				in.SpecialRequests = &requests
			}
			reg, err := e.app.Registrations.Register(ctx, in)
			if errors.Is(err, registrations.ErrAlreadyRegistered) {
				return fmt.Errorf("already registered for event %s", eventID)
			}
			if err != nil {
				return err
			}
			return e.print(cmd.OutOrStdout(), reg, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Registered for event %s (registration %s)\n", reg.EventID, reg.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "attendee name (default: session name)")
	cmd.Flags().StringVar(&email, "email", "", "attendee email (default: session email)")
	cmd.Flags().StringVar(&phone, "phone", "", "attendee phone")
	cmd.Flags().StringVar(&requests, "requests", "", "special requests")
	cmd.Flags().BoolVar(&notify, "notify", true, "send a confirmation email (--notify=false to opt out)")
	return cmd
}

func (e *env) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <event-id>",
		Short: "Cancel the current user's registration for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := e.app.Registrations.Cancel(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no registration for event %s", args[0])
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cancelled registration for event %s\n", args[0])
			return err
		},
	}
}

func (e *env) registrationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registrations [event-id]",
		Short: "List registrations of an event, or your own without an argument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			var (
				list []models.Registration
				err  error
			)
			if len(args) == 1 {
				if err := e.requireEvent(args[0]); err != nil {
					return err
				}
				list, err = e.app.Registrations.ListForEvent(ctx, args[0])
			} else {
				list, err = e.app.Registrations.ListForCurrentUser(ctx)
			}
			if err != nil {
				return err
			}
			return e.print(cmd.OutOrStdout(), list, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "EVENT\tNAME\tEMAIL\tSTATUS\tREGISTERED")
				for _, r := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						r.EventID, r.UserName, r.UserEmail, r.Status, r.RegisteredAt.Local().Format(timeLayout))
				}
				return tw.Flush()
			})
		},
	}
}

func (e *env) checkinCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "checkin <event-id>",
		Short: "Check the current user in to an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireEvent(args[0]); err != nil {
				return err
			}
			rec, err := e.app.Attendance.CheckIn(ctxOf(cmd), args[0], optional(cmd, "notes", notes))
			switch {
			case errors.Is(err, attendance.ErrNotAuthenticated):
				return errors.New("not logged in (run `eventease login` first)")
			case errors.Is(err, attendance.ErrNotRegistered):
				return fmt.Errorf("not registered for event %s", args[0])
			case errors.Is(err, attendance.ErrAlreadyCheckedIn):
				return fmt.Errorf("already checked in to event %s", args[0])
			case err != nil:
				return err
			}
			return e.print(cmd.OutOrStdout(), rec, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Checked in to event %s at %s\n", rec.EventID, rec.CheckInAt.Local().Format(timeLayout))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "check-in notes")
	return cmd
}

func (e *env) checkoutCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "checkout <event-id>",
		Short: "Check the current user out of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := e.app.Attendance.CheckOut(ctxOf(cmd), args[0], optional(cmd, "notes", notes))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no open check-in for event %s", args[0])
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Checked out of event %s\n", args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "check-out notes")
	return cmd
}

func (e *env) attendanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attendance <event-id>",
		Short: "List attendance records of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireEvent(args[0]); err != nil {
				return err
			}
			list, err := e.app.Attendance.ListForEvent(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			return e.print(cmd.OutOrStdout(), list, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USER\tCHECK-IN\tCHECK-OUT\tSTATUS\tNOTES")
				for _, r := range list {
					out := "-"
					if r.CheckOutAt != nil {
						out = r.CheckOutAt.Local().Format(timeLayout)
					}
					note := ""
					if r.Notes != nil {
						note = *r.Notes
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.UserID, r.CheckInAt.Local().Format(timeLayout), out, r.Status, note)
				}
				return tw.Flush()
			})
		},
	}
}

func (e *env) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <event-id>",
		Short: "Show registration and attendance figures of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireEvent(args[0]); err != nil {
				return err
			}
			s, err := e.app.Analytics.Summary(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			return e.print(cmd.OutOrStdout(), s, func(w io.Writer) error {
				_, err := fmt.Fprintf(w,
					"registrations: %d\ncancelled:     %d\nattended:      %d\nno-show:       %d\nrate:          %.1f%%\navg stay:      %s\n",
					s.TotalRegistrations, s.Cancelled, s.Attended, s.NoShow, s.AttendanceRate,
					(time.Duration(s.AvgStaySeconds) * time.Second).String())
				return err
			})
		},
	}
}

// optional returns a pointer to value only when the flag was given.
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
